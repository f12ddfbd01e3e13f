// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package framing

import "errors"

// ErrCorruptCOBS is returned by Unstuff when the input is not a well-formed
// COBS encoding (a zero code byte, or a code byte whose run overruns the
// buffer).
var ErrCorruptCOBS = errors.New("framing: corrupt cobs encoding")

// Stuff appends the COBS encoding of src to dst and returns the extended
// slice. The result never contains a zero byte; the caller is responsible
// for appending the single 0x00 delimiter that terminates a frame on the
// wire. dst may be a zero-length slice over a pre-sized backing array to
// avoid an allocation per frame.
func Stuff(dst, src []byte) []byte {
	codeIdx := len(dst)
	dst = append(dst, 0) // placeholder, patched below
	code := byte(1)
	for _, b := range src {
		if b == 0 {
			dst[codeIdx] = code
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
			continue
		}
		dst = append(dst, b)
		code++
		if code == 0xFF {
			dst[codeIdx] = code
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
		}
	}
	dst[codeIdx] = code
	return dst
}

// Unstuff appends the decoded payload of a COBS-stuffed frame (not
// including the 0x00 delimiter, which the caller must have already
// stripped) to dst and returns the extended slice.
func Unstuff(dst, src []byte) ([]byte, error) {
	i := 0
	for i < len(src) {
		code := src[i]
		if code == 0 {
			return dst, ErrCorruptCOBS
		}
		i++
		end := i + int(code) - 1
		if end > len(src) {
			return dst, ErrCorruptCOBS
		}
		dst = append(dst, src[i:end]...)
		i = end
		if code < 0xFF && i < len(src) {
			dst = append(dst, 0)
		}
	}
	return dst, nil
}
