// Copyright 2024 The Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package capture records and replays the raw outbound byte stream. A
// capture file is nothing but the COBS-stuffed, 0x00-delimited frames
// exactly as they went over the wire, so replaying one is just feeding its
// bytes back through a framing.Decoder.
package capture

import (
	"bufio"
	"io"
	"os"
)

// Writer appends raw wire frames to a capture file.
type Writer struct {
	f *os.File
}

// Create opens (or truncates) a capture file.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f}, nil
}

// Write implements io.Writer; frames land in the file exactly as sent.
func (w *Writer) Write(b []byte) (int, error) {
	return w.f.Write(b)
}

// Close implements io.Closer.
func (w *Writer) Close() error {
	return w.f.Close()
}

// Replay streams every byte of a capture through feed, stopping early if
// feed returns an error.
func Replay(r io.Reader, feed func(b byte) error) error {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := feed(b); err != nil {
			return err
		}
	}
}

// ReplayFile is Replay over a file on disk.
func ReplayFile(path string, feed func(b byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Replay(f, feed)
}
