// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grandbin

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Reader reads length-prefixed blocks from an underlying data source.
//
// Each block is a 4-byte little-endian count followed by that many
// payload bytes.
type Reader struct {
	r   io.Reader
	buf []byte
	n   int64
}

// NewReader returns a new Reader that reads blocks from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:   r,
		buf: make([]byte, intSize),
	}
}

// N returns the number of bytes consumed so far.
func (r *Reader) N() int64 { return r.n }

// ReadBlock reads the next block and returns it, count included.
//
// The returned slice is only valid until the next call to ReadBlock or
// ReadFileHeader.
// ReadBlock returns io.EOF when the stream ends before a complete count.
func (r *Reader) ReadBlock() ([]byte, error) {
	n, err := r.readCount()
	if err != nil {
		return nil, err
	}
	return r.readPayload(n)
}

// ReadFileHeader reads the file header block.
func (r *Reader) ReadFileHeader() (FileHeader, error) {
	var hdr FileHeader
	n, err := r.readCount()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return hdr, fmt.Errorf("grandbin: could not read file header size: %w", err)
	}
	if n < FileHdrAdditional*intSize {
		return hdr, fmt.Errorf("%w (size=%d, want>=%d)", ErrHeaderTooShort, n, FileHdrAdditional*intSize)
	}

	raw, err := r.readPayload(n)
	if err != nil {
		return hdr, fmt.Errorf("grandbin: could not read file header: %w", err)
	}

	word := func(i int) uint32 {
		return binary.LittleEndian.Uint32(raw[i*intSize:])
	}
	hdr.Length = word(fileHdrLength)
	hdr.RunNr = word(fileHdrRunNr)
	hdr.RunMode = word(fileHdrRunMode)
	hdr.Serial = word(fileHdrSerial)
	hdr.FirstEvent = word(fileHdrFirstEvent)
	hdr.FirstEventSec = word(fileHdrFirstEventSec)
	hdr.LastEvent = word(fileHdrLastEvent)
	hdr.LastEventSec = word(fileHdrLastEventSec)
	for i := FileHdrAdditional; (i+1)*intSize <= len(raw); i++ {
		hdr.Additional = append(hdr.Additional, word(i))
	}

	return hdr, nil
}

func (r *Reader) readCount() (int, error) {
	r.buf = r.buf[:intSize]
	nn, err := io.ReadFull(r.r, r.buf)
	r.n += int64(nn)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("grandbin: could not read block size: %w", err)
	}
	return int(binary.LittleEndian.Uint32(r.buf)), nil
}

func (r *Reader) readPayload(n int) ([]byte, error) {
	size := n + intSize
	if cap(r.buf) < size {
		buf := make([]byte, size)
		copy(buf, r.buf[:intSize])
		r.buf = buf
	}
	r.buf = r.buf[:size]

	nn, err := io.ReadFull(r.r, r.buf[intSize:])
	r.n += int64(nn)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &TruncatedBlockError{Expected: n, Got: nn}
		}
		return nil, fmt.Errorf("grandbin: could not read block payload: %w", err)
	}
	return r.buf, nil
}
