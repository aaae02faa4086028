// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grandbin

import (
	"errors"
	"fmt"
)

var (
	ErrTruncatedBlock = errors.New("grandbin: truncated block")
	ErrHeaderTooShort = errors.New("grandbin: file header too short")
	ErrEventTooShort  = errors.New("grandbin: event block too short")
	ErrBoundary       = errors.New("grandbin: sub-record crosses event boundary")
	ErrTrailingData   = errors.New("grandbin: trailing data after last sub-record")
	ErrShortBlob      = errors.New("grandbin: short electronics blob")
	ErrTraceOverrun   = errors.New("grandbin: trace overruns sub-record")
)

// TruncatedBlockError describes a block whose payload ended before its
// declared size.
type TruncatedBlockError struct {
	Expected int // declared payload size, in bytes
	Got      int // number of payload bytes actually read
}

func (err *TruncatedBlockError) Error() string {
	return fmt.Sprintf("grandbin: truncated block (expected=%d, got=%d)", err.Expected, err.Got)
}

func (err *TruncatedBlockError) Is(target error) bool { return target == ErrTruncatedBlock }

// ShortBlobError describes a read past the end of an electronics blob.
type ShortBlobError struct {
	Field string
	Off   int
	Size  int
	Len   int
}

func (err *ShortBlobError) Error() string {
	return fmt.Sprintf(
		"grandbin: short electronics blob reading %s (off=%d, size=%d, len=%d)",
		err.Field, err.Off, err.Size, err.Len,
	)
}

func (err *ShortBlobError) Is(target error) bool { return target == ErrShortBlob }

// TraceOverrunError describes a trace extending past its sub-record.
type TraceOverrunError struct {
	Channel int
	Off     int // byte offset of the trace in the blob
	Size    int // byte size of the trace
	Len     int // byte size of the blob
}

func (err *TraceOverrunError) Error() string {
	return fmt.Sprintf(
		"grandbin: trace of channel %d overruns sub-record (off=%d, size=%d, len=%d)",
		err.Channel, err.Off, err.Size, err.Len,
	)
}

func (err *TraceOverrunError) Is(target error) bool { return target == ErrTraceOverrun }

// BoundaryError describes a sub-record that does not fit in its event.
type BoundaryError struct {
	Cursor int // word offset of the sub-record
	Length int // declared length of the sub-record, in words
	End    int // word offset of the event end
}

func (err *BoundaryError) Error() string {
	return fmt.Sprintf(
		"grandbin: sub-record crosses event boundary (cursor=%d, length=%d, end=%d)",
		err.Cursor, err.Length, err.End,
	)
}

func (err *BoundaryError) Is(target error) bool { return target == ErrBoundary }
