// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert GRAND binary data to ROOT or LCIO.
package xcnv // import "github.com/grand-mother/c-grand-to-hdf5/internal/xcnv"

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/grand-mother/c-grand-to-hdf5/grandbin"
	"github.com/grand-mother/c-grand-to-hdf5/monitor"
	"github.com/grand-mother/c-grand-to-hdf5/station"
)

// Sink persists decoded GRAND data.
type Sink interface {
	// WriteRunHeader writes the file header of the run.
	WriteRunHeader(hdr grandbin.FileHeader) error
	// WriteEvent writes a decoded event.
	// A failing WriteEvent may leave a partially written event in the
	// output, e.g. the header trees of an event whose traces could not
	// be written.
	WriteEvent(evt *grandbin.Event) error
	// WriteMonitor appends a monitoring record for the provided antenna.
	WriteMonitor(ant station.Entry, rec monitor.Record) error
	// WriteDetectors writes the description of the field, together with
	// the last electronics settings seen for each antenna (by 0-based index).
	WriteDetectors(dir *station.Directory, elecs map[int]grandbin.Electronics) error
	// Close flushes and closes the sink.
	Close() error
}

// Options configures a conversion.
type Options struct {
	Strict bool // report trailing data after the last sub-record of an event
	Mmap   bool // read binary files through a memory map
}

// Stats summarizes a conversion.
type Stats struct {
	Run       uint32
	Events    int   // number of decoded events
	Records   int   // number of decoded sub-records
	Unknown   int   // number of sub-records from unknown stations
	Anomalies int   // number of structural anomalies
	Trailing  int   // number of events with words left after their last decoded sub-record
	TrailingW int   // number of 16-bit words left after the last decoded sub-records
	Skipped   int   // number of events that could not be decoded
	Failed    int   // number of events the sink could not write
	Truncated bool  // whether the input ended with a truncated block
	Bytes     int64 // number of bytes read

	Monitor    int // number of monitoring records written
	MonSkipped int // number of monitoring lines or records not written
}

// Clean returns whether the conversion went through without any problem.
// Words left unread after the last decoded sub-record of an event make a
// conversion unclean, even when they are not reported as anomalies.
func (st Stats) Clean() bool {
	return st.Anomalies == 0 && st.Trailing == 0 &&
		st.Skipped == 0 && st.Failed == 0 &&
		!st.Truncated && st.MonSkipped == 0
}

func (st Stats) String() string {
	return fmt.Sprintf(
		"run %d: %s events, %s records (unknown=%d, anomalies=%d, trailing=%d events/%d words, skipped=%d, failed=%d, truncated=%v), %s monitoring records (skipped=%d), %s read",
		st.Run,
		humanize.Comma(int64(st.Events)), humanize.Comma(int64(st.Records)),
		st.Unknown, st.Anomalies, st.Trailing, st.TrailingW,
		st.Skipped, st.Failed, st.Truncated,
		humanize.Comma(int64(st.Monitor)), st.MonSkipped,
		humanize.Bytes(uint64(st.Bytes)),
	)
}
