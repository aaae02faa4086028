// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/grand-mother/c-grand-to-hdf5/grandbin"
	"github.com/grand-mother/c-grand-to-hdf5/monitor"
	"github.com/grand-mother/c-grand-to-hdf5/station"
)

// Convert decodes the GRAND binary stream r and writes its content to sink.
//
// Events that can not be decoded, or that the sink fails to write, are
// logged and skipped. Words left after the last decoded sub-record of an
// event are logged and counted in Stats.Trailing. A truncated last block ends the conversion.
// Convert writes the field description after the last event. It does
// not close the sink.
func Convert(sink Sink, r io.Reader, dir *station.Directory, opts Options, msg *log.Logger) (Stats, error) {
	var (
		stats Stats
		rr    = grandbin.NewReader(r)
		dec   = grandbin.NewDecoder(dir.Stations(), grandbin.WithStrictEnd(opts.Strict))
		evt   grandbin.Event
		elecs = make(map[int]grandbin.Electronics, dir.Len())
	)

	hdr, err := rr.ReadFileHeader()
	if err != nil {
		return stats, fmt.Errorf("xcnv: could not read file header: %w", err)
	}
	stats.Run = hdr.RunNr

	err = sink.WriteRunHeader(hdr)
	if err != nil {
		return stats, fmt.Errorf("xcnv: could not write run header: %w", err)
	}

loop:
	for i := 0; ; i++ {
		if i%1000 == 0 {
			msg.Printf("processing evt %d...", i)
		}
		raw, err := rr.ReadBlock()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				break loop
			case errors.Is(err, grandbin.ErrTruncatedBlock):
				msg.Printf("could not read event block %d: %+v", i, err)
				stats.Truncated = true
				break loop
			default:
				stats.Bytes = rr.N()
				return stats, fmt.Errorf("xcnv: could not read event block %d: %w", i, err)
			}
		}

		err = dec.Decode(raw, &evt)
		if err != nil {
			msg.Printf("could not decode event block %d: %+v", i, err)
			stats.Skipped++
			continue
		}

		stats.Events++
		stats.Records += len(evt.Records)
		stats.Unknown += evt.Unknown
		stats.Anomalies += len(evt.Anomalies)
		for _, err := range evt.Anomalies {
			msg.Printf("%+v", err)
		}
		if evt.Trailing > 0 {
			msg.Printf(
				"event %d: %d words left after %d decoded sub-records (declared=%d)",
				evt.Header.EventNr, evt.Trailing, len(evt.Records), evt.Header.LSCount,
			)
			stats.Trailing++
			stats.TrailingW += evt.Trailing
		}
		for _, rec := range evt.Records {
			elecs[rec.Antenna-1] = rec.Elec
		}

		err = sink.WriteEvent(&evt)
		if err != nil {
			msg.Printf("could not write event %d: %+v", evt.Header.EventNr, err)
			stats.Failed++
		}
	}
	stats.Bytes = rr.N()

	err = sink.WriteDetectors(dir, elecs)
	if err != nil {
		return stats, fmt.Errorf("xcnv: could not write detectors description: %w", err)
	}

	return stats, nil
}

// FillMonitor reads the monitoring log r and routes each record to the
// antenna read out by the record's electronics.
// FillMonitor returns the number of records written and skipped.
func FillMonitor(sink Sink, r io.Reader, dir *station.Directory, msg *log.Logger) (n, skip int, err error) {
	mr := monitor.NewReader(r)
	for mr.Next() {
		rec := mr.Record()
		if rec.ElecID > 0xff {
			skip++
			continue
		}
		_, ant, ok := dir.Lookup(uint8(rec.ElecID))
		if !ok {
			skip++
			continue
		}
		err = sink.WriteMonitor(ant, rec)
		if err != nil {
			return n, skip, fmt.Errorf("xcnv: could not write monitoring record for antenna %d: %w", ant.ID, err)
		}
		n++
	}
	if err := mr.Err(); err != nil {
		return n, skip, fmt.Errorf("xcnv: could not read monitoring log: %w", err)
	}

	bad, why := mr.Skipped()
	if bad > 0 {
		msg.Printf("skipped %d malformed monitoring lines (last: %v)", bad, why)
	}
	return n, skip + bad, nil
}
