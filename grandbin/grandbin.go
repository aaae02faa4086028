// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package grandbin holds functions to decode GRAND binary data files.
//
// A file is a sequence of length-prefixed blocks: a file header followed
// by events. Each event holds a fixed header and a variable number of
// station sub-records, each carrying an electronics blob and up to
// NumChannels ADC traces.
package grandbin // import "github.com/grand-mother/c-grand-to-hdf5/grandbin"

import (
	"fmt"
	"strings"
)

// FileHeader describes a GRAND binary file.
type FileHeader struct {
	Length        uint32 // length of the header block, in bytes
	RunNr         uint32
	RunMode       uint32
	Serial        uint32
	FirstEvent    uint32
	FirstEventSec uint32
	LastEvent     uint32
	LastEventSec  uint32

	Additional []uint32 // additional words, not yet defined
}

// EventHeader is the fixed header of an event block.
type EventHeader struct {
	Length       uint32 // length of the event block, in bytes
	RunNr        uint32
	EventNr      uint32
	T3EventNr    uint32
	FirstLS      uint32
	Second       uint32
	NanoSec      uint32
	EventType    uint16
	EventVersion uint16
	AD1          uint32
	AD2          uint32
	LSCount      uint32 // number of stations in the event
}

// End returns the word offset at which the station sub-records end.
func (hdr EventHeader) End() int {
	return int(hdr.Length / shortSize)
}

// LSHeader is the header of a station (local station) sub-record.
type LSHeader struct {
	Length        uint16 // length of the sub-record, in 16-bit words
	EventNr       uint16
	LSID          uint16
	HeaderLength  uint16
	GPSSeconds    uint32
	GPSNanoSec    uint32
	TriggerFlag   uint16
	TriggerPos    uint16
	SamplingFreq  uint16
	ChannelMask   uint16
	ADCResolution uint16
	TraceLength   uint16
	Version       uint16
}

// StationID returns the station identifier embedded in the sub-record.
func (hdr LSHeader) StationID() uint8 {
	return uint8(hdr.LSID & 0xff)
}

// Axis is a measurement axis a channel may be connected to.
type Axis uint8

const (
	AxisNone Axis = iota
	AxisX
	AxisY
	AxisZ
)

// ParseAxis returns the axis named by s (X, Y or Z, any case).
// Anything else is AxisNone.
func ParseAxis(s string) Axis {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return AxisX
	case "Y":
		return AxisY
	case "Z":
		return AxisZ
	}
	return AxisNone
}

func (ax Axis) String() string {
	switch ax {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	}
	return "-"
}

// Name returns the name of the trace dataset for that axis.
func (ax Axis) Name() string {
	if ax == AxisNone {
		return ""
	}
	return "ADC_" + ax.String()
}

// Trace is one channel's ADC waveform.
type Trace struct {
	Axis    Axis
	Channel int     // physical channel, in [0, NumChannels)
	Offset  int     // offset of the first sample, in samples from the ADC start
	Samples []int16 // never nil, possibly empty
}

// Name returns the name of the trace dataset.
func (tr Trace) Name() string { return tr.Axis.Name() }

// Record is a decoded station sub-record attributed to an antenna.
type Record struct {
	Antenna   int // 1-based index of the antenna in the station directory
	Use       int // number of records attributed to that antenna so far in the event
	StationID uint8

	LS     LSHeader
	Elec   Electronics
	Traces []Trace
}

// Name returns the name under which the record's traces are stored.
func (rec Record) Name() string {
	if rec.Use <= 1 {
		return fmt.Sprintf("Traces_%d", rec.Antenna)
	}
	return fmt.Sprintf("Traces_Antenna_%d_%d", rec.Antenna, rec.Use)
}

// Trace returns the trace for the given axis, if any.
func (rec Record) Trace(ax Axis) (Trace, bool) {
	for _, tr := range rec.Traces {
		if tr.Axis == ax {
			return tr, true
		}
	}
	return Trace{}, false
}

// Event is a decoded event block.
type Event struct {
	Header  EventHeader
	Records []Record

	Unknown   int     // number of sub-records from stations not in the directory
	Consumed  int     // number of 16-bit words walked past the event header
	Trailing  int     // number of 16-bit words left before the end of the event
	Anomalies []error // structural problems, scoped to sub-records or to the event
}
