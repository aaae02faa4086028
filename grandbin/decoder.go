// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grandbin

import (
	"encoding/binary"

	"golang.org/x/xerrors"
)

// Stations is the read-only station directory used to attribute
// sub-records to antennas.
type Stations interface {
	// Len returns the number of antennas in the directory.
	Len() int
	// Lookup returns the 0-based antenna index and the channel to axis
	// mapping of the station with the given electronics identifier.
	Lookup(id uint8) (int, [NumChannels]Axis, bool)
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithStrictEnd configures whether reaching the declared station count
// before the end of the event is reported as an anomaly.
func WithStrictEnd(v bool) Option {
	return func(dec *Decoder) {
		dec.strict = v
	}
}

// Decoder decodes event blocks into records.
//
// A Decoder is not safe for concurrent use. Several decoders may share
// the same Stations.
type Decoder struct {
	dir    Stations
	strict bool
	uses   []int // per-antenna use counters, reset for each event
}

// NewDecoder creates a decoder that attributes sub-records using dir.
func NewDecoder(dir Stations, opts ...Option) *Decoder {
	dec := &Decoder{
		dir:  dir,
		uses: make([]int, dir.Len()),
	}
	for _, opt := range opts {
		opt(dec)
	}
	return dec
}

// Decode decodes the event block raw, count included, into evt.
//
// Structural problems confined to a sub-record, or to the tail of the
// event, are reported in evt.Anomalies. Decode only fails when the event
// header itself can not be decoded.
//
// Decode reuses the storage of evt.Records and evt.Anomalies: slices
// retained from a previous call are overwritten.
//
// A sub-record attributed to an antenna takes its use number even when
// its content fails to decode, so the next record of that antenna keeps
// the number it has in the stream.
func (dec *Decoder) Decode(raw []byte, evt *Event) error {
	hdr, err := DecodeEventHeader(raw)
	if err != nil {
		return err
	}

	evt.Header = hdr
	evt.Records = evt.Records[:0]
	evt.Unknown = 0
	evt.Consumed = 0
	evt.Trailing = 0
	evt.Anomalies = evt.Anomalies[:0]

	for i := range dec.uses {
		dec.uses[i] = 0
	}

	end := hdr.End()
	if lim := len(raw) / shortSize; end > lim {
		evt.Anomalies = append(evt.Anomalies, xerrors.Errorf(
			"grandbin: event %d declares %d words, block holds %d: %w",
			hdr.EventNr, end, lim, ErrBoundary,
		))
		end = lim
	}
	if end < EventLS {
		evt.Anomalies = append(evt.Anomalies, xerrors.Errorf(
			"grandbin: event %d declares %d words, header holds %d: %w",
			hdr.EventNr, end, EventLS, ErrBoundary,
		))
		end = EventLS
	}

	var (
		cur = EventLS
		n   = 0 // number of sub-records attributed to an antenna
	)
loop:
	for cur < end && n < int(hdr.LSCount) {
		sub, err := subRecord(raw, cur, end)
		if err != nil {
			evt.Anomalies = append(evt.Anomalies, xerrors.Errorf(
				"grandbin: event %d: %w", hdr.EventNr, err,
			))
			break loop
		}
		cur += len(sub) / shortSize

		id := uint8(binary.LittleEndian.Uint16(sub[lsID:]) & 0xff)
		iant, axes, ok := dec.dir.Lookup(id)
		if !ok {
			evt.Unknown++
			continue
		}
		n++
		dec.uses[iant]++

		rec, err := decodeRecord(sub, axes)
		if err != nil {
			evt.Anomalies = append(evt.Anomalies, xerrors.Errorf(
				"grandbin: event %d: station %d: %w", hdr.EventNr, id, err,
			))
			continue
		}
		rec.Antenna = iant + 1
		rec.Use = dec.uses[iant]
		evt.Records = append(evt.Records, rec)
	}

	evt.Consumed = cur - EventLS
	evt.Trailing = end - cur
	if dec.strict && evt.Trailing > 0 && n >= int(hdr.LSCount) {
		evt.Anomalies = append(evt.Anomalies, xerrors.Errorf(
			"grandbin: event %d: %d words after %d sub-records: %w",
			hdr.EventNr, evt.Trailing, n, ErrTrailingData,
		))
	}

	return nil
}

// DecodeEventHeader decodes the fixed header of the event block raw.
func DecodeEventHeader(raw []byte) (EventHeader, error) {
	var hdr EventHeader
	if len(raw) < EventHeaderSize {
		return hdr, xerrors.Errorf(
			"grandbin: could not decode event header (len=%d): %w",
			len(raw), ErrEventTooShort,
		)
	}

	le := binary.LittleEndian
	hdr.Length = le.Uint32(raw[evtHdrLength:])
	hdr.RunNr = le.Uint32(raw[evtHdrRunNr:])
	hdr.EventNr = le.Uint32(raw[evtHdrEventNr:])
	hdr.T3EventNr = le.Uint32(raw[evtHdrT3EventNr:])
	hdr.FirstLS = le.Uint32(raw[evtHdrFirstLS:])
	hdr.Second = le.Uint32(raw[evtHdrSec:])
	hdr.NanoSec = le.Uint32(raw[evtHdrNanoSec:])
	hdr.EventType = le.Uint16(raw[evtHdrType:])
	hdr.EventVersion = le.Uint16(raw[evtHdrVersion:])
	hdr.AD1 = le.Uint32(raw[evtHdrAD1:])
	hdr.AD2 = le.Uint32(raw[evtHdrAD2:])
	hdr.LSCount = le.Uint32(raw[evtHdrLSCount:])
	return hdr, nil
}

// SubRecords returns views on all the sub-records of the event block raw,
// regardless of the station they come from.
// SubRecords stops at the first sub-record crossing the event boundary
// and returns the sub-records collected so far together with the error.
func SubRecords(raw []byte) (EventHeader, [][]byte, error) {
	hdr, err := DecodeEventHeader(raw)
	if err != nil {
		return hdr, nil, err
	}

	var (
		subs [][]byte
		cur  = EventLS
		end  = hdr.End()
	)
	if lim := len(raw) / shortSize; end > lim {
		end = lim
	}
	for cur < end {
		sub, err := subRecord(raw, cur, end)
		if err != nil {
			return hdr, subs, xerrors.Errorf("grandbin: event %d: %w", hdr.EventNr, err)
		}
		subs = append(subs, sub)
		cur += len(sub) / shortSize
	}
	return hdr, subs, nil
}

// subRecord returns the sub-record starting at word cur, provided it
// fits before word end.
func subRecord(raw []byte, cur, end int) ([]byte, error) {
	if (cur*shortSize + lsWalkSize) > end*shortSize {
		return nil, &BoundaryError{Cursor: cur, Length: -1, End: end}
	}
	beg := cur * shortSize
	n := int(binary.LittleEndian.Uint16(raw[beg+lsLength:]))
	if n == 0 || cur+n > end {
		return nil, &BoundaryError{Cursor: cur, Length: n, End: end}
	}
	return raw[beg : beg+n*shortSize], nil
}

// DecodeLSHeader decodes the header of the sub-record sub.
func DecodeLSHeader(sub []byte) (LSHeader, error) {
	var hdr LSHeader
	if len(sub) < LSHeaderSize {
		return hdr, &ShortBlobError{Field: "sub-record header", Off: 0, Size: LSHeaderSize, Len: len(sub)}
	}

	le := binary.LittleEndian
	hdr = LSHeader{
		Length:        le.Uint16(sub[lsLength:]),
		EventNr:       le.Uint16(sub[lsEventNr:]),
		LSID:          le.Uint16(sub[lsID:]),
		HeaderLength:  le.Uint16(sub[lsHeaderLength:]),
		GPSSeconds:    le.Uint32(sub[lsGPSSeconds:]),
		GPSNanoSec:    le.Uint32(sub[lsGPSNanoSec:]),
		TriggerFlag:   le.Uint16(sub[lsTriggerFlag:]),
		TriggerPos:    le.Uint16(sub[lsTriggerPos:]),
		SamplingFreq:  le.Uint16(sub[lsSamplingFreq:]),
		ChannelMask:   le.Uint16(sub[lsChannelMask:]),
		ADCResolution: le.Uint16(sub[lsADCResolution:]),
		TraceLength:   le.Uint16(sub[lsTraceLength:]),
		Version:       le.Uint16(sub[lsVersion:]),
	}
	return hdr, nil
}

func decodeRecord(sub []byte, axes [NumChannels]Axis) (Record, error) {
	var (
		rec Record
		err error
	)
	rec.LS, err = DecodeLSHeader(sub)
	if err != nil {
		return rec, err
	}
	rec.StationID = rec.LS.StationID()

	blob := sub[LSHeaderSize:]
	rec.Elec, err = DecodeElectronics(blob)
	if err != nil {
		return rec, err
	}

	rec.Traces, err = ExtractTraces(blob, rec.Elec.TraceLengths, axes)
	if err != nil {
		return rec, err
	}
	return rec, nil
}
