// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grandbin

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Encoder writes GRAND binary data to an output stream.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, 0, 1024),
	}
}

// EncodeFileHeader writes the file header block.
// The header length is derived from the number of additional words,
// and at least one additional word is written.
func (enc *Encoder) EncodeFileHeader(hdr FileHeader) error {
	add := hdr.Additional
	if len(add) == 0 {
		add = []uint32{0}
	}
	words := []uint32{
		uint32((FileHdrAdditional+len(add)-1) * intSize),
		hdr.RunNr,
		hdr.RunMode,
		hdr.Serial,
		hdr.FirstEvent,
		hdr.FirstEventSec,
		hdr.LastEvent,
		hdr.LastEventSec,
	}
	words = append(words, add...)

	enc.buf = enc.buf[:0]
	for _, v := range words {
		enc.buf = binary.LittleEndian.AppendUint32(enc.buf, v)
	}
	enc.write(enc.buf)
	if enc.err != nil {
		return fmt.Errorf("grandbin: could not write file header: %w", enc.err)
	}
	return nil
}

// EncodeEvent writes an event block holding the provided sub-records.
// The event length and station count of hdr are derived from subs.
func (enc *Encoder) EncodeEvent(hdr EventHeader, subs ...[]byte) error {
	size := EventHeaderSize
	for _, sub := range subs {
		size += len(sub)
	}
	hdr.Length = uint32(size)
	hdr.LSCount = uint32(len(subs))

	enc.buf = appendEventHeader(enc.buf[:0], hdr)
	for _, sub := range subs {
		enc.buf = append(enc.buf, sub...)
	}
	// the block size counts the event length, excluding its own word.
	enc.buf = append(enc.buf, 0, 0, 0, 0)
	enc.write(enc.buf)
	if enc.err != nil {
		return fmt.Errorf("grandbin: could not write event %d: %w", hdr.EventNr, enc.err)
	}
	return nil
}

// EncodeRecords writes the event evt, re-encoding its decoded records.
func (enc *Encoder) EncodeRecords(evt *Event) error {
	subs := make([][]byte, len(evt.Records))
	for i, rec := range evt.Records {
		subs[i] = AppendRecord(nil, rec)
	}
	return enc.EncodeEvent(evt.Header, subs...)
}

func (enc *Encoder) write(p []byte) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
}

func appendEventHeader(dst []byte, hdr EventHeader) []byte {
	le := binary.LittleEndian
	dst = le.AppendUint32(dst, hdr.Length)
	dst = le.AppendUint32(dst, hdr.RunNr)
	dst = le.AppendUint32(dst, hdr.EventNr)
	dst = le.AppendUint32(dst, hdr.T3EventNr)
	dst = le.AppendUint32(dst, hdr.FirstLS)
	dst = le.AppendUint32(dst, hdr.Second)
	dst = le.AppendUint32(dst, hdr.NanoSec)
	dst = le.AppendUint16(dst, hdr.EventType)
	dst = le.AppendUint16(dst, hdr.EventVersion)
	dst = le.AppendUint32(dst, hdr.AD1)
	dst = le.AppendUint32(dst, hdr.AD2)
	dst = le.AppendUint32(dst, hdr.LSCount)
	return dst
}

// AppendRecord appends the encoded sub-record rec to dst.
//
// The trace lengths of a channel carrying a trace are derived from its
// samples. Channels without a trace keep the length declared in
// rec.Elec and are zero-filled.
// The sub-record length is derived as well.
func AppendRecord(dst []byte, rec Record) []byte {
	var (
		elec = rec.Elec
		data [NumChannels][]int16
	)
	for _, trc := range rec.Traces {
		data[trc.Channel] = trc.Samples
		elec.TraceLengths[trc.Channel] = uint16(len(trc.Samples))
	}

	nsamples := 0
	for _, n := range elec.TraceLengths {
		nsamples += int(n)
	}
	size := LSHeaderSize + ElectronicsSize + nsamples*shortSize

	ls := rec.LS
	ls.Length = uint16(size / shortSize)

	le := binary.LittleEndian
	dst = le.AppendUint16(dst, ls.Length)
	dst = le.AppendUint16(dst, ls.EventNr)
	dst = le.AppendUint16(dst, ls.LSID)
	dst = le.AppendUint16(dst, ls.HeaderLength)
	dst = le.AppendUint32(dst, ls.GPSSeconds)
	dst = le.AppendUint32(dst, ls.GPSNanoSec)
	dst = le.AppendUint16(dst, ls.TriggerFlag)
	dst = le.AppendUint16(dst, ls.TriggerPos)
	dst = le.AppendUint16(dst, ls.SamplingFreq)
	dst = le.AppendUint16(dst, ls.ChannelMask)
	dst = le.AppendUint16(dst, ls.ADCResolution)
	dst = le.AppendUint16(dst, ls.TraceLength)
	dst = le.AppendUint16(dst, ls.Version)

	dst = appendElectronics(dst, elec)
	for i, n := range elec.TraceLengths {
		if data[i] == nil {
			dst = append(dst, make([]byte, int(n)*shortSize)...)
			continue
		}
		for _, v := range data[i] {
			dst = le.AppendUint16(dst, uint16(v))
		}
	}
	return dst
}
