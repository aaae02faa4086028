// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package monitor reads the ASCII monitoring logs of a GRAND run.
package monitor // import "github.com/grand-mother/c-grand-to-hdf5/monitor"

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// NumRates is the number of trigger rates in a monitoring record.
const NumRates = 5

const numFields = 8 + NumRates

// Record is a periodic monitoring record of one station.
type Record struct {
	ElecID      uint16
	ElecSerial  uint16
	Firmware    uint16
	Second      uint32
	Rate        [NumRates]uint16
	Temperature float32
	Voltage     float32
	Current     float32
	Status      uint16
}

// Reader reads monitoring records, one per line.
//
// Malformed lines are skipped.
type Reader struct {
	sc    *bufio.Scanner
	rec   Record
	err   error
	skip  int
	iline int
	last  error
}

// NewReader returns a new monitoring log reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{sc: bufio.NewScanner(r)}
}

// Next advances to the next record, which is then available via Record.
// Next returns false at the end of the input or on an I/O error.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	for r.sc.Scan() {
		r.iline++
		line := strings.TrimSpace(r.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := Parse(line)
		if err != nil {
			r.skip++
			r.last = fmt.Errorf("monitor: line %d: %w", r.iline, err)
			continue
		}
		r.rec = rec
		return true
	}
	if err := r.sc.Err(); err != nil {
		r.err = fmt.Errorf("monitor: could not read monitoring log: %w", err)
	}
	return false
}

// Record returns the current record.
func (r *Reader) Record() Record { return r.rec }

// Err returns the first I/O error encountered while reading.
func (r *Reader) Err() error { return r.err }

// Skipped returns the number of malformed lines skipped so far, and the
// reason why the last one was skipped.
func (r *Reader) Skipped() (int, error) { return r.skip, r.last }

// Parse parses a monitoring record:
//
//	elec_id elec_serial firmware second rate0 rate1 rate2 rate3 rate4 temperature voltage current status
func Parse(line string) (Record, error) {
	var (
		rec  Record
		toks = strings.Fields(line)
	)
	if got, want := len(toks), numFields; got != want {
		return rec, fmt.Errorf("invalid number of fields (got=%d, want=%d)", got, want)
	}

	p := parser{toks: toks}
	rec.ElecID = p.u16("electronics id")
	rec.ElecSerial = p.u16("electronics serial")
	rec.Firmware = p.u16("firmware")
	rec.Second = p.u32("second")
	for i := range rec.Rate {
		rec.Rate[i] = p.u16("rate")
	}
	rec.Temperature = p.f32("temperature")
	rec.Voltage = p.f32("voltage")
	rec.Current = p.f32("current")
	rec.Status = p.u16("status")

	return rec, p.err
}

type parser struct {
	toks []string
	i    int
	err  error
}

func (p *parser) next() string {
	tok := p.toks[p.i]
	p.i++
	return tok
}

func (p *parser) unsigned(name string, bits int) uint64 {
	tok := p.next()
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(tok, 10, bits)
	if err != nil {
		p.err = fmt.Errorf("could not parse %s %q: %w", name, tok, err)
	}
	return v
}

func (p *parser) u16(name string) uint16 { return uint16(p.unsigned(name, 16)) }
func (p *parser) u32(name string) uint32 { return uint32(p.unsigned(name, 32)) }

func (p *parser) f32(name string) float32 {
	tok := p.next()
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		p.err = fmt.Errorf("could not parse %s %q: %w", name, tok, err)
	}
	return float32(v)
}
