// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package station

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/grand-mother/c-grand-to-hdf5/grandbin"
)

// LoadField loads the field configuration file fname and creates the
// corresponding directory.
func LoadField(fname string) (*Directory, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("station: could not open field file: %w", err)
	}
	defer f.Close()

	entries, err := ReadField(f)
	if err != nil {
		return nil, fmt.Errorf("station: could not read field file %q: %w", fname, err)
	}

	return New(entries)
}

// ReadField reads a field configuration from r.
//
// Each non-comment line describes one antenna:
//
//	id elec_id longitude latitude altitude ant_model elec_model ch0 ch1 ch2 ch3
//
// Channel tokens other than X, Y or Z leave the channel unmapped.
func ReadField(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		sc      = bufio.NewScanner(r)
		iline   = 0
	)
	for sc.Scan() {
		iline++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := parseEntry(line)
		if err != nil {
			return nil, fmt.Errorf("station: line %d: %w", iline, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("station: could not scan field configuration: %w", err)
	}
	return entries, nil
}

func parseEntry(line string) (Entry, error) {
	var (
		e    Entry
		toks = strings.Fields(line)
	)
	if len(toks) < 7 {
		return e, fmt.Errorf("invalid field line %q (got %d fields, want>=7)", line, len(toks))
	}

	id, err := strconv.ParseInt(toks[0], 10, 16)
	if err != nil {
		return e, fmt.Errorf("could not parse antenna id %q: %w", toks[0], err)
	}
	eid, err := strconv.ParseUint(toks[1], 10, 16)
	if err != nil {
		return e, fmt.Errorf("could not parse electronics id %q: %w", toks[1], err)
	}
	lon, err := strconv.ParseFloat(toks[2], 64)
	if err != nil {
		return e, fmt.Errorf("could not parse longitude %q: %w", toks[2], err)
	}
	lat, err := strconv.ParseFloat(toks[3], 64)
	if err != nil {
		return e, fmt.Errorf("could not parse latitude %q: %w", toks[3], err)
	}
	alt, err := strconv.ParseFloat(toks[4], 32)
	if err != nil {
		return e, fmt.Errorf("could not parse altitude %q: %w", toks[4], err)
	}

	e = Entry{
		ID:        int16(id),
		ElecID:    uint16(eid),
		Longitude: lon,
		Latitude:  lat,
		Altitude:  float32(alt),
		AntModel:  toks[5],
		ElecModel: toks[6],
	}
	for i, tok := range toks[7:] {
		if i >= len(e.Channels) {
			break
		}
		e.Channels[i] = grandbin.ParseAxis(tok)
	}
	return e, nil
}

// WriteField writes the field configuration of dir to w, in the format
// understood by ReadField.
func WriteField(w io.Writer, dir *Directory) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# id elec_id longitude latitude altitude ant_model elec_model ch0 ch1 ch2 ch3\n")
	for _, e := range dir.entries {
		fmt.Fprintf(
			bw, "%d %d %s %s %s %s %s",
			e.ID, e.ElecID,
			strconv.FormatFloat(e.Longitude, 'g', -1, 64),
			strconv.FormatFloat(e.Latitude, 'g', -1, 64),
			strconv.FormatFloat(float64(e.Altitude), 'g', -1, 32),
			e.AntModel, e.ElecModel,
		)
		for _, ax := range e.Channels {
			fmt.Fprintf(bw, " %v", ax)
		}
		fmt.Fprintf(bw, "\n")
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("station: could not write field configuration: %w", err)
	}
	return nil
}
