// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package station describes the antenna field of a GRAND detector.
package station // import "github.com/grand-mother/c-grand-to-hdf5/station"

import (
	"fmt"

	"github.com/grand-mother/c-grand-to-hdf5/grandbin"
	"gonum.org/v1/gonum/stat"
)

// Entry describes one antenna of the field.
type Entry struct {
	ID        int16  // antenna identifier
	ElecID    uint16 // electronics identifier, as embedded in sub-records
	Longitude float64
	Latitude  float64
	Altitude  float32
	X, Y      float32 // planar position relative to the field center, in meters
	AntModel  string
	ElecModel string
	Channels  [grandbin.NumChannels]grandbin.Axis
}

// Center is the center of the antenna field.
type Center struct {
	Longitude float64
	Latitude  float64
	Altitude  float32
	X, Y      float32
}

// Directory is an immutable table of antennas, indexed by their
// electronics identifier.
type Directory struct {
	entries []Entry
	center  Center
	index   map[uint8]int
}

// New creates a directory from the provided entries.
// The planar position of each entry is computed relative to the mean
// position of all the entries.
func New(entries []Entry) (*Directory, error) {
	dir := &Directory{
		entries: make([]Entry, len(entries)),
		index:   make(map[uint8]int, len(entries)),
	}
	copy(dir.entries, entries)

	for i, e := range dir.entries {
		if e.ElecID > 0xff {
			return nil, fmt.Errorf(
				"station: antenna %d: invalid electronics id %d",
				e.ID, e.ElecID,
			)
		}
		id := uint8(e.ElecID)
		if j, dup := dir.index[id]; dup {
			return nil, fmt.Errorf(
				"station: antennas %d and %d share electronics id %d",
				dir.entries[j].ID, e.ID, id,
			)
		}
		dir.index[id] = i
	}

	if len(dir.entries) == 0 {
		return dir, nil
	}

	var (
		lat = make([]float64, len(dir.entries))
		lon = make([]float64, len(dir.entries))
		alt = make([]float64, len(dir.entries))
	)
	for i, e := range dir.entries {
		lat[i] = e.Latitude
		lon[i] = e.Longitude
		alt[i] = float64(e.Altitude)
	}
	dir.center = Center{
		Latitude:  stat.Mean(lat, nil),
		Longitude: stat.Mean(lon, nil),
		Altitude:  float32(stat.Mean(alt, nil)),
	}

	for i := range dir.entries {
		e := &dir.entries[i]
		e.X, e.Y = Project(dir.center, e.Latitude, e.Longitude)
	}

	return dir, nil
}

// Len returns the number of antennas.
func (dir *Directory) Len() int { return len(dir.entries) }

// Entry returns the i-th antenna.
func (dir *Directory) Entry(i int) Entry { return dir.entries[i] }

// Entries returns a copy of all the antennas.
func (dir *Directory) Entries() []Entry {
	o := make([]Entry, len(dir.entries))
	copy(o, dir.entries)
	return o
}

// Center returns the center of the field.
func (dir *Directory) Center() Center { return dir.center }

// Lookup returns the 0-based index and description of the antenna
// read out by the electronics with the provided identifier.
func (dir *Directory) Lookup(id uint8) (int, Entry, bool) {
	i, ok := dir.index[id]
	if !ok {
		return -1, Entry{}, false
	}
	return i, dir.entries[i], true
}

// Stations returns a view of the directory suitable for decoding events.
func (dir *Directory) Stations() grandbin.Stations {
	return stations{dir}
}

type stations struct {
	dir *Directory
}

func (st stations) Len() int { return st.dir.Len() }

func (st stations) Lookup(id uint8) (int, [grandbin.NumChannels]grandbin.Axis, bool) {
	i, e, ok := st.dir.Lookup(id)
	return i, e.Channels, ok
}

var _ grandbin.Stations = (*stations)(nil)
