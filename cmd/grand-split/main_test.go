// Copyright 2021 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/grand-mother/c-grand-to-hdf5/grandbin"
)

func TestSplit(t *testing.T) {
	tmpdir, err := os.MkdirTemp("", "grand-split-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpdir)

	oname := filepath.Join(tmpdir, "out.bin")

	var (
		buf  = new(bytes.Buffer)
		enc  = grandbin.NewEncoder(buf)
		fhdr = grandbin.FileHeader{RunNr: 42, RunMode: 1, Additional: []uint32{3}}
	)
	err = enc.EncodeFileHeader(fhdr)
	if err != nil {
		t.Fatal(err)
	}

	record := func(id uint16, v int16) []byte {
		return grandbin.AppendRecord(nil, grandbin.Record{
			LS:     grandbin.LSHeader{LSID: id},
			Traces: []grandbin.Trace{{Channel: 0, Samples: []int16{v, v + 1}}},
		})
	}

	events := []struct {
		hdr  grandbin.EventHeader
		subs [][]byte
	}{
		{
			hdr:  grandbin.EventHeader{RunNr: 42, EventNr: 1},
			subs: [][]byte{record(1, 10), record(2, 20)},
		},
		{
			hdr:  grandbin.EventHeader{RunNr: 42, EventNr: 2},
			subs: [][]byte{record(2, 30), record(2, 40)},
		},
	}
	for _, evt := range events {
		err = enc.EncodeEvent(evt.hdr, evt.subs...)
		if err != nil {
			t.Fatal(err)
		}
	}

	fname := filepath.Join(tmpdir, "run.bin")
	err = os.WriteFile(fname, buf.Bytes(), 0644)
	if err != nil {
		t.Fatalf("could not write input file: %+v", err)
	}

	xmain([]string{"-o", oname, fname})

	for _, tc := range []struct {
		fname string
		want  map[uint32][][]byte
	}{
		{
			fname: filepath.Join(tmpdir, "out-001.bin"),
			want: map[uint32][][]byte{
				1: {events[0].subs[0]},
			},
		},
		{
			fname: filepath.Join(tmpdir, "out-002.bin"),
			want: map[uint32][][]byte{
				1: {events[0].subs[1]},
				2: events[1].subs,
			},
		},
	} {
		t.Run(filepath.Base(tc.fname), func(t *testing.T) {
			f, err := os.Open(tc.fname)
			if err != nil {
				t.Fatalf("could not open split file: %+v", err)
			}
			defer f.Close()

			r := grandbin.NewReader(f)
			hdr, err := r.ReadFileHeader()
			if err != nil {
				t.Fatalf("could not read file header: %+v", err)
			}
			if got, want := hdr.RunNr, fhdr.RunNr; got != want {
				t.Fatalf("invalid run number: got=%d, want=%d", got, want)
			}

			got := make(map[uint32][][]byte)
			for {
				raw, err := r.ReadBlock()
				if err != nil {
					break
				}
				ehdr, subs, err := grandbin.SubRecords(raw)
				if err != nil {
					t.Fatalf("could not decode event: %+v", err)
				}
				if got, want := int(ehdr.LSCount), len(subs); got != want {
					t.Fatalf("invalid station count: got=%d, want=%d", got, want)
				}
				got[ehdr.EventNr] = subs
			}

			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid split content")
			}
		})
	}
}

func TestOutFileFrom(t *testing.T) {
	for _, tc := range []struct {
		fname string
		id    uint8
		want  string
	}{
		{"out.bin", 1, "out-001.bin"},
		{"dir.v2/out.bin", 42, "dir.v2/out-042.bin"},
		{"out", 255, "out-255"},
	} {
		t.Run(tc.want, func(t *testing.T) {
			if got, want := outFileFrom(tc.fname, tc.id), tc.want; got != want {
				t.Fatalf("invalid output file: got=%q, want=%q", got, want)
			}
		})
	}
}
