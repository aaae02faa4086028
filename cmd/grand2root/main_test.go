// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"compress/flate"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/grand-mother/c-grand-to-hdf5/grandbin"
	"github.com/grand-mother/c-grand-to-hdf5/internal/xcnv"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
)

const field = `1 11 86.1 42.9 1200 butterfly gp35 X Y Z -
2 12 86.2 43.0 1210 butterfly gp35 X - Z -
`

func newRun(t *testing.T, run uint32) []byte {
	t.Helper()

	var (
		buf = new(bytes.Buffer)
		enc = grandbin.NewEncoder(buf)
	)
	err := enc.EncodeFileHeader(grandbin.FileHeader{RunNr: run, Additional: []uint32{0}})
	if err != nil {
		t.Fatalf("could not encode file header: %+v", err)
	}

	for i, id := range []uint16{11, 12, 11} {
		rec := grandbin.Record{
			LS: grandbin.LSHeader{LSID: id},
			Traces: []grandbin.Trace{
				{Channel: 0, Samples: []int16{1, 2, 3}},
				{Channel: 2, Samples: []int16{4, 5, 6}},
			},
		}
		err = enc.EncodeEvent(
			grandbin.EventHeader{RunNr: run, EventNr: uint32(i + 1)},
			grandbin.AppendRecord(nil, rec),
		)
		if err != nil {
			t.Fatalf("could not encode event: %+v", err)
		}
	}
	return buf.Bytes()
}

func newBaseDir(t *testing.T, run uint32, seqs ...int) string {
	t.Helper()

	tmp, err := os.MkdirTemp("", "grand2root-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}

	err = os.Mkdir(filepath.Join(tmp, "AD"), 0755)
	if err != nil {
		t.Fatalf("could not create AD dir: %+v", err)
	}

	for _, seq := range seqs {
		err = os.WriteFile(xcnv.BinaryFile(tmp, int(run), seq), newRun(t, run), 0644)
		if err != nil {
			t.Fatalf("could not write binary file: %+v", err)
		}
	}

	err = os.WriteFile(filepath.Join(tmp, "field.cfg"), []byte(field), 0644)
	if err != nil {
		t.Fatalf("could not write field file: %+v", err)
	}
	return tmp
}

func TestProcess(t *testing.T) {
	tmp := newBaseDir(t, 7, 1, 2)
	defer os.RemoveAll(tmp)

	job := xcnv.Job{
		BaseDir: tmp,
		Run:     7,
		Seqs:    []int{1, 2},
		Output:  filepath.Join(tmp, "out.root"),
		Ext:     ".root",
	}

	err := process(job, filepath.Join(tmp, "field.cfg"), "", flate.BestSpeed)
	if err != nil {
		t.Fatalf("could not convert run: %+v", err)
	}

	for _, seq := range job.Seqs {
		oname := filepath.Join(tmp, fmt.Sprintf("out_%d.root", seq))
		f, err := groot.Open(oname)
		if err != nil {
			t.Fatalf("could not open ROOT file %q: %+v", oname, err)
		}
		defer f.Close()

		obj, err := riofs.Dir(f).Get("Run_7/Event_3/raw/Traces_1/ADC_Z")
		if err != nil {
			t.Fatalf("could not retrieve trace: %+v", err)
		}
		if got, want := obj.(rtree.Tree).Entries(), int64(1); got != want {
			t.Fatalf("invalid number of entries: got=%d, want=%d", got, want)
		}
	}
}

func TestXMain(t *testing.T) {
	tmp := newBaseDir(t, 8, 1)
	defer os.RemoveAll(tmp)

	oname := filepath.Join(tmp, "run.root")
	xmain([]string{"-o", oname, "-lvl=1", "-mmap", tmp, "8", "1"})

	_, err := os.Stat(oname)
	if err != nil {
		t.Fatalf("could not stat output file: %+v", err)
	}
}

func TestProcessMissingField(t *testing.T) {
	tmp := newBaseDir(t, 9, 1)
	defer os.RemoveAll(tmp)

	job := xcnv.Job{BaseDir: tmp, Run: 9, Seqs: []int{1}, Output: filepath.Join(tmp, "out.root")}
	err := process(job, filepath.Join(tmp, "missing.cfg"), "", flate.DefaultCompression)
	if err == nil {
		t.Fatalf("expected an error")
	}
}
