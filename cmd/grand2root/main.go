// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command grand2root converts GRAND binary data files to ROOT.
package main // import "github.com/grand-mother/c-grand-to-hdf5/cmd/grand2root"

import (
	"compress/flate"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	grand "github.com/grand-mother/c-grand-to-hdf5"
	"github.com/grand-mother/c-grand-to-hdf5/internal/alert"
	"github.com/grand-mother/c-grand-to-hdf5/internal/xcnv"
	"github.com/grand-mother/c-grand-to-hdf5/station"
	"github.com/sbinet/pmon"
)

var (
	msg = log.New(os.Stdout, "grand2root: ", 0)
)

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("grand2root", flag.ExitOnError)

		oname  = fset.String("o", "", "path to output ROOT file (default: Run<run>.root)")
		field  = fset.String("field", "", "path to antenna field file (default: <basedir>/field.cfg)")
		dbname = fset.String("db", "", "name of the conditions database holding the antenna field")
		lvl    = fset.Int("lvl", flate.DefaultCompression, "compression level for output ROOT file")
		strict = fset.Bool("strict", false, "report data after the last sub-record of an event")
		mmap   = fset.Bool("mmap", false, "read binary files through a memory map")
		doMon  = fset.Bool("pmon", false, "enable pmon monitoring")
		freq   = fset.Duration("freq", 1*time.Second, "pmon frequency")
		vers   = fset.Bool("version", false, "print version and exit")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: grand2root [OPTIONS] <basedir> <run> <seq> [<seq>...]

ex:
 $> grand2root -o run.root -lvl=9 ./data 42 1
 $> grand2root -db grand ./data 42 1 2 3

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if *vers {
		v, sum := grand.Version()
		msg.Printf("version: %s %s", v, sum)
		return
	}

	if fset.NArg() < 3 {
		fset.Usage()
		msg.Fatalf("missing input base directory, run or sequence")
	}

	job := xcnv.Job{
		BaseDir: fset.Arg(0),
		Output:  *oname,
		Ext:     ".root",
		Opts: xcnv.Options{
			Strict: *strict,
			Mmap:   *mmap,
		},
	}

	job.Run, err = strconv.Atoi(fset.Arg(1))
	if err != nil {
		fset.Usage()
		msg.Fatalf("invalid run number %q: %+v", fset.Arg(1), err)
	}

	for _, arg := range fset.Args()[2:] {
		seq, err := strconv.Atoi(arg)
		if err != nil {
			fset.Usage()
			msg.Fatalf("invalid sequence number %q: %+v", arg, err)
		}
		job.Seqs = append(job.Seqs, seq)
	}

	if *field == "" {
		*field = filepath.Join(job.BaseDir, "field.cfg")
	}

	if *doMon {
		err = startPMon("grand2root-pmon.log", *freq)
		if err != nil {
			msg.Fatalf("could not start process monitoring: %+v", err)
		}
	}

	err = process(job, *field, *dbname, *lvl)
	if err != nil {
		msg.Fatalf("could not convert run %d: %+v", job.Run, err)
	}
}

func process(job xcnv.Job, field, dbname string, lvl int) error {
	dir, err := xcnv.LoadDirectory(field, dbname, job.Run)
	if err != nil {
		return fmt.Errorf("could not load antenna field: %w", err)
	}
	msg.Printf("antenna field: %d antennas", dir.Len())

	stats, err := job.Exec(dir, func(fname string) (xcnv.Sink, error) {
		return xcnv.NewROOTSink(fname, dir, lvl)
	}, msg)
	report(job, dir, stats)
	if err != nil {
		return fmt.Errorf("could not convert to ROOT: %w", err)
	}

	return nil
}

func report(job xcnv.Job, dir *station.Directory, stats []xcnv.Stats) {
	var (
		body  = new(strings.Builder)
		clean = true
	)
	fmt.Fprintf(body, "run: %d\nantennas: %d\n", job.Run, dir.Len())
	for i, st := range stats {
		msg.Printf("seq %d: %v", job.Seqs[i], st)
		fmt.Fprintf(body, "seq %d: %v\n", job.Seqs[i], st)
		clean = clean && st.Clean()
	}
	if clean {
		return
	}

	cfg := alert.FromEnv()
	if !cfg.Valid() {
		return
	}
	err := cfg.Send(fmt.Sprintf("[grand2root] anomalies in run %d", job.Run), body.String())
	if err != nil {
		msg.Printf("could not send summary mail: %+v", err)
	}
}

func startPMon(fname string, freq time.Duration) error {
	p, err := pmon.Monitor(os.Getpid())
	if err != nil {
		return fmt.Errorf("could not monitor process: %w", err)
	}

	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create pmon log file: %w", err)
	}
	p.W = f
	p.Freq = freq

	// monitoring ends with the process.
	go func() {
		defer f.Close()
		err := p.Run()
		if err != nil {
			msg.Printf("could not run process monitoring: %+v", err)
		}
	}()

	return nil
}
