// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// grand-dump decodes and displays GRAND binary data files.
//
// Usage: grand-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//  $> grand-dump ./data/AD/ad000042.f0001
//  === run 42 ===
//  Run mode:             1
//  Serial:               0
//  First event:          1 (t=100)
//  Last event:           1 (t=100)
//  Additional:  [7]
//  === event 1 ===
//  T3 event:             5
//  Time:               100.000000042
//  Type:        0x0001 (v2)
//  Stations:             1
//    station=011 trigger=0x0003 firmware=321.0 serial=123 samples=[3 0 2 0]
//  [...]
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/grand-mother/c-grand-to-hdf5/grandbin"
)

const usage = `grand-dump decodes and displays GRAND binary data files.

Usage: grand-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> grand-dump ./data/AD/ad000042.f0001
 === run 42 ===
 Run mode:             1
 Serial:               0
 First event:          1 (t=100)
 Last event:           1 (t=100)
 Additional:  [7]
 === event 1 ===
 T3 event:             5
 Time:               100.000000042
 Type:        0x0001 (v2)
 Stations:             1
   station=011 trigger=0x0003 firmware=321.0 serial=123 samples=[3 0 2 0]
 [...]

options:
`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("grand-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("grand-dump", flag.ExitOnError)

		nevts = fset.Int("n", -1, "number of events to display (-1: all)")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input GRAND file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *nevts)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, nevts int) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	r := grandbin.NewReader(bufio.NewReader(f))
	hdr, err := r.ReadFileHeader()
	if err != nil {
		return fmt.Errorf("could not read file header: %w", err)
	}

	fmt.Fprintf(wbuf, "=== run %d ===\n", hdr.RunNr)
	fmt.Fprintf(wbuf, "Run mode:    %10d\n", hdr.RunMode)
	fmt.Fprintf(wbuf, "Serial:      %10d\n", hdr.Serial)
	fmt.Fprintf(wbuf, "First event: %10d (t=%d)\n", hdr.FirstEvent, hdr.FirstEventSec)
	fmt.Fprintf(wbuf, "Last event:  %10d (t=%d)\n", hdr.LastEvent, hdr.LastEventSec)
	fmt.Fprintf(wbuf, "Additional:  %v\n", hdr.Additional)

	for i := 0; nevts < 0 || i < nevts; i++ {
		raw, err := r.ReadBlock()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("could not read event block %d: %w", i, err)
		}

		ehdr, subs, err := grandbin.SubRecords(raw)
		if errors.Is(err, grandbin.ErrEventTooShort) {
			return fmt.Errorf("could not decode event block %d: %w", i, err)
		}

		fmt.Fprintf(wbuf, "=== event %d ===\n", ehdr.EventNr)
		fmt.Fprintf(wbuf, "T3 event:    %10d\n", ehdr.T3EventNr)
		fmt.Fprintf(wbuf, "Time:        %10d.%09d\n", ehdr.Second, ehdr.NanoSec)
		fmt.Fprintf(wbuf, "Type:        0x%04x (v%d)\n", ehdr.EventType, ehdr.EventVersion)
		fmt.Fprintf(wbuf, "Stations:    %10d\n", ehdr.LSCount)

		for _, sub := range subs {
			dump(wbuf, sub)
		}
		if err != nil {
			fmt.Fprintf(wbuf, "  %v\n", err)
		}
	}

	return nil
}

func dump(w io.Writer, sub []byte) {
	ls, err := grandbin.DecodeLSHeader(sub)
	if err != nil {
		fmt.Fprintf(w, "  %v\n", err)
		return
	}

	elec, err := grandbin.DecodeElectronics(sub[grandbin.LSHeaderSize:])
	if err != nil {
		fmt.Fprintf(w, "  station=%03d %v\n", ls.StationID(), err)
		return
	}

	fmt.Fprintf(w, "  station=%03d trigger=0x%04x firmware=%d.%d serial=%d samples=%v\n",
		ls.StationID(), ls.TriggerFlag,
		elec.FirmwareVersion(), elec.FirmwareSubversion(), elec.SerialNumber(),
		elec.TraceLengths,
	)
}
