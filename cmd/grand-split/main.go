// Copyright 2021 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command grand-split splits a GRAND binary file into n files,
// one per station.
package main // import "github.com/grand-mother/c-grand-to-hdf5/cmd/grand-split"

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grand-mother/c-grand-to-hdf5/grandbin"
)

var (
	msg = log.New(os.Stdout, "grand-split: ", 0)
)

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	var (
		fset = flag.NewFlagSet("grand-split", flag.ExitOnError)

		oname = fset.String("o", "out.bin", "path to output GRAND file")
	)

	fset.Usage = func() {
		fmt.Printf(`Usage: grand-split [OPTIONS] file.bin

ex:
 $> grand-split -o out.bin ./data/AD/ad000042.f0001

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() != 1 {
		fset.Usage()
		msg.Fatalf("missing input GRAND file")
	}

	if *oname == "" {
		fset.Usage()
		msg.Fatalf("invalid output GRAND file")
	}

	err = process(*oname, fset.Arg(0))
	if err != nil {
		msg.Fatalf("could not split GRAND file %q: %+v", fset.Arg(0), err)
	}
}

type output struct {
	f   *os.File
	w   *bufio.Writer
	enc *grandbin.Encoder
}

func process(oname, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open GRAND file: %w", err)
	}
	defer f.Close()

	r := grandbin.NewReader(bufio.NewReader(f))
	hdr, err := r.ReadFileHeader()
	if err != nil {
		return fmt.Errorf("could not read file header: %w", err)
	}

	out := make(map[uint8]*output)
	defer func() {
		for _, o := range out {
			o.f.Close()
		}
	}()

loop:
	for i := 0; ; i++ {
		raw, err := r.ReadBlock()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break loop
			}
			return fmt.Errorf("could not read event block %d: %w", i, err)
		}

		ehdr, subs, err := grandbin.SubRecords(raw)
		if err != nil {
			msg.Printf("event block %d: %+v", i, err)
			if subs == nil {
				continue
			}
		}

		byID := make(map[uint8][][]byte)
		for _, sub := range subs {
			ls, err := grandbin.DecodeLSHeader(sub)
			if err != nil {
				msg.Printf("event %d: %+v", ehdr.EventNr, err)
				continue
			}
			id := ls.StationID()
			byID[id] = append(byID[id], sub)
		}

		for _, id := range ids(byID) {
			o, ok := out[id]
			if !ok {
				o, err = create(outFileFrom(oname, id), hdr)
				if err != nil {
					return err
				}
				out[id] = o
			}

			err = o.enc.EncodeEvent(ehdr, byID[id]...)
			if err != nil {
				return fmt.Errorf("could not encode event %d for station %d: %w", ehdr.EventNr, id, err)
			}
		}
	}

	for _, id := range ids(out) {
		o := out[id]
		err = o.w.Flush()
		if err != nil {
			return fmt.Errorf("could not flush output file for station %d: %w", id, err)
		}
		err = o.f.Close()
		if err != nil {
			return fmt.Errorf("could not close output file for station %d: %w", id, err)
		}
	}

	return nil
}

func create(fname string, hdr grandbin.FileHeader) (*output, error) {
	msg.Printf("creating output file %q...", fname)
	f, err := os.Create(fname)
	if err != nil {
		return nil, fmt.Errorf("could not create output file: %w", err)
	}

	o := &output{f: f, w: bufio.NewWriter(f)}
	o.enc = grandbin.NewEncoder(o.w)
	err = o.enc.EncodeFileHeader(hdr)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("could not encode file header: %w", err)
	}
	return o, nil
}

func ids[T any](m map[uint8]T) []uint8 {
	o := make([]uint8, 0, len(m))
	for id := range m {
		o = append(o, id)
	}
	sort.Slice(o, func(i, j int) bool { return o[i] < o[j] })
	return o
}

func outFileFrom(fname string, id uint8) string {
	var (
		ext   = filepath.Ext(fname)
		oname = strings.TrimSuffix(fname, ext) + fmt.Sprintf("-%03d%s", id, ext)
	)
	return oname
}
