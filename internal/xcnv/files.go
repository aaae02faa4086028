// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/grand-mother/c-grand-to-hdf5/internal/mmap"
	"github.com/grand-mother/c-grand-to-hdf5/station"
)

// BinaryFile returns the path to the binary data file of sequence seq
// of run under basedir.
func BinaryFile(basedir string, run, seq int) string {
	return filepath.Join(basedir, "AD", fmt.Sprintf("ad%06d.f%04d", run, seq))
}

// MonitorFile returns the path to the monitoring log of sequence seq
// of run under basedir.
func MonitorFile(basedir string, run, seq int) string {
	return filepath.Join(basedir, "MON", fmt.Sprintf("MO%06d.f%04d", run, seq))
}

// Process converts the binary file bin and the monitoring log mon to sink.
// A missing monitoring log is logged and ignored.
// Process does not close the sink.
func Process(sink Sink, bin, mon string, dir *station.Directory, opts Options, msg *log.Logger) (Stats, error) {
	var r io.Reader
	switch {
	case opts.Mmap:
		h, err := mmap.Open(bin)
		if err != nil {
			return Stats{}, fmt.Errorf("xcnv: could not open binary file: %w", err)
		}
		defer h.Close()
		r = h.Reader()
	default:
		f, err := os.Open(bin)
		if err != nil {
			return Stats{}, fmt.Errorf("xcnv: could not open binary file: %w", err)
		}
		defer f.Close()
		r = bufio.NewReader(f)
	}

	stats, err := Convert(sink, r, dir, opts, msg)
	if err != nil {
		return stats, fmt.Errorf("xcnv: could not convert %q: %w", bin, err)
	}

	f, err := os.Open(mon)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		msg.Printf("no monitoring log %q", mon)
		return stats, nil
	case err != nil:
		return stats, fmt.Errorf("xcnv: could not open monitoring log: %w", err)
	}
	defer f.Close()

	stats.Monitor, stats.MonSkipped, err = FillMonitor(sink, f, dir, msg)
	if err != nil {
		return stats, fmt.Errorf("xcnv: could not fill monitoring from %q: %w", mon, err)
	}

	return stats, nil
}
