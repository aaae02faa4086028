// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/grand-mother/c-grand-to-hdf5/conddb"
	"github.com/grand-mother/c-grand-to-hdf5/station"
	"golang.org/x/sync/errgroup"
)

// Job describes the conversion of some sequences of a run.
type Job struct {
	BaseDir string // directory holding the AD and MON directories
	Run     int
	Seqs    []int
	Output  string // output file, derived from the run when empty
	Ext     string // extension of derived output files (e.g. ".root")
	Opts    Options
}

// OutputFile returns the name of the output file of sequence seq.
//
// With several sequences, the sequence number is appended to the
// output file name.
func (job Job) OutputFile(seq int) string {
	oname := job.Output
	if oname == "" {
		oname = fmt.Sprintf("Run%d%s", job.Run, job.Ext)
	}
	if len(job.Seqs) < 2 {
		return oname
	}
	ext := filepath.Ext(oname)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(oname, ext), seq, ext)
}

// Exec converts the sequences of job concurrently, one sink per
// sequence, and returns the statistics of each sequence.
// Sinks are created with create, and closed by Exec.
func (job Job) Exec(dir *station.Directory, create func(fname string) (Sink, error), msg *log.Logger) ([]Stats, error) {
	var (
		grp   errgroup.Group
		stats = make([]Stats, len(job.Seqs))
	)
	for i := range job.Seqs {
		i := i
		seq := job.Seqs[i]
		grp.Go(func() error {
			oname := job.OutputFile(seq)
			sink, err := create(oname)
			if err != nil {
				return fmt.Errorf("xcnv: could not create output file for sequence %d: %w", seq, err)
			}
			defer sink.Close()

			msg.Printf("converting run %d, sequence %d to %q...", job.Run, seq, oname)
			stats[i], err = Process(
				sink,
				BinaryFile(job.BaseDir, job.Run, seq),
				MonitorFile(job.BaseDir, job.Run, seq),
				dir, job.Opts, msg,
			)
			if err != nil {
				return fmt.Errorf("xcnv: could not convert sequence %d: %w", seq, err)
			}

			err = sink.Close()
			if err != nil {
				return fmt.Errorf("xcnv: could not close output file for sequence %d: %w", seq, err)
			}
			return nil
		})
	}

	err := grp.Wait()
	return stats, err
}

// LoadDirectory loads the antenna field of a run, from the conditions
// database dbname when not empty, from the field file fname otherwise.
func LoadDirectory(fname, dbname string, run int) (*station.Directory, error) {
	if dbname == "" {
		return station.LoadField(fname)
	}

	db, err := conddb.Open(dbname)
	if err != nil {
		return nil, fmt.Errorf("xcnv: could not open conditions database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dir, err := db.Directory(ctx, uint32(run))
	if err != nil {
		return nil, fmt.Errorf("xcnv: could not load antenna field of run %d: %w", run, err)
	}
	return dir, nil
}
