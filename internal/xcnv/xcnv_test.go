// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/grand-mother/c-grand-to-hdf5/grandbin"
	"github.com/grand-mother/c-grand-to-hdf5/station"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
	"go-hep.org/x/hep/lcio"
)

const field = `# test field
1 11 86.1 42.9 1200 butterfly gp35 X Y Z -
2 12 86.2 43.0 1210 butterfly gp35 X - Z -
`

const monlog = `11 5 321 1600000000 10 20 30 40 50 21.5 12.1 0.25 1
12 6 321 1600000001 11 21 31 41 51 22.5 12.2 0.26 0
99 7 321 1600000002 12 22 32 42 52 23.5 12.3 0.27 0
11 5 321 1600000010 13 23 33 43 53 24.5 12.4 0.28 1
garbage
`

func newDir(t *testing.T) *station.Directory {
	t.Helper()
	entries, err := station.ReadField(strings.NewReader(field))
	if err != nil {
		t.Fatalf("could not read field: %+v", err)
	}
	dir, err := station.New(entries)
	if err != nil {
		t.Fatalf("could not create directory: %+v", err)
	}
	return dir
}

func samples(beg, n int) []int16 {
	o := make([]int16, n)
	for i := range o {
		o[i] = int16(beg + i)
	}
	return o
}

func record(id uint8, trcs [grandbin.NumChannels][]int16) []byte {
	rec := grandbin.Record{
		LS: grandbin.LSHeader{
			LSID:        uint16(id),
			GPSSeconds:  1600000000,
			GPSNanoSec:  42,
			TriggerFlag: 1,
		},
		Elec: grandbin.Electronics{
			Time:          grandbin.Timestamp{Year: 2020, Month: 9, Day: 13, Hour: 12, Minute: 26, Second: 40},
			CTD:           1234,
			SerialVersion: 0x00321123,
			Temperature:   21.5,
		},
	}
	for ch, vs := range trcs {
		if vs == nil {
			continue
		}
		rec.Traces = append(rec.Traces, grandbin.Trace{Channel: ch, Samples: vs})
	}
	return grandbin.AppendRecord(nil, rec)
}

// newRun returns a binary run file with 3 events, the last one being
// truncated when trunc is true.
func newRun(t *testing.T, trunc bool) []byte {
	t.Helper()

	var (
		buf = new(bytes.Buffer)
		enc = grandbin.NewEncoder(buf)
	)
	err := enc.EncodeFileHeader(grandbin.FileHeader{
		RunNr:      42,
		RunMode:    1,
		FirstEvent: 1,
		LastEvent:  3,
		Additional: []uint32{7},
	})
	if err != nil {
		t.Fatalf("could not encode file header: %+v", err)
	}

	for i, subs := range [][][]byte{
		{
			record(11, [grandbin.NumChannels][]int16{samples(0, 10), samples(100, 10), samples(200, 10), nil}),
			record(12, [grandbin.NumChannels][]int16{samples(0, 5), nil, samples(50, 5), nil}),
		},
		{
			record(99, [grandbin.NumChannels][]int16{samples(0, 3), nil, nil, nil}),
			record(11, [grandbin.NumChannels][]int16{samples(0, 4), samples(0, 4), samples(0, 4), nil}),
			record(11, [grandbin.NumChannels][]int16{{}, {}, {}, nil}),
		},
		{
			record(12, [grandbin.NumChannels][]int16{samples(0, 8), nil, samples(8, 8), nil}),
		},
	} {
		err = enc.EncodeEvent(grandbin.EventHeader{
			RunNr:   42,
			EventNr: uint32(i + 1),
			Second:  1600000000 + uint32(i),
		}, subs...)
		if err != nil {
			t.Fatalf("could not encode event %d: %+v", i+1, err)
		}
	}

	raw := buf.Bytes()
	if trunc {
		raw = raw[:len(raw)-10]
	}
	return raw
}

func TestConvertLCIO(t *testing.T) {
	tmp, err := os.MkdirTemp("", "grand-xcnv-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	var (
		dir   = newDir(t)
		fname = filepath.Join(tmp, "run.lcio")
		msg   = log.New(io.Discard, "", 0)
	)

	sink, err := NewLCIOSink(fname, dir, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("could not create LCIO sink: %+v", err)
	}

	stats, err := Convert(sink, bytes.NewReader(newRun(t, false)), dir, Options{}, msg)
	if err != nil {
		t.Fatalf("could not convert run: %+v", err)
	}

	nmon, skip, err := FillMonitor(sink, strings.NewReader(monlog), dir, msg)
	if err != nil {
		t.Fatalf("could not fill monitoring: %+v", err)
	}
	if got, want := nmon, 3; got != want {
		t.Fatalf("invalid number of monitoring records: got=%d, want=%d", got, want)
	}
	if got, want := skip, 2; got != want {
		t.Fatalf("invalid number of skipped monitoring records: got=%d, want=%d", got, want)
	}

	err = sink.Close()
	if err != nil {
		t.Fatalf("could not close LCIO sink: %+v", err)
	}

	want := Stats{Run: 42, Events: 3, Records: 5, Unknown: 1, Bytes: stats.Bytes}
	if stats != want {
		t.Fatalf("invalid stats:\ngot= %+v\nwant=%+v", stats, want)
	}
	if !stats.Clean() {
		t.Fatalf("conversion should be clean")
	}

	r, err := lcio.Open(fname)
	if err != nil {
		t.Fatalf("could not open LCIO file: %+v", err)
	}
	defer r.Close()

	var (
		nevts int
		names [][]string
	)
	for r.Next() {
		evt := r.Event()
		if nevts == 0 {
			rhdr := r.RunHeader()
			if got, want := rhdr.RunNumber, int32(42); got != want {
				t.Fatalf("invalid run number: got=%d, want=%d", got, want)
			}
			if got, want := rhdr.Params.Ints["ElecID"], []int32{11, 12}; !reflect.DeepEqual(got, want) {
				t.Fatalf("invalid electronics ids: got=%v, want=%v", got, want)
			}
			if got, want := rhdr.Params.Strings["Channels"], []string{"XYZ-", "X-Z-"}; !reflect.DeepEqual(got, want) {
				t.Fatalf("invalid channels: got=%v, want=%v", got, want)
			}
		}
		nevts++

		names = append(names, evt.Names())

		if evt.EventNumber == 1 {
			trcs := evt.Get("Traces_1").(*lcio.TrackerRawDataContainer)
			if got, want := len(trcs.Data), 3; got != want {
				t.Fatalf("invalid number of traces: got=%d, want=%d", got, want)
			}
			if got, want := trcs.Data[1].ADCs[0], uint16(100); got != want {
				t.Fatalf("invalid ADC_Y first sample: got=%d, want=%d", got, want)
			}
			trcs = evt.Get("Traces_2").(*lcio.TrackerRawDataContainer)
			if got, want := len(trcs.Data), 2; got != want {
				t.Fatalf("invalid number of traces: got=%d, want=%d", got, want)
			}
			if got, want := trcs.Data[1].ADCs[4], uint16(54); got != want {
				t.Fatalf("invalid ADC_Z last sample: got=%d, want=%d", got, want)
			}
		}

		if evt.EventNumber == SummaryEvent {
			mon := evt.Get("MonDetector_1").(*lcio.GenericObject)
			if got, want := len(mon.Data), 2; got != want {
				t.Fatalf("invalid number of monitoring records: got=%d, want=%d", got, want)
			}
			if got, want := mon.Data[1].I32s[3], int32(1600000010); got != want {
				t.Fatalf("invalid monitoring second: got=%d, want=%d", got, want)
			}
			elec := evt.Get("ElectronicsSettings").(*lcio.GenericObject)
			if got, want := elec.Data[0].I32s[2], int32(321); got != want {
				t.Fatalf("invalid firmware: got=%d, want=%d", got, want)
			}
		}
	}
	if err := r.Err(); err != nil && err != io.EOF {
		t.Fatalf("could not read LCIO file: %+v", err)
	}

	want2 := [][]string{
		{"AntennaInfo", "Traces_1", "Traces_2"},
		{"AntennaInfo", "Traces_1", "Traces_Antenna_1_2"},
		{"AntennaInfo", "Traces_2"},
		{"ElectronicsSettings", "CenterField", "MonDetector_1", "MonDetector_2"},
	}
	if !reflect.DeepEqual(names, want2) {
		t.Fatalf("invalid collections:\ngot= %q\nwant=%q", names, want2)
	}
}

func TestConvertROOT(t *testing.T) {
	tmp, err := os.MkdirTemp("", "grand-xcnv-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	var (
		dir   = newDir(t)
		fname = filepath.Join(tmp, "run.root")
		msg   = log.New(io.Discard, "", 0)
	)

	sink, err := NewROOTSink(fname, dir, 1)
	if err != nil {
		t.Fatalf("could not create ROOT sink: %+v", err)
	}

	stats, err := Convert(sink, bytes.NewReader(newRun(t, true)), dir, Options{}, msg)
	if err != nil {
		t.Fatalf("could not convert run: %+v", err)
	}
	if !stats.Truncated {
		t.Fatalf("truncated run not reported")
	}
	if got, want := stats.Events, 2; got != want {
		t.Fatalf("invalid number of events: got=%d, want=%d", got, want)
	}

	_, _, err = FillMonitor(sink, strings.NewReader(monlog), dir, msg)
	if err != nil {
		t.Fatalf("could not fill monitoring: %+v", err)
	}

	err = sink.Close()
	if err != nil {
		t.Fatalf("could not close ROOT sink: %+v", err)
	}

	f, err := groot.Open(fname)
	if err != nil {
		t.Fatalf("could not open ROOT file: %+v", err)
	}
	defer f.Close()

	for _, tc := range []struct {
		name    string
		entries int64
	}{
		{"Run_42/FileHeader", 1},
		{"Run_42/DetectorInfo", 2},
		{"Run_42/ElectronicsSettings", 2},
		{"Run_42/CenterField", 1},
		{"Run_42/Monitor/MonDetector_1", 2},
		{"Run_42/Monitor/MonDetector_2", 1},
		{"Run_42/Event_1/raw/EventHeader", 1},
		{"Run_42/Event_1/raw/AntennaInfo", 2},
		{"Run_42/Event_1/raw/Traces_1/ADC_X", 1},
		{"Run_42/Event_1/raw/Traces_1/ADC_Y", 1},
		{"Run_42/Event_1/raw/Traces_1/ADC_Z", 1},
		{"Run_42/Event_1/raw/Traces_2/ADC_X", 1},
		{"Run_42/Event_1/raw/Traces_2/ADC_Z", 1},
		{"Run_42/Event_2/raw/AntennaInfo", 2},
		{"Run_42/Event_2/raw/Traces_Antenna_1_2/ADC_Z", 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			obj, err := riofs.Dir(f).Get(tc.name)
			if err != nil {
				t.Fatalf("could not retrieve %q: %+v", tc.name, err)
			}
			tree, ok := obj.(rtree.Tree)
			if !ok {
				t.Fatalf("%q is not a tree: %T", tc.name, obj)
			}
			if got, want := tree.Entries(), tc.entries; got != want {
				t.Fatalf("invalid number of entries: got=%d, want=%d", got, want)
			}
		})
	}

	_, err = riofs.Dir(f).Get("Run_42/Event_3")
	if err == nil {
		t.Fatalf("truncated event should not be written")
	}

	obj, err := riofs.Dir(f).Get("Run_42/Event_1/raw/Traces_2/ADC_Z")
	if err != nil {
		t.Fatalf("could not retrieve trace: %+v", err)
	}

	var row traceRow
	r, err := rtree.NewReader(obj.(rtree.Tree), rtree.ReadVarsFromStruct(&row))
	if err != nil {
		t.Fatalf("could not create tree reader: %+v", err)
	}
	defer r.Close()

	err = r.Read(func(ctx rtree.RCtx) error {
		if got, want := row.ADC, samples(50, 5); !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid ADC_Z samples: got=%v, want=%v", got, want)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("could not read trace: %+v", err)
	}
}

func TestConvertInvalidHeader(t *testing.T) {
	tmp, err := os.MkdirTemp("", "grand-xcnv-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	dir := newDir(t)
	sink, err := NewLCIOSink(filepath.Join(tmp, "run.lcio"), dir, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("could not create LCIO sink: %+v", err)
	}
	defer sink.Close()

	raw := []byte{4, 0, 0, 0, 1, 2, 3, 4}
	_, err = Convert(sink, bytes.NewReader(raw), dir, Options{}, log.New(io.Discard, "", 0))
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), grandbin.ErrHeaderTooShort.Error()) {
		t.Fatalf("invalid error: %+v", err)
	}
}

func TestStats(t *testing.T) {
	st := Stats{Run: 42, Events: 1234, Records: 5678, Anomalies: 1, Monitor: 3, Bytes: 2 << 20}
	if st.Clean() {
		t.Fatalf("stats with anomalies should not be clean")
	}

	if (Stats{Events: 1, Trailing: 1, TrailingW: 10}).Clean() {
		t.Fatalf("stats with trailing words should not be clean")
	}
	want := "run 42: 1,234 events, 5,678 records (unknown=0, anomalies=1, trailing=0 events/0 words, skipped=0, failed=0, truncated=false), 3 monitoring records (skipped=0), 2.1 MB read"
	if got := st.String(); got != want {
		t.Fatalf("invalid stats:\ngot= %q\nwant=%q", got, want)
	}
}

func TestProcess(t *testing.T) {
	tmp, err := os.MkdirTemp("", "grand-xcnv-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	if got, want := BinaryFile("data", 42, 1), filepath.Join("data", "AD", "ad000042.f0001"); got != want {
		t.Fatalf("invalid binary file: got=%q, want=%q", got, want)
	}
	if got, want := MonitorFile("data", 42, 1), filepath.Join("data", "MON", "MO000042.f0001"); got != want {
		t.Fatalf("invalid monitoring file: got=%q, want=%q", got, want)
	}

	for _, sub := range []string{"AD", "MON"} {
		err = os.Mkdir(filepath.Join(tmp, sub), 0755)
		if err != nil {
			t.Fatalf("could not create %s dir: %+v", sub, err)
		}
	}
	err = os.WriteFile(BinaryFile(tmp, 42, 1), newRun(t, false), 0644)
	if err != nil {
		t.Fatalf("could not write binary file: %+v", err)
	}
	err = os.WriteFile(BinaryFile(tmp, 42, 2), newRun(t, false), 0644)
	if err != nil {
		t.Fatalf("could not write binary file: %+v", err)
	}
	err = os.WriteFile(MonitorFile(tmp, 42, 1), []byte(monlog), 0644)
	if err != nil {
		t.Fatalf("could not write monitoring file: %+v", err)
	}

	dir := newDir(t)
	for _, tc := range []struct {
		name string
		seq  int
		mmap bool
		nmon int
	}{
		{name: "file", seq: 1, nmon: 3},
		{name: "mmap", seq: 1, mmap: true, nmon: 3},
		{name: "no-monitor", seq: 2, nmon: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sink, err := NewLCIOSink(filepath.Join(tmp, tc.name+".lcio"), dir, flate.DefaultCompression)
			if err != nil {
				t.Fatalf("could not create LCIO sink: %+v", err)
			}
			defer sink.Close()

			stats, err := Process(
				sink, BinaryFile(tmp, 42, tc.seq), MonitorFile(tmp, 42, tc.seq),
				dir, Options{Mmap: tc.mmap}, log.New(io.Discard, "", 0),
			)
			if err != nil {
				t.Fatalf("could not process run: %+v", err)
			}

			if got, want := stats.Events, 3; got != want {
				t.Fatalf("invalid number of events: got=%d, want=%d", got, want)
			}
			if got, want := stats.Monitor, tc.nmon; got != want {
				t.Fatalf("invalid number of monitoring records: got=%d, want=%d", got, want)
			}

			err = sink.Close()
			if err != nil {
				t.Fatalf("could not close LCIO sink: %+v", err)
			}
		})
	}

	_, err = Process(
		nil, BinaryFile(tmp, 42, 3), MonitorFile(tmp, 42, 3),
		dir, Options{}, log.New(io.Discard, "", 0),
	)
	if err == nil {
		t.Fatalf("expected an error for a missing binary file")
	}
}

func TestJobOutputFile(t *testing.T) {
	for _, tc := range []struct {
		job  Job
		seq  int
		want string
	}{
		{Job{Run: 42, Seqs: []int{1}, Ext: ".root"}, 1, "Run42.root"},
		{Job{Run: 42, Seqs: []int{1, 2}, Ext: ".root"}, 2, "Run42_2.root"},
		{Job{Run: 42, Seqs: []int{1}, Output: "out.lcio"}, 1, "out.lcio"},
		{Job{Run: 42, Seqs: []int{1, 3}, Output: "dir/out.lcio"}, 3, "dir/out_3.lcio"},
	} {
		t.Run(tc.want, func(t *testing.T) {
			if got, want := tc.job.OutputFile(tc.seq), tc.want; got != want {
				t.Fatalf("invalid output file: got=%q, want=%q", got, want)
			}
		})
	}
}

func TestJobExec(t *testing.T) {
	tmp, err := os.MkdirTemp("", "grand-xcnv-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	for _, sub := range []string{"AD", "MON"} {
		err = os.Mkdir(filepath.Join(tmp, sub), 0755)
		if err != nil {
			t.Fatalf("could not create %s dir: %+v", sub, err)
		}
	}
	for _, seq := range []int{1, 2} {
		err = os.WriteFile(BinaryFile(tmp, 42, seq), newRun(t, seq == 2), 0644)
		if err != nil {
			t.Fatalf("could not write binary file: %+v", err)
		}
		err = os.WriteFile(MonitorFile(tmp, 42, seq), []byte(monlog), 0644)
		if err != nil {
			t.Fatalf("could not write monitoring file: %+v", err)
		}
	}

	fname := filepath.Join(tmp, "field.cfg")
	err = os.WriteFile(fname, []byte(field), 0644)
	if err != nil {
		t.Fatalf("could not write field file: %+v", err)
	}

	dir, err := LoadDirectory(fname, "", 42)
	if err != nil {
		t.Fatalf("could not load field: %+v", err)
	}

	job := Job{
		BaseDir: tmp,
		Run:     42,
		Seqs:    []int{1, 2},
		Output:  filepath.Join(tmp, "out.root"),
	}
	stats, err := job.Exec(dir, func(fname string) (Sink, error) {
		return NewROOTSink(fname, dir, flate.DefaultCompression)
	}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("could not run job: %+v", err)
	}

	for i, want := range []struct {
		events int
		trunc  bool
	}{
		{3, false},
		{2, true},
	} {
		if got, want := stats[i].Events, want.events; got != want {
			t.Fatalf("seq %d: invalid number of events: got=%d, want=%d", i+1, got, want)
		}
		if got, want := stats[i].Truncated, want.trunc; got != want {
			t.Fatalf("seq %d: invalid truncation: got=%v, want=%v", i+1, got, want)
		}
		if got, want := stats[i].Monitor, 3; got != want {
			t.Fatalf("seq %d: invalid number of monitoring records: got=%d, want=%d", i+1, got, want)
		}
		_, err := os.Stat(job.OutputFile(i + 1))
		if err != nil {
			t.Fatalf("seq %d: missing output file: %+v", i+1, err)
		}
	}

	job.Seqs = []int{3}
	_, err = job.Exec(dir, func(fname string) (Sink, error) {
		return NewROOTSink(fname, dir, flate.DefaultCompression)
	}, log.New(io.Discard, "", 0))
	if err == nil {
		t.Fatalf("expected an error for a missing sequence")
	}
}

func TestConvertTrailing(t *testing.T) {
	tmp, err := os.MkdirTemp("", "grand-xcnv-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	var (
		buf = new(bytes.Buffer)
		enc = grandbin.NewEncoder(buf)
	)
	err = enc.EncodeFileHeader(grandbin.FileHeader{RunNr: 42, Additional: []uint32{0}})
	if err != nil {
		t.Fatalf("could not encode file header: %+v", err)
	}
	beg := buf.Len()

	subs := [][]byte{
		record(11, [grandbin.NumChannels][]int16{samples(0, 4), nil, nil, nil}),
		record(12, [grandbin.NumChannels][]int16{samples(0, 4), nil, nil, nil}),
		record(11, [grandbin.NumChannels][]int16{samples(0, 4), nil, nil, nil}),
	}
	err = enc.EncodeEvent(grandbin.EventHeader{RunNr: 42, EventNr: 1}, subs...)
	if err != nil {
		t.Fatalf("could not encode event: %+v", err)
	}

	// declare a single station for the 3 encoded sub-records.
	raw := buf.Bytes()
	binary.LittleEndian.PutUint32(raw[beg+40:], 1)

	for _, tc := range []struct {
		name      string
		strict    bool
		anomalies int
	}{
		{"lenient", false, 0},
		{"strict", true, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var (
				dir  = newDir(t)
				logs = new(strings.Builder)
				msg  = log.New(logs, "", 0)
			)
			sink, err := NewLCIOSink(filepath.Join(tmp, tc.name+".lcio"), dir, flate.DefaultCompression)
			if err != nil {
				t.Fatalf("could not create LCIO sink: %+v", err)
			}
			defer sink.Close()

			stats, err := Convert(sink, bytes.NewReader(raw), dir, Options{Strict: tc.strict}, msg)
			if err != nil {
				t.Fatalf("could not convert run: %+v", err)
			}

			if got, want := stats.Records, 1; got != want {
				t.Fatalf("invalid number of records: got=%d, want=%d", got, want)
			}
			if got, want := stats.Trailing, 1; got != want {
				t.Fatalf("invalid number of events with trailing words: got=%d, want=%d", got, want)
			}
			if got, want := stats.TrailingW, (len(subs[1])+len(subs[2]))/2; got != want {
				t.Fatalf("invalid number of trailing words: got=%d, want=%d", got, want)
			}
			if got, want := stats.Anomalies, tc.anomalies; got != want {
				t.Fatalf("invalid number of anomalies: got=%d, want=%d", got, want)
			}
			if stats.Clean() {
				t.Fatalf("conversion with trailing words should not be clean")
			}
			if !strings.Contains(logs.String(), "event 1: ") || !strings.Contains(logs.String(), "words left after 1 decoded sub-records") {
				t.Fatalf("trailing words not logged:\n%s", logs.String())
			}
			if !strings.Contains(stats.String(), "trailing=1 events/") {
				t.Fatalf("trailing words not reported: %s", stats)
			}

			err = sink.Close()
			if err != nil {
				t.Fatalf("could not close LCIO sink: %+v", err)
			}
		})
	}
}

func TestROOTSinkDuplicateEvent(t *testing.T) {
	tmp, err := os.MkdirTemp("", "grand-xcnv-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	var (
		dir   = newDir(t)
		fname = filepath.Join(tmp, "dup.root")
	)
	sink, err := NewROOTSink(fname, dir, 1)
	if err != nil {
		t.Fatalf("could not create ROOT sink: %+v", err)
	}
	defer sink.Close()

	evt := &grandbin.Event{Header: grandbin.EventHeader{RunNr: 42, EventNr: 1}}
	err = sink.WriteEvent(evt)
	if err == nil {
		t.Fatalf("expected an error writing an event before the run header")
	}

	err = sink.WriteRunHeader(grandbin.FileHeader{RunNr: 42})
	if err != nil {
		t.Fatalf("could not write run header: %+v", err)
	}
	err = sink.WriteEvent(evt)
	if err != nil {
		t.Fatalf("could not write event: %+v", err)
	}
	err = sink.WriteEvent(evt)
	if err == nil {
		t.Fatalf("expected an error writing event 1 twice")
	}

	err = sink.Close()
	if err != nil {
		t.Fatalf("could not close ROOT sink: %+v", err)
	}

	f, err := groot.Open(fname)
	if err != nil {
		t.Fatalf("could not open ROOT file: %+v", err)
	}
	defer f.Close()

	obj, err := riofs.Dir(f).Get("Run_42/Event_1/raw/EventHeader")
	if err != nil {
		t.Fatalf("could not retrieve event header: %+v", err)
	}
	if got, want := obj.(rtree.Tree).Entries(), int64(1); got != want {
		t.Fatalf("invalid number of entries: got=%d, want=%d", got, want)
	}
}
