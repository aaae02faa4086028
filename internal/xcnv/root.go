// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"

	"github.com/grand-mother/c-grand-to-hdf5/grandbin"
	"github.com/grand-mother/c-grand-to-hdf5/monitor"
	"github.com/grand-mother/c-grand-to-hdf5/station"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
)

// ROOTSink writes GRAND data to a ROOT file.
//
// The file holds a Run_<run> directory with:
//   - FileHeader, DetectorInfo, ElectronicsSettings and CenterField trees,
//   - a Monitor directory with one MonDetector_<id> tree per antenna,
//   - one Event_<nr>/raw directory per event, holding the EventHeader and
//     AntennaInfo trees and one directory of ADC_{X,Y,Z} trees per record.
type ROOTSink struct {
	f   *riofs.File
	run riofs.Directory
	dir *station.Directory

	mon    map[uint16]*monWriter // by electronics id
	monIDs []uint16

	evts map[uint32]struct{} // event numbers already written
}

type monWriter struct {
	w   rtree.Writer
	row monRow
}

// NewROOTSink creates a ROOT file fname for the antenna field dir.
// lvl is the zlib compression level. A negative level selects the default
// compression, zero disables compression.
func NewROOTSink(fname string, dir *station.Directory, lvl int) (*ROOTSink, error) {
	var opts []riofs.FileOption
	switch {
	case lvl == 0:
		opts = append(opts, riofs.WithoutCompression())
	case lvl > 0:
		opts = append(opts, riofs.WithZlib(lvl))
	}

	f, err := groot.Create(fname, opts...)
	if err != nil {
		return nil, fmt.Errorf("xcnv: could not create ROOT file %q: %w", fname, err)
	}

	return &ROOTSink{
		f:   f,
		dir: dir,
		mon:  make(map[uint16]*monWriter, dir.Len()),
		evts: make(map[uint32]struct{}),
	}, nil
}

type fileHdrRow struct {
	Length        uint32   `groot:"length"`
	RunNr         uint32   `groot:"run_nr"`
	RunMode       uint32   `groot:"run_mode"`
	Serial        uint32   `groot:"serial"`
	FirstEvent    uint32   `groot:"first_event"`
	FirstEventSec uint32   `groot:"first_event_sec"`
	LastEvent     uint32   `groot:"last_event"`
	LastEventSec  uint32   `groot:"last_event_sec"`
	NAdd          int32    `groot:"n_add"`
	Additional    []uint32 `groot:"additional[n_add]"`
}

type evtHdrRow struct {
	Length       uint32 `groot:"length"`
	RunNr        uint32 `groot:"run_nr"`
	EventNr      uint32 `groot:"event_nr"`
	T3EventNr    uint32 `groot:"t3_nr"`
	FirstLS      uint32 `groot:"first_ls"`
	Second       uint32 `groot:"seconds"`
	NanoSec      uint32 `groot:"nano_seconds"`
	EventType    uint16 `groot:"event_type"`
	EventVersion uint16 `groot:"event_version"`
	AD1          uint32 `groot:"ad1"`
	AD2          uint32 `groot:"ad2"`
	LSCount      uint32 `groot:"n_detector"`
	Trailing     int32  `groot:"trailing_words"`
}

type antRow struct {
	ID          uint16     `groot:"id"`
	Use         int32      `groot:"use"`
	Seconds     uint32     `groot:"seconds"`
	NanoSec     uint32     `groot:"nano_seconds"`
	TriggerFlag uint32     `groot:"trigger_flag"`
	Year        int16      `groot:"year"`
	Month       uint8      `groot:"month"`
	Day         uint8      `groot:"day"`
	Hour        uint8      `groot:"hour"`
	Minute      uint8      `groot:"minute"`
	Sec         uint8      `groot:"sec"`
	Status      uint8      `groot:"status"`
	CTD         uint32     `groot:"ctd"`
	GPSQuant    [2]float32 `groot:"gps_quant[2]"`
	CTP         uint32     `groot:"ctp"`
	Sync        uint16     `groot:"sync"`
	Temperature float32    `groot:"temperature"`
}

type traceRow struct {
	N   int32   `groot:"n"`
	ADC []int16 `groot:"adc[n]"`
}

type monRow struct {
	ElecID      uint16    `groot:"elec_id"`
	ElecSerial  uint16    `groot:"elec_serial"`
	Firmware    uint16    `groot:"firmware"`
	Second      uint32    `groot:"second"`
	Rate        [5]uint16 `groot:"rate[5]"`
	Temperature float32   `groot:"temp"`
	Voltage     float32   `groot:"volt"`
	Current     float32   `groot:"current"`
	Status      uint16    `groot:"status"`
}

type detRow struct {
	ID        int16   `groot:"id"`
	Longitude float64 `groot:"longitude"`
	Latitude  float64 `groot:"latitude"`
	Altitude  float32 `groot:"altitude"`
	X         float32 `groot:"x"`
	Y         float32 `groot:"y"`
	AntModel  string  `groot:"ant_model"`
	ElecID    uint16  `groot:"elec_id"`
	ElecModel string  `groot:"elec_model"`
	Channels  string  `groot:"channels"`
}

type elecRow struct {
	ID             int16      `groot:"id"`
	Valid          bool       `groot:"valid"`
	Firmware       int32      `groot:"firmware"`
	Subversion     int32      `groot:"subversion"`
	Serial         int32      `groot:"serial"`
	TrigMask       uint16     `groot:"trigger_mask"`
	TraceLengths   [4]uint16  `groot:"trace_length[4]"`
	Thresholds     [8]uint16  `groot:"thresholds[8]"`
	Longitude      float64    `groot:"longitude"`
	Latitude       float64    `groot:"latitude"`
	Altitude       float64    `groot:"altitude"`
	Control        uint16     `groot:"control"`
	TriggerEnable  uint16     `groot:"trigger_enable"`
	ChannelMask    uint8      `groot:"channel_mask"`
	TriggerDivider uint8      `groot:"trigger_divider"`
	CoincReadout   uint16     `groot:"coinc_readout"`
	Ctrl           uint16     `groot:"ctrl"`
	Windows        [8]uint16  `groot:"windows[8]"`
	Gain           [4]int16   `groot:"gain[4]"`
	Offset         [4]int8    `groot:"offset[4]"`
	Integration    [4]uint8   `groot:"integration[4]"`
	BaseMax        [4]uint16  `groot:"base_max[4]"`
	BaseMin        [4]uint16  `groot:"base_min[4]"`
	PMVolt         [4]uint8   `groot:"pm_volt[4]"`
	Filter         [4]uint8   `groot:"filter[4]"`
	SigThres       [4]int16   `groot:"sig_thres[4]"`
	NoiseThres     [4]int16   `groot:"noise_thres[4]"`
	TPrev          [4]uint8   `groot:"tprev[4]"`
	TPer           [4]uint8   `groot:"tper[4]"`
	TCMax          [4]uint8   `groot:"tcmax[4]"`
	NCMax          [4]uint8   `groot:"ncmax[4]"`
	NCMin          [4]uint8   `groot:"ncmin[4]"`
	QMax           [4]uint8   `groot:"qmax[4]"`
	QMin           [4]uint8   `groot:"qmin[4]"`
	Options        [4]uint8   `groot:"options[4]"`
	Filters        [128]uint8 `groot:"filters[128]"`
}

type centerRow struct {
	Latitude  float64 `groot:"latitude"`
	Longitude float64 `groot:"longitude"`
	Altitude  float32 `groot:"altitude"`
	X         float32 `groot:"x"`
	Y         float32 `groot:"y"`
}

// writeTree writes a n-entries tree named name in dir, calling fill
// before writing each entry.
func writeTree(dir riofs.Directory, name string, ptr interface{}, n int, fill func(i int)) error {
	w, err := rtree.NewWriter(dir, name, rtree.WriteVarsFromStruct(ptr), rtree.WithTitle(name))
	if err != nil {
		return fmt.Errorf("could not create tree %q: %w", name, err)
	}

	for i := 0; i < n; i++ {
		fill(i)
		_, err = w.Write()
		if err != nil {
			_ = w.Close()
			return fmt.Errorf("could not write entry %d of tree %q: %w", i, name, err)
		}
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close tree %q: %w", name, err)
	}
	return nil
}

func (sink *ROOTSink) WriteRunHeader(hdr grandbin.FileHeader) error {
	run, err := sink.f.Mkdir(fmt.Sprintf("Run_%d", hdr.RunNr))
	if err != nil {
		return fmt.Errorf("xcnv: could not create run directory: %w", err)
	}
	sink.run = run

	var row fileHdrRow
	err = writeTree(run, "FileHeader", &row, 1, func(int) {
		row = fileHdrRow{
			Length:        hdr.Length,
			RunNr:         hdr.RunNr,
			RunMode:       hdr.RunMode,
			Serial:        hdr.Serial,
			FirstEvent:    hdr.FirstEvent,
			FirstEventSec: hdr.FirstEventSec,
			LastEvent:     hdr.LastEvent,
			LastEventSec:  hdr.LastEventSec,
			NAdd:          int32(len(hdr.Additional)),
			Additional:    hdr.Additional,
		}
	})
	if err != nil {
		return fmt.Errorf("xcnv: could not write file header: %w", err)
	}

	mon, err := run.Mkdir("Monitor")
	if err != nil {
		return fmt.Errorf("xcnv: could not create monitor directory: %w", err)
	}
	for _, ant := range sink.dir.Entries() {
		mw := new(monWriter)
		name := fmt.Sprintf("MonDetector_%d", ant.ID)
		mw.w, err = rtree.NewWriter(mon, name, rtree.WriteVarsFromStruct(&mw.row), rtree.WithTitle(name))
		if err != nil {
			return fmt.Errorf("xcnv: could not create monitor tree for antenna %d: %w", ant.ID, err)
		}
		sink.mon[ant.ElecID] = mw
		sink.monIDs = append(sink.monIDs, ant.ElecID)
	}

	return nil
}

func (sink *ROOTSink) WriteEvent(evt *grandbin.Event) error {
	if sink.run == nil {
		return fmt.Errorf("xcnv: missing run header")
	}

	hdr := evt.Header
	if _, dup := sink.evts[hdr.EventNr]; dup {
		return fmt.Errorf("xcnv: event %d already written", hdr.EventNr)
	}
	sink.evts[hdr.EventNr] = struct{}{}

	edir, err := sink.run.Mkdir(fmt.Sprintf("Event_%d", hdr.EventNr))
	if err != nil {
		return fmt.Errorf("xcnv: could not create event directory: %w", err)
	}
	raw, err := edir.Mkdir("raw")
	if err != nil {
		return fmt.Errorf("xcnv: could not create raw directory: %w", err)
	}

	var ehdr evtHdrRow
	err = writeTree(raw, "EventHeader", &ehdr, 1, func(int) {
		ehdr = evtHdrRow{
			Length:       hdr.Length,
			RunNr:        hdr.RunNr,
			EventNr:      hdr.EventNr,
			T3EventNr:    hdr.T3EventNr,
			FirstLS:      hdr.FirstLS,
			Second:       hdr.Second,
			NanoSec:      hdr.NanoSec,
			EventType:    hdr.EventType,
			EventVersion: hdr.EventVersion,
			AD1:          hdr.AD1,
			AD2:          hdr.AD2,
			LSCount:      hdr.LSCount,
			Trailing:     int32(evt.Trailing),
		}
	})
	if err != nil {
		return fmt.Errorf("xcnv: event %d: %w", hdr.EventNr, err)
	}

	var ant antRow
	err = writeTree(raw, "AntennaInfo", &ant, len(evt.Records), func(i int) {
		var (
			rec  = evt.Records[i]
			elec = rec.Elec
		)
		ant = antRow{
			ID:          uint16(rec.Antenna),
			Use:         int32(rec.Use),
			Seconds:     rec.LS.GPSSeconds,
			NanoSec:     rec.LS.GPSNanoSec,
			TriggerFlag: uint32(rec.LS.TriggerFlag),
			Year:        int16(elec.Time.Year),
			Month:       elec.Time.Month,
			Day:         elec.Time.Day,
			Hour:        elec.Time.Hour,
			Minute:      elec.Time.Minute,
			Sec:         elec.Time.Second,
			Status:      elec.Status,
			CTD:         elec.CTD,
			GPSQuant:    elec.GPSQuant,
			CTP:         elec.CTP,
			Sync:        elec.Sync,
			Temperature: elec.Temperature,
		}
	})
	if err != nil {
		return fmt.Errorf("xcnv: event %d: %w", hdr.EventNr, err)
	}

	for _, rec := range evt.Records {
		tdir, err := raw.Mkdir(rec.Name())
		if err != nil {
			return fmt.Errorf("xcnv: event %d: could not create %s directory: %w", hdr.EventNr, rec.Name(), err)
		}
		for _, trc := range rec.Traces {
			var row traceRow
			err = writeTree(tdir, trc.Name(), &row, 1, func(int) {
				row.N = int32(len(trc.Samples))
				row.ADC = trc.Samples
			})
			if err != nil {
				return fmt.Errorf("xcnv: event %d: %s: %w", hdr.EventNr, rec.Name(), err)
			}
		}
	}

	return nil
}

func (sink *ROOTSink) WriteMonitor(ant station.Entry, rec monitor.Record) error {
	mw, ok := sink.mon[ant.ElecID]
	if !ok {
		return fmt.Errorf("xcnv: no monitor tree for antenna %d", ant.ID)
	}
	mw.row = monRow{
		ElecID:      rec.ElecID,
		ElecSerial:  rec.ElecSerial,
		Firmware:    rec.Firmware,
		Second:      rec.Second,
		Rate:        rec.Rate,
		Temperature: rec.Temperature,
		Voltage:     rec.Voltage,
		Current:     rec.Current,
		Status:      rec.Status,
	}
	_, err := mw.w.Write()
	if err != nil {
		return fmt.Errorf("xcnv: could not write monitoring record for antenna %d: %w", ant.ID, err)
	}
	return nil
}

func (sink *ROOTSink) WriteDetectors(dir *station.Directory, elecs map[int]grandbin.Electronics) error {
	if sink.run == nil {
		return fmt.Errorf("xcnv: missing run header")
	}

	var det detRow
	err := writeTree(sink.run, "DetectorInfo", &det, dir.Len(), func(i int) {
		e := dir.Entry(i)
		det = detRow{
			ID:        e.ID,
			Longitude: e.Longitude,
			Latitude:  e.Latitude,
			Altitude:  e.Altitude,
			X:         e.X,
			Y:         e.Y,
			AntModel:  e.AntModel,
			ElecID:    e.ElecID,
			ElecModel: e.ElecModel,
			Channels:  channels(e),
		}
	})
	if err != nil {
		return fmt.Errorf("xcnv: could not write detectors: %w", err)
	}

	var elec elecRow
	err = writeTree(sink.run, "ElectronicsSettings", &elec, dir.Len(), func(i int) {
		v, ok := elecs[i]
		elec = newElecRow(dir.Entry(i).ID, v, ok)
	})
	if err != nil {
		return fmt.Errorf("xcnv: could not write electronics settings: %w", err)
	}

	var ctr centerRow
	err = writeTree(sink.run, "CenterField", &ctr, 1, func(int) {
		c := dir.Center()
		ctr = centerRow{
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
			Altitude:  c.Altitude,
			X:         c.X,
			Y:         c.Y,
		}
	})
	if err != nil {
		return fmt.Errorf("xcnv: could not write field center: %w", err)
	}

	return nil
}

func (sink *ROOTSink) Close() error {
	if sink.f == nil {
		return nil
	}
	for _, id := range sink.monIDs {
		err := sink.mon[id].w.Close()
		if err != nil {
			_ = sink.f.Close()
			sink.f = nil
			return fmt.Errorf("xcnv: could not close monitor tree: %w", err)
		}
	}
	sink.monIDs = nil

	err := sink.f.Close()
	sink.f = nil
	if err != nil {
		return fmt.Errorf("xcnv: could not close ROOT file: %w", err)
	}
	return nil
}

func channels(e station.Entry) string {
	var o []byte
	for _, ax := range e.Channels {
		o = append(o, ax.String()...)
	}
	return string(o)
}

func newElecRow(id int16, e grandbin.Electronics, valid bool) elecRow {
	row := elecRow{
		ID:             id,
		Valid:          valid,
		Firmware:       int32(e.FirmwareVersion()),
		Subversion:     int32(e.FirmwareSubversion()),
		Serial:         int32(e.SerialNumber()),
		TrigMask:       e.TrigMask,
		TraceLengths:   e.TraceLengths,
		Longitude:      e.Longitude,
		Latitude:       e.Latitude,
		Altitude:       e.Altitude,
		Control:        e.Control,
		TriggerEnable:  e.TriggerEnable,
		ChannelMask:    e.ChannelMask,
		TriggerDivider: e.TriggerDivider,
		CoincReadout:   e.CoincReadout,
		Ctrl:           e.Ctrl,
	}
	for i := 0; i < grandbin.NumChannels; i++ {
		row.Thresholds[2*i] = e.Thresholds[i][0]
		row.Thresholds[2*i+1] = e.Thresholds[i][1]
		row.Windows[2*i] = e.Windows[i][0]
		row.Windows[2*i+1] = e.Windows[i][1]

		prop := e.Properties[i]
		row.Gain[i] = prop.Gain
		row.Offset[i] = prop.Offset
		row.Integration[i] = prop.Integration
		row.BaseMax[i] = prop.BaseMax
		row.BaseMin[i] = prop.BaseMin
		row.PMVolt[i] = prop.PMVolt
		row.Filter[i] = prop.Filter

		trig := e.Triggers[i]
		row.SigThres[i] = trig.SigThres
		row.NoiseThres[i] = trig.NoiseThres
		row.TPrev[i] = trig.TPrev
		row.TPer[i] = trig.TPer
		row.TCMax[i] = trig.TCMax
		row.NCMax[i] = trig.NCMax
		row.NCMin[i] = trig.NCMin
		row.QMax[i] = trig.QMax
		row.QMin[i] = trig.QMin
		row.Options[i] = trig.Options
	}
	for i, filt := range e.Filters {
		copy(row.Filters[i*len(filt):], filt[:])
	}
	return row
}

var _ Sink = (*ROOTSink)(nil)
