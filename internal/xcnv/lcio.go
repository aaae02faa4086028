// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"

	"github.com/grand-mother/c-grand-to-hdf5/grandbin"
	"github.com/grand-mother/c-grand-to-hdf5/monitor"
	"github.com/grand-mother/c-grand-to-hdf5/station"
	"go-hep.org/x/hep/lcio"
)

const (
	lcioDetector = "GRAND"

	// SummaryEvent is the number of the LCIO event holding the field
	// description and the monitoring records, written last.
	SummaryEvent = -1
)

// LCIOSink writes GRAND data to an LCIO file.
//
// Each GRAND event becomes an LCIO event with an AntennaInfo collection
// and one TrackerRawData collection per record, with one element per
// trace. The field description and the monitoring records are written
// when the sink is closed, as a last event numbered SummaryEvent.
type LCIOSink struct {
	w   *lcio.Writer
	dir *station.Directory
	run int32

	mon     map[uint16]*lcio.GenericObject // by electronics id
	summary *lcio.Event
}

// NewLCIOSink creates an LCIO file fname for the antenna field dir,
// with the provided flate compression level.
func NewLCIOSink(fname string, dir *station.Directory, lvl int) (*LCIOSink, error) {
	w, err := lcio.Create(fname)
	if err != nil {
		return nil, fmt.Errorf("xcnv: could not create LCIO file %q: %w", fname, err)
	}
	w.SetCompressionLevel(lvl)

	return &LCIOSink{
		w:   w,
		dir: dir,
		mon: make(map[uint16]*lcio.GenericObject, dir.Len()),
	}, nil
}

func (sink *LCIOSink) WriteRunHeader(hdr grandbin.FileHeader) error {
	sink.run = int32(hdr.RunNr)

	var (
		n    = sink.dir.Len()
		ids  = make([]int32, n)
		eids = make([]int32, n)
		lon  = make([]float32, n)
		lat  = make([]float32, n)
		alt  = make([]float32, n)
		xs   = make([]float32, n)
		ys   = make([]float32, n)
		ants = make([]string, n)
		elcs = make([]string, n)
		chs  = make([]string, n)
		dets = make([]string, n)
	)
	for i, e := range sink.dir.Entries() {
		ids[i] = int32(e.ID)
		eids[i] = int32(e.ElecID)
		lon[i] = float32(e.Longitude)
		lat[i] = float32(e.Latitude)
		alt[i] = e.Altitude
		xs[i] = e.X
		ys[i] = e.Y
		ants[i] = e.AntModel
		elcs[i] = e.ElecModel
		chs[i] = channels(e)
		dets[i] = fmt.Sprintf("Antenna_%d", e.ID)
	}

	add := make([]int32, len(hdr.Additional))
	for i, v := range hdr.Additional {
		add[i] = int32(v)
	}

	err := sink.w.WriteRunHeader(&lcio.RunHeader{
		RunNumber:    sink.run,
		Detector:     lcioDetector,
		Descr:        fmt.Sprintf("GRAND run %d", hdr.RunNr),
		SubDetectors: dets,
		Params: lcio.Params{
			Ints: map[string][]int32{
				"RunMode":       {int32(hdr.RunMode)},
				"Serial":        {int32(hdr.Serial)},
				"FirstEvent":    {int32(hdr.FirstEvent)},
				"FirstEventSec": {int32(hdr.FirstEventSec)},
				"LastEvent":     {int32(hdr.LastEvent)},
				"LastEventSec":  {int32(hdr.LastEventSec)},
				"Additional":    add,
				"AntennaID":     ids,
				"ElecID":        eids,
			},
			Floats: map[string][]float32{
				"Longitude": lon,
				"Latitude":  lat,
				"Altitude":  alt,
				"X":         xs,
				"Y":         ys,
			},
			Strings: map[string][]string{
				"AntModel":  ants,
				"ElecModel": elcs,
				"Channels":  chs,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("xcnv: could not write LCIO run header: %w", err)
	}
	return nil
}

func (sink *LCIOSink) WriteEvent(evt *grandbin.Event) error {
	hdr := evt.Header
	out := lcio.Event{
		RunNumber:   int32(hdr.RunNr),
		EventNumber: int32(hdr.EventNr),
		TimeStamp:   int64(hdr.Second)*1e9 + int64(hdr.NanoSec),
		Detector:    lcioDetector,
		Params: lcio.Params{
			Ints: map[string][]int32{
				"T3EventNr":    {int32(hdr.T3EventNr)},
				"FirstLS":      {int32(hdr.FirstLS)},
				"EventType":    {int32(hdr.EventType)},
				"EventVersion": {int32(hdr.EventVersion)},
				"AD1":          {int32(hdr.AD1)},
				"AD2":          {int32(hdr.AD2)},
				"LSCount":      {int32(hdr.LSCount)},
				"Unknown":      {int32(evt.Unknown)},
				"Anomalies":    {int32(len(evt.Anomalies))},
				"Trailing":     {int32(evt.Trailing)},
			},
		},
	}

	ants := &lcio.GenericObject{
		Data: make([]lcio.GenericObjectData, len(evt.Records)),
	}
	for i, rec := range evt.Records {
		elec := rec.Elec
		ants.Data[i] = lcio.GenericObjectData{
			I32s: []int32{
				int32(rec.Antenna), int32(rec.Use), int32(rec.StationID),
				int32(rec.LS.GPSSeconds), int32(rec.LS.GPSNanoSec),
				int32(rec.LS.TriggerFlag),
				int32(elec.Time.Year), int32(elec.Time.Month), int32(elec.Time.Day),
				int32(elec.Time.Hour), int32(elec.Time.Minute), int32(elec.Time.Second),
				int32(elec.Status), int32(elec.CTD), int32(elec.CTP), int32(elec.Sync),
			},
			F32s: []float32{elec.GPSQuant[0], elec.GPSQuant[1], elec.Temperature},
		}
	}
	out.Add("AntennaInfo", ants)

	for _, rec := range evt.Records {
		trcs := &lcio.TrackerRawDataContainer{
			Params: lcio.Params{
				Strings: map[string][]string{"Axes": nil},
			},
			Data: make([]lcio.TrackerRawData, len(rec.Traces)),
		}
		for i, trc := range rec.Traces {
			adcs := make([]uint16, len(trc.Samples))
			for j, v := range trc.Samples {
				adcs[j] = uint16(v)
			}
			trcs.Data[i] = lcio.TrackerRawData{
				CellID0: int32(rec.Antenna),
				CellID1: int32(trc.Axis),
				Time:    int32(trc.Channel),
				ADCs:    adcs,
			}
			trcs.Params.Strings["Axes"] = append(trcs.Params.Strings["Axes"], trc.Name())
		}
		out.Add(rec.Name(), trcs)
	}

	err := sink.w.WriteEvent(&out)
	if err != nil {
		return fmt.Errorf("xcnv: could not write LCIO event %d: %w", hdr.EventNr, err)
	}
	return nil
}

func (sink *LCIOSink) WriteMonitor(ant station.Entry, rec monitor.Record) error {
	obj, ok := sink.mon[ant.ElecID]
	if !ok {
		obj = new(lcio.GenericObject)
		sink.mon[ant.ElecID] = obj
	}
	obj.Data = append(obj.Data, lcio.GenericObjectData{
		I32s: []int32{
			int32(rec.ElecID), int32(rec.ElecSerial), int32(rec.Firmware),
			int32(rec.Second),
			int32(rec.Rate[0]), int32(rec.Rate[1]), int32(rec.Rate[2]),
			int32(rec.Rate[3]), int32(rec.Rate[4]),
			int32(rec.Status),
		},
		F32s: []float32{rec.Temperature, rec.Voltage, rec.Current},
	})
	return nil
}

func (sink *LCIOSink) WriteDetectors(dir *station.Directory, elecs map[int]grandbin.Electronics) error {
	sink.summary = &lcio.Event{
		RunNumber:   sink.run,
		EventNumber: SummaryEvent,
		Detector:    lcioDetector,
	}

	settings := &lcio.GenericObject{
		Data: make([]lcio.GenericObjectData, dir.Len()),
	}
	for i := range settings.Data {
		e, ok := elecs[i]
		row := newElecRow(dir.Entry(i).ID, e, ok)
		valid := int32(0)
		if row.Valid {
			valid = 1
		}
		i32s := []int32{
			int32(row.ID), valid, row.Firmware, row.Subversion, row.Serial,
			int32(row.TrigMask), int32(row.Control), int32(row.TriggerEnable),
			int32(row.ChannelMask), int32(row.TriggerDivider),
			int32(row.CoincReadout), int32(row.Ctrl),
		}
		for ch := 0; ch < grandbin.NumChannels; ch++ {
			i32s = append(i32s,
				int32(row.TraceLengths[ch]),
				int32(row.Gain[ch]), int32(row.Offset[ch]), int32(row.Integration[ch]),
				int32(row.BaseMax[ch]), int32(row.BaseMin[ch]),
				int32(row.PMVolt[ch]), int32(row.Filter[ch]),
				int32(row.SigThres[ch]), int32(row.NoiseThres[ch]),
			)
		}
		settings.Data[i] = lcio.GenericObjectData{
			I32s: i32s,
			F64s: []float64{row.Longitude, row.Latitude, row.Altitude},
		}
	}
	sink.summary.Add("ElectronicsSettings", settings)

	c := dir.Center()
	sink.summary.Add("CenterField", &lcio.GenericObject{
		Data: []lcio.GenericObjectData{{
			F32s: []float32{c.Altitude, c.X, c.Y},
			F64s: []float64{c.Latitude, c.Longitude},
		}},
	})
	return nil
}

func (sink *LCIOSink) Close() error {
	if sink.summary == nil && len(sink.mon) > 0 {
		sink.summary = &lcio.Event{
			RunNumber:   sink.run,
			EventNumber: SummaryEvent,
			Detector:    lcioDetector,
		}
	}
	if sink.summary != nil {
		for _, e := range sink.dir.Entries() {
			obj, ok := sink.mon[e.ElecID]
			if !ok {
				continue
			}
			sink.summary.Add(fmt.Sprintf("MonDetector_%d", e.ID), obj)
		}
		err := sink.w.WriteEvent(sink.summary)
		sink.summary = nil
		sink.mon = nil
		if err != nil {
			_ = sink.w.Close()
			return fmt.Errorf("xcnv: could not write LCIO summary event: %w", err)
		}
	}

	err := sink.w.Close()
	if err != nil {
		return fmt.Errorf("xcnv: could not close LCIO file: %w", err)
	}
	return nil
}

var _ Sink = (*LCIOSink)(nil)
