// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grandbin

import (
	"encoding/binary"
	"math"
)

// Timestamp is a broken-down GPS time, as stored by the electronics.
type Timestamp struct {
	Year   uint16
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
}

// ChannelProperty holds the ADC settings of one channel.
type ChannelProperty struct {
	Gain        int16
	Offset      int8
	Integration uint8
	BaseMax     uint16
	BaseMin     uint16
	PMVolt      uint8
	Filter      uint8
	Spare       uint16
}

// ChannelTrigger holds the trigger settings of one channel.
type ChannelTrigger struct {
	SigThres   int16
	NoiseThres int16
	TPrev      uint8
	TPer       uint8
	TCMax      uint8
	NCMax      uint8
	NCMin      uint8
	QMax       uint8
	QMin       uint8
	Options    uint8
}

// Electronics is the decoded electronics blob of a station sub-record.
type Electronics struct {
	TrigMask     uint16
	Time         Timestamp
	Status       uint8
	CTD          uint32
	TraceLengths [NumChannels]uint16 // in samples
	Thresholds   [NumChannels][2]uint16
	GPSQuant     [2]float32
	CTP          uint32
	Sync         uint16

	SerialVersion uint32
	PPSTime       Timestamp
	PPSStatus     uint8
	Longitude     float64
	Latitude      float64
	Altitude      float64
	Temperature   float32

	Control        uint16
	TriggerEnable  uint16
	ChannelMask    uint8
	TriggerDivider uint8
	CoincReadout   uint16
	Ctrl           uint16
	Windows        [NumChannels][2]uint16 // pre- and post-trigger windows

	Properties [NumChannels]ChannelProperty
	Triggers   [NumChannels]ChannelTrigger
	Filters    [2 * NumChannels][filterSize]uint8
}

// FirmwareVersion returns the firmware version encoded in the serial word.
func (e Electronics) FirmwareVersion() int {
	x := e.SerialVersion
	return int(100*((x>>20)&0xf) + 10*((x>>16)&0xf) + (x>>12)&0xf)
}

// FirmwareSubversion returns the firmware sub-version encoded in the serial word.
func (e Electronics) FirmwareSubversion() int {
	return int((e.SerialVersion >> 9) & 0x7)
}

// SerialNumber returns the board serial number encoded in the serial word.
func (e Electronics) SerialNumber() int {
	x := e.SerialVersion
	return int(100*((x>>8)&0x1) + 10*((x>>4)&0xf) + x&0xf)
}

// DecodeElectronics decodes the electronics blob held in p.
// p may extend past the blob.
func DecodeElectronics(p []byte) (Electronics, error) {
	var (
		e   Electronics
		dec = blobDecoder{p: p}
	)

	e.TrigMask = dec.u16("trigger mask", elecTrigMask)
	dec.time(&e.Time, "event time", elecGPS)
	e.Status = dec.u8("status", elecStatus)
	e.CTD = dec.u32("CTD", elecCTD)
	for i := range e.TraceLengths {
		e.TraceLengths[i] = dec.u16("trace length", elecLenCh1+i*shortSize)
	}
	for i := range e.Thresholds {
		off := elecThres1Ch1 + 2*i*shortSize
		e.Thresholds[i][0] = dec.u16("threshold", off)
		e.Thresholds[i][1] = dec.u16("threshold", off+shortSize)
	}
	e.GPSQuant[0] = dec.f32("GPS quant", elecQuant1)
	e.GPSQuant[1] = dec.f32("GPS quant", elecQuant2)
	e.CTP = dec.u32("CTP", elecCTP)
	e.Sync = dec.u16("sync", elecSync)

	e.SerialVersion = dec.u32("serial", elecSerial)
	dec.time(&e.PPSTime, "PPS time", ppsTime)
	e.PPSStatus = dec.u8("PPS status", ppsTime+7)
	e.Longitude = dec.f64("longitude", ppsLongitude)
	e.Latitude = dec.f64("latitude", ppsLatitude)
	e.Altitude = dec.f64("altitude", ppsAltitude)
	e.Temperature = dec.f32("temperature", ppsTemperature)

	e.Control = dec.u16("control", ppsCtrl)
	e.TriggerEnable = dec.u16("trigger enable", ppsTriggerEnable)
	e.ChannelMask = dec.u8("channel mask", ppsChannelMask)
	e.TriggerDivider = dec.u8("trigger divider", ppsTrigDivider)
	e.CoincReadout = dec.u16("coincidence readout", ppsCoincReadout)
	e.Ctrl = dec.u16("ctrl", ppsCtrlSpare)
	for i := range e.Windows {
		off := ppsWindows + 2*i*shortSize
		e.Windows[i][0] = dec.u16("pre-trigger window", off)
		e.Windows[i][1] = dec.u16("post-trigger window", off+shortSize)
	}

	for i := range e.Properties {
		var (
			off  = ppsCh1 + i*channelPropSize
			prop = &e.Properties[i]
		)
		prop.Gain = int16(dec.u16("gain", off))
		prop.Offset = int8(dec.u8("offset", off+2))
		prop.Integration = dec.u8("integration", off+3)
		prop.BaseMax = dec.u16("base max", off+4)
		prop.BaseMin = dec.u16("base min", off+6)
		prop.PMVolt = dec.u8("PM voltage", off+8)
		prop.Filter = dec.u8("filter", off+9)
		prop.Spare = dec.u16("spare", off+10)
	}

	for i := range e.Triggers {
		var (
			off  = ppsTrig1 + i*channelTrigSize
			trig = &e.Triggers[i]
		)
		trig.SigThres = int16(dec.u16("signal threshold", off))
		trig.NoiseThres = int16(dec.u16("noise threshold", off+2))
		trig.TPrev = dec.u8("tprev", off+4)
		trig.TPer = dec.u8("tper", off+5)
		trig.TCMax = dec.u8("tcmax", off+6)
		trig.NCMax = dec.u8("ncmax", off+7)
		trig.NCMin = dec.u8("ncmin", off+8)
		trig.QMax = dec.u8("qmax", off+9)
		trig.QMin = dec.u8("qmin", off+10)
		trig.Options = dec.u8("options", off+11)
	}

	for i := range e.Filters {
		if p := dec.load("filter constants", ppsFilt11+i*filterSize, filterSize); p != nil {
			copy(e.Filters[i][:], p)
		}
	}

	return e, dec.err
}

// TraceLengths returns the per-channel trace lengths, in samples,
// stored in the electronics blob p.
func TraceLengths(p []byte) ([NumChannels]uint16, error) {
	var (
		lens [NumChannels]uint16
		dec  = blobDecoder{p: p}
	)
	for i := range lens {
		lens[i] = dec.u16("trace length", elecLenCh1+i*shortSize)
	}
	return lens, dec.err
}

type blobDecoder struct {
	p   []byte
	err error
}

func (dec *blobDecoder) load(name string, off, size int) []byte {
	if dec.err != nil {
		return nil
	}
	if off+size > len(dec.p) {
		dec.err = &ShortBlobError{Field: name, Off: off, Size: size, Len: len(dec.p)}
		return nil
	}
	return dec.p[off : off+size]
}

func (dec *blobDecoder) u8(name string, off int) uint8 {
	p := dec.load(name, off, 1)
	if p == nil {
		return 0
	}
	return p[0]
}

func (dec *blobDecoder) u16(name string, off int) uint16 {
	p := dec.load(name, off, 2)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(p)
}

func (dec *blobDecoder) u32(name string, off int) uint32 {
	p := dec.load(name, off, 4)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(p)
}

func (dec *blobDecoder) f32(name string, off int) float32 {
	return math.Float32frombits(dec.u32(name, off))
}

func (dec *blobDecoder) f64(name string, off int) float64 {
	p := dec.load(name, off, 8)
	if p == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(p))
}

func (dec *blobDecoder) time(ts *Timestamp, name string, off int) {
	ts.Year = dec.u16(name, off)
	ts.Month = dec.u8(name, off+2)
	ts.Day = dec.u8(name, off+3)
	ts.Hour = dec.u8(name, off+4)
	ts.Minute = dec.u8(name, off+5)
	ts.Second = dec.u8(name, off+6)
}

// appendElectronics appends the encoded electronics blob e to dst.
func appendElectronics(dst []byte, e Electronics) []byte {
	var (
		beg = len(dst)
		p   []byte
	)
	dst = append(dst, make([]byte, ElectronicsSize)...)
	p = dst[beg:]

	var (
		le  = binary.LittleEndian
		u16 = func(off int, v uint16) { le.PutUint16(p[off:], v) }
		u32 = func(off int, v uint32) { le.PutUint32(p[off:], v) }
		f64 = func(off int, v float64) { le.PutUint64(p[off:], math.Float64bits(v)) }
		tim = func(off int, ts Timestamp) {
			u16(off, ts.Year)
			p[off+2] = ts.Month
			p[off+3] = ts.Day
			p[off+4] = ts.Hour
			p[off+5] = ts.Minute
			p[off+6] = ts.Second
		}
	)

	u16(elecTrigMask, e.TrigMask)
	tim(elecGPS, e.Time)
	p[elecStatus] = e.Status
	u32(elecCTD, e.CTD)
	for i, v := range e.TraceLengths {
		u16(elecLenCh1+i*shortSize, v)
	}
	for i, v := range e.Thresholds {
		u16(elecThres1Ch1+2*i*shortSize, v[0])
		u16(elecThres1Ch1+(2*i+1)*shortSize, v[1])
	}
	u32(elecQuant1, math.Float32bits(e.GPSQuant[0]))
	u32(elecQuant2, math.Float32bits(e.GPSQuant[1]))
	u32(elecCTP, e.CTP)
	u16(elecSync, e.Sync)

	u32(elecSerial, e.SerialVersion)
	tim(ppsTime, e.PPSTime)
	p[ppsTime+7] = e.PPSStatus
	f64(ppsLongitude, e.Longitude)
	f64(ppsLatitude, e.Latitude)
	f64(ppsAltitude, e.Altitude)
	u32(ppsTemperature, math.Float32bits(e.Temperature))

	u16(ppsCtrl, e.Control)
	u16(ppsTriggerEnable, e.TriggerEnable)
	p[ppsChannelMask] = e.ChannelMask
	p[ppsTrigDivider] = e.TriggerDivider
	u16(ppsCoincReadout, e.CoincReadout)
	u16(ppsCtrlSpare, e.Ctrl)
	for i, v := range e.Windows {
		u16(ppsWindows+2*i*shortSize, v[0])
		u16(ppsWindows+(2*i+1)*shortSize, v[1])
	}

	for i, prop := range e.Properties {
		off := ppsCh1 + i*channelPropSize
		u16(off, uint16(prop.Gain))
		p[off+2] = uint8(prop.Offset)
		p[off+3] = prop.Integration
		u16(off+4, prop.BaseMax)
		u16(off+6, prop.BaseMin)
		p[off+8] = prop.PMVolt
		p[off+9] = prop.Filter
		u16(off+10, prop.Spare)
	}

	for i, trig := range e.Triggers {
		off := ppsTrig1 + i*channelTrigSize
		u16(off, uint16(trig.SigThres))
		u16(off+2, uint16(trig.NoiseThres))
		copy(p[off+4:], []uint8{
			trig.TPrev, trig.TPer, trig.TCMax, trig.NCMax,
			trig.NCMin, trig.QMax, trig.QMin, trig.Options,
		})
	}

	for i := range e.Filters {
		copy(p[ppsFilt11+i*filterSize:], e.Filters[i][:])
	}

	return dst
}
