// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grandbin

const (
	intSize   = 4 // size of an integer word
	shortSize = 2 // size of a short word
)

// file header words. word 0 holds the block length.
const (
	fileHdrLength        = 0
	fileHdrRunNr         = 1
	fileHdrRunMode       = 2
	fileHdrSerial        = 3
	fileHdrFirstEvent    = 4
	fileHdrFirstEventSec = 5
	fileHdrLastEvent     = 6
	fileHdrLastEventSec  = 7

	// FileHdrAdditional is the first word of the (undefined) additional
	// file header information, and the minimal number of header words.
	FileHdrAdditional = 8
)

// event header, in bytes from the start of the event block.
const (
	evtHdrLength    = 0
	evtHdrRunNr     = 4
	evtHdrEventNr   = 8
	evtHdrT3EventNr = 12
	evtHdrFirstLS   = 16
	evtHdrSec       = 20
	evtHdrNanoSec   = 24
	evtHdrType      = 28
	evtHdrVersion   = 30
	evtHdrAD1       = 32
	evtHdrAD2       = 36
	evtHdrLSCount   = 40

	// EventHeaderSize is the size in bytes of the fixed event header.
	EventHeaderSize = 44
	// EventLS is the word offset of the first station sub-record.
	EventLS = EventHeaderSize / shortSize
)

// station sub-record header, in bytes from the start of the sub-record.
const (
	lsLength        = 0
	lsEventNr       = 2
	lsID            = 4
	lsHeaderLength  = 6
	lsGPSSeconds    = 8
	lsGPSNanoSec    = 12
	lsTriggerFlag   = 16
	lsTriggerPos    = 18
	lsSamplingFreq  = 20
	lsChannelMask   = 22
	lsADCResolution = 24
	lsTraceLength   = 26
	lsVersion       = 28

	// LSHeaderSize is the size in bytes of the sub-record header preceding
	// the electronics blob.
	LSHeaderSize = 30

	// minimal number of bytes needed to walk past a sub-record:
	// its length and its station identifier.
	lsWalkSize = lsID + shortSize
)

// electronics blob, in bytes from the start of the blob.
const (
	elecTrigMask     = 0
	elecGPS          = 2
	elecStatus       = 9
	elecCTD          = 10
	elecLenCh1       = 14
	elecThres1Ch1    = 22
	elecQuant1       = 38
	elecQuant2       = 42
	elecCTP          = 46
	elecSync         = 50
	elecSerial       = 52
	ppsTime          = 56
	ppsLongitude     = 64
	ppsLatitude      = 72
	ppsAltitude      = 80
	ppsTemperature   = 88
	ppsCtrl          = 92
	ppsTriggerEnable = 94
	ppsChannelMask   = 96
	ppsTrigDivider   = 97
	ppsCoincReadout  = 98
	ppsCtrlSpare     = 100
	ppsWindows       = 104
	ppsCh1           = 120
	ppsTrig1         = 168
	ppsFilt11        = 216

	channelPropSize = 12
	channelTrigSize = 12
	filterSize      = 16

	// ElectronicsSize is the size in bytes of the electronics blob,
	// which is also the offset of the first ADC trace inside the blob.
	ElectronicsSize = 344
	eventADC        = ElectronicsSize
)

// NumChannels is the number of ADC channels of a station.
const NumChannels = 4
