// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grandbin

import "encoding/binary"

// ExtractTraces extracts the ADC traces following the electronics blob.
//
// blob starts at the electronics blob and ends at the end of the
// enclosing sub-record. lengths are in samples.
// Channels mapped to AxisNone are skipped, but their samples are still
// accounted for when locating the next channel.
func ExtractTraces(blob []byte, lengths [NumChannels]uint16, axes [NumChannels]Axis) ([]Trace, error) {
	var (
		off  = eventADC
		trcs = make([]Trace, 0, NumChannels)
	)
	for i, n := range lengths {
		size := int(n) * shortSize
		if axes[i] == AxisNone {
			off += size
			continue
		}
		if off+size > len(blob) {
			return nil, &TraceOverrunError{Channel: i, Off: off, Size: size, Len: len(blob)}
		}
		trc := Trace{
			Axis:    axes[i],
			Channel: i,
			Offset:  (off - eventADC) / shortSize,
			Samples: make([]int16, n),
		}
		for j := range trc.Samples {
			trc.Samples[j] = int16(binary.LittleEndian.Uint16(blob[off+j*shortSize:]))
		}
		trcs = append(trcs, trc)
		off += size
	}
	return trcs, nil
}
