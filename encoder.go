// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// The marker-segment emission here mirrors the standard library's
// image/jpeg encoder's writeXxx methods, generalized to re-serialize an
// already-decoded Image's tables and preamble verbatim rather than deriving
// them from a freshly quantized image.Image.

package dctdm

import (
	"bufio"
	"io"
	"sort"
)

// encoder writes an *Image back out as a baseline sequential JPEG byte
// stream, re-emitting preserved segments verbatim and re-encoding the
// (possibly DCTDM-modified) coefficient planes.
type encoder struct {
	w    *bufio.Writer
	err  error
	bits writeBits
}

func (e *encoder) emitByte(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}

func (e *encoder) emitBytes(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

// emitMarker writes a bare marker, with no following length/payload.
func (e *encoder) emitMarker(marker byte) {
	e.emitByte(0xff)
	e.emitByte(marker)
}

// emitSegment writes a marker followed by its 2-byte big-endian length
// (which includes the length field itself) and payload.
func (e *encoder) emitSegment(marker byte, payload []byte) {
	e.emitMarker(marker)
	n := len(payload) + 2
	e.emitByte(byte(n >> 8))
	e.emitByte(byte(n))
	e.emitBytes(payload)
}

// Encode writes img as a baseline sequential JPEG byte stream, re-encoding
// its coefficient planes and re-emitting its preserved preamble, tables,
// frame header and restart interval. cancel may be nil.
func Encode(w io.Writer, img *Image, cancel CancelToken) error {
	if len(img.Components) == 0 {
		return plainErr(ErrInvalidSegmentLength, "image has no components")
	}
	for i := range img.Components {
		if img.Planes[i] == nil {
			return plainErr(ErrInvalidSegmentLength, "image is missing a coefficient plane")
		}
	}

	e := &encoder{w: bufio.NewWriter(w)}
	e.emitMarker(soiMarker)

	for _, seg := range img.Preamble {
		e.emitSegment(seg.Marker, seg.Data)
	}

	e.writeDQT(img)
	e.writeDHT(img)
	e.writeSOF0(img)
	if img.RestartInterval > 0 {
		e.writeDRI(img)
	}
	e.writeSOSHeader(img)

	if e.err != nil {
		return e.err
	}

	h0, v0 := int(img.Components[0].H), int(img.Components[0].V)
	mxx := ceilDiv(img.Width, 8*h0)
	myy := ceilDiv(img.Height, 8*v0)

	dcCodes := make([]map[uint8]huffCode, len(img.Components))
	acCodes := make([]map[uint8]huffCode, len(img.Components))
	for i := range img.Components {
		dt := img.HuffTables[dcTable][img.ScanDCSelector[i]]
		at := img.HuffTables[acTable][img.ScanACSelector[i]]
		if dt == nil || at == nil {
			return plainErr(ErrInvalidHuffmanCode, "component references an undefined Huffman table")
		}
		dcCodes[i] = buildHuffCodes(dt)
		acCodes[i] = buildHuffCodes(at)
	}

	if err := e.writeScanData(img, mxx, myy, dcCodes, acCodes, cancel); err != nil {
		return err
	}
	e.alignByte()

	e.emitMarker(eoiMarker)
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// writeDQT re-emits every quantization table img carries, one per segment,
// in ascending id order for deterministic output.
func (e *encoder) writeDQT(img *Image) {
	ids := make([]int, 0, len(img.QuantTables))
	for id := range img.QuantTables {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	for _, id := range ids {
		qt := img.QuantTables[uint8(id)]
		var payload []byte
		if qt.Precision == 0 {
			payload = make([]byte, 1+blockSize)
			payload[0] = qt.ID & 0x0f
			for i := 0; i < blockSize; i++ {
				payload[1+i] = byte(qt.Values[i])
			}
		} else {
			payload = make([]byte, 1+2*blockSize)
			payload[0] = 1<<4 | (qt.ID & 0x0f)
			for i := 0; i < blockSize; i++ {
				payload[1+2*i] = byte(qt.Values[i] >> 8)
				payload[2+2*i] = byte(qt.Values[i])
			}
		}
		e.emitSegment(dqtMarker, payload)
	}
}

// writeDHT re-emits every Huffman table img carries, one per segment, class
// then id ascending.
func (e *encoder) writeDHT(img *Image) {
	for class := 0; class < 2; class++ {
		ids := make([]int, 0, len(img.HuffTables[class]))
		for id := range img.HuffTables[class] {
			ids = append(ids, int(id))
		}
		sort.Ints(ids)
		for _, id := range ids {
			t := img.HuffTables[class][uint8(id)]
			payload := make([]byte, 17+len(t.Values))
			payload[0] = t.Class<<4 | (t.ID & 0x0f)
			copy(payload[1:17], t.Counts[:])
			copy(payload[17:], t.Values)
			e.emitSegment(dhtMarker, payload)
		}
	}
}

// writeSOF0 re-emits the baseline frame header.
func (e *encoder) writeSOF0(img *Image) {
	payload := make([]byte, 6+3*len(img.Components))
	payload[0] = 8
	payload[1] = byte(img.Height >> 8)
	payload[2] = byte(img.Height)
	payload[3] = byte(img.Width >> 8)
	payload[4] = byte(img.Width)
	payload[5] = byte(len(img.Components))
	for i, c := range img.Components {
		payload[6+3*i] = c.ID
		payload[7+3*i] = c.H<<4 | c.V
		payload[8+3*i] = c.TQ
	}
	e.emitSegment(sof0Marker, payload)
}

// writeDRI re-emits the restart interval.
func (e *encoder) writeDRI(img *Image) {
	e.emitSegment(driMarker, []byte{byte(img.RestartInterval >> 8), byte(img.RestartInterval)})
}

// writeSOSHeader emits the scan header for a single interleaved scan
// covering every component in frame order, matching the decoder's
// single-scan assumption.
func (e *encoder) writeSOSHeader(img *Image) {
	payload := make([]byte, 4+2*len(img.Components))
	payload[0] = byte(len(img.Components))
	for i, c := range img.Components {
		payload[1+2*i] = c.ID
		payload[2+2*i] = img.ScanDCSelector[i]<<4 | img.ScanACSelector[i]
	}
	payload[len(payload)-3] = 0 // Ss
	payload[len(payload)-2] = 63
	payload[len(payload)-1] = 0
	e.emitSegment(sosMarker, payload)
}
