// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// The byte-stuffing-aware buffered reader in this file (fill/readByte/
// readByteStuffedByte/readFull/ignore/unreadByteStuffedByte) is adapted
// from the standard library's image/jpeg decoder, generalized to retain
// coefficients instead of decoding straight to pixels.

package dctdm

import "io"

// component is the decoder's internal, parse-time view of a frame
// component; Image.Components is derived from it once decoding completes.
type component struct {
	id   uint8
	h, v uint8
	tq   uint8
}

// decoder walks a baseline JPEG byte stream, producing an *Image. It owns
// its buffers and tables for the duration of one Decode call; nothing it
// holds outlives the call except through the returned *Image (spec §5,
// "Resource policy").
type decoder struct {
	r io.Reader

	// bytes mirrors stdlib's byte-stuffing-aware lookahead buffer: it can
	// unread up to 2 bytes because byte destuffing requires peeking one
	// byte past an 0xff to know whether it was stuffed.
	bytes struct {
		buf         [4096]byte
		i, j        int
		nUnreadable int
	}
	consumed int64 // logical stream offset, for error context

	bits bitAccumulator

	tmp [2 * blockSize]byte

	width, height int
	nComp         int
	baseline      bool
	comp          [maxComponents]component
	ri            int

	huff      [2][maxTh + 1]*huffLUT
	huffCanon [2][maxTh + 1]*HuffmanTable
	quant     [maxTq + 1]*QuantTable

	preamble []Segment

	planes   [maxComponents]*Plane
	scanDC   [maxComponents]uint8
	scanAC   [maxComponents]uint8
	scanSeen bool

	cancel CancelToken
}

// bitAccumulator holds bits already pulled from the byte stream but not
// yet consumed, MSB-first. n counts how many of a's low bits are valid.
type bitAccumulator struct {
	a uint32
	m uint32 // mask; m == 1<<(n-1) when n>0, else 0
	n int32
}

// fill refills d.bytes.buf from the underlying io.Reader. Only called when
// d.bytes.i == d.bytes.j.
func (d *decoder) fill() error {
	if d.bytes.i != d.bytes.j {
		panic("dctdm: fill called with unread bytes present")
	}
	if d.bytes.j > 2 {
		d.bytes.buf[0] = d.bytes.buf[d.bytes.j-2]
		d.bytes.buf[1] = d.bytes.buf[d.bytes.j-1]
		d.bytes.i, d.bytes.j = 2, 2
	}
	n, err := d.r.Read(d.bytes.buf[d.bytes.j:])
	d.bytes.j += n
	if n > 0 {
		return nil
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// unreadByteStuffedByte gives back the most recent byte(s) consumed by
// readByteStuffedByte, including any overshoot absorbed into d.bits.
func (d *decoder) unreadByteStuffedByte() {
	d.bytes.i -= d.bytes.nUnreadable
	d.bytes.nUnreadable = 0
	if d.bits.n >= 8 {
		d.bits.a >>= 8
		d.bits.n -= 8
		d.bits.m >>= 8
	}
}

// readByte returns the next raw byte, ignoring byte stuffing.
func (d *decoder) readByte() (byte, error) {
	for d.bytes.i == d.bytes.j {
		if err := d.fill(); err != nil {
			return 0, err
		}
	}
	x := d.bytes.buf[d.bytes.i]
	d.bytes.i++
	d.bytes.nUnreadable = 0
	d.consumed++
	return x, nil
}

// errMissingFF00 signals an 0xff byte in entropy-coded data that was not
// followed by the expected stuffing 0x00 — i.e. a marker was reached.
var errMissingFF00 = ErrorKind("missing0xFF00")

// readByteStuffedByte is like readByte, but destuffs 0xff 0x00 -> 0xff and
// reports errMissingFF00 when it instead finds a genuine marker byte,
// implementing the destuffing half of spec §4.1's reader contract.
func (d *decoder) readByteStuffedByte() (byte, error) {
	if d.bytes.i+2 <= d.bytes.j {
		x := d.bytes.buf[d.bytes.i]
		d.bytes.i++
		d.bytes.nUnreadable = 1
		d.consumed++
		if x != 0xff {
			return x, nil
		}
		if d.bytes.buf[d.bytes.i] != 0x00 {
			return 0, errMissingFF00
		}
		d.bytes.i++
		d.bytes.nUnreadable = 2
		d.consumed++
		return 0xff, nil
	}

	d.bytes.nUnreadable = 0
	x, err := d.readByte()
	if err != nil {
		return 0, err
	}
	d.bytes.nUnreadable = 1
	if x != 0xff {
		return x, nil
	}
	x, err = d.readByte()
	if err != nil {
		return 0, err
	}
	d.bytes.nUnreadable = 2
	if x != 0x00 {
		return 0, errMissingFF00
	}
	return 0xff, nil
}

// readFull reads exactly len(p) raw bytes, ignoring byte stuffing.
func (d *decoder) readFull(p []byte) error {
	if d.bytes.nUnreadable != 0 {
		if d.bits.n >= 8 {
			d.unreadByteStuffedByte()
		}
		d.bytes.nUnreadable = 0
	}
	for {
		n := copy(p, d.bytes.buf[d.bytes.i:d.bytes.j])
		p = p[n:]
		d.bytes.i += n
		d.consumed += int64(n)
		if len(p) == 0 {
			break
		}
		if err := d.fill(); err != nil {
			return err
		}
	}
	return nil
}

// ignore skips the next n raw bytes.
func (d *decoder) ignore(n int) error {
	if d.bytes.nUnreadable != 0 {
		if d.bits.n >= 8 {
			d.unreadByteStuffedByte()
		}
		d.bytes.nUnreadable = 0
	}
	for {
		m := d.bytes.j - d.bytes.i
		if m > n {
			m = n
		}
		d.bytes.i += m
		d.consumed += int64(m)
		n -= m
		if n == 0 {
			break
		}
		if err := d.fill(); err != nil {
			return err
		}
	}
	return nil
}

// Decode parses a baseline sequential, 8-bit, Huffman-coded JPEG byte
// stream into an *Image holding its (unmodified) coefficient planes.
// cancel may be nil.
func Decode(r io.Reader, cancel CancelToken) (*Image, error) {
	d := &decoder{r: r, cancel: cancel}
	img, err := d.decode()
	switch err {
	case nil:
		return img, nil
	case io.ErrUnexpectedEOF, errShortHuffmanData, errMissingFF00:
		return nil, parseErr(ErrUnexpectedEndOfStream, d.consumed, "input ended before the image was complete")
	}
	return nil, err
}

func (d *decoder) decode() (*Image, error) {
	if err := d.readFull(d.tmp[:2]); err != nil {
		return nil, err
	}
	if d.tmp[0] != 0xff || d.tmp[1] != soiMarker {
		return nil, parseErr(ErrInvalidMarker, d.consumed-2, "missing SOI marker")
	}

	for {
		if err := checkCancel(d.cancel); err != nil {
			return nil, err
		}
		marker, err := d.nextMarker()
		if err != nil {
			return nil, err
		}
		if marker == eoiMarker {
			break
		}
		if isRSTMarker(marker) {
			// A stray restart marker outside a scan is a harmless
			// artifact some encoders leave trailing; ignore it.
			continue
		}

		if err := d.readFull(d.tmp[:2]); err != nil {
			return nil, err
		}
		n := int(d.tmp[0])<<8 + int(d.tmp[1]) - 2
		if n < 0 {
			return nil, parseErr(ErrInvalidSegmentLength, d.consumed-2, "segment length underflows its own length field")
		}

		switch marker {
		case sof0Marker:
			d.baseline = true
			err = d.processSOF0(n)
		case sof1Marker, sof2Marker, sof3Marker, sof5Marker, sof6Marker,
			sof7Marker, sof9Marker, sof10Marker, sof11Marker, sof13Marker,
			sof14Marker, sof15Marker:
			err = &Error{Kind: ErrUnsupportedMode, Offset: d.consumed, Pair: -1,
				Message: "only baseline sequential (SOF0) frames are supported"}
		case dhtMarker:
			err = d.processDHT(n)
		case dqtMarker:
			err = d.processDQT(n)
		case driMarker:
			err = d.processDRI(n)
		case sosMarker:
			err = d.processSOS(n)
		default:
			if isAPPMarker(marker) || marker == comMarker {
				err = d.preserveSegment(marker, n)
			} else if marker < sof0Marker {
				err = parseErr(ErrInvalidMarker, d.consumed, "unknown low marker")
			} else {
				err = &Error{Kind: ErrUnsupportedMode, Offset: d.consumed, Pair: -1, Message: "unknown high marker"}
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if d.nComp == 0 {
		return nil, parseErr(ErrUnexpectedEndOfStream, d.consumed, "missing SOF0 marker")
	}
	if !d.scanSeen {
		return nil, parseErr(ErrUnexpectedEndOfStream, d.consumed, "missing SOS marker")
	}
	return d.toImage(), nil
}

// nextMarker reads bytes until it finds a marker, per section B.1.1.2's
// fill-byte allowance (any number of leading 0xff bytes before the real
// marker code).
func (d *decoder) nextMarker() (byte, error) {
	if err := d.readFull(d.tmp[:2]); err != nil {
		return 0, err
	}
	for d.tmp[0] != 0xff {
		d.tmp[0] = d.tmp[1]
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		d.tmp[1] = b
	}
	marker := d.tmp[1]
	for marker == 0xff {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		marker = b
	}
	return marker, nil
}

// preserveSegment captures an APPn/COM segment's raw payload verbatim, in
// original order, for faithful re-emission (spec §4.3/§4.4).
func (d *decoder) preserveSegment(marker byte, n int) error {
	data := make([]byte, n)
	if err := d.readFull(data); err != nil {
		return err
	}
	d.preamble = append(d.preamble, Segment{Marker: marker, Data: data})
	return nil
}

// processSOF0 parses a baseline frame header, section B.2.2.
func (d *decoder) processSOF0(n int) error {
	if d.nComp != 0 {
		return parseErr(ErrInvalidSegmentLength, d.consumed, "multiple SOF markers")
	}
	if n < 6 {
		return parseErr(ErrInvalidSegmentLength, d.consumed, "SOF0 too short")
	}
	if err := d.readFull(d.tmp[:n]); err != nil {
		return err
	}
	if d.tmp[0] != 8 {
		return &Error{Kind: ErrUnsupportedPrecision, Offset: d.consumed, Pair: -1, Message: "only 8-bit sample precision is supported"}
	}
	d.height = int(d.tmp[1])<<8 + int(d.tmp[2])
	d.width = int(d.tmp[3])<<8 + int(d.tmp[4])
	d.nComp = int(d.tmp[5])
	if d.nComp == 0 || d.nComp > maxComponents {
		return parseErr(ErrInvalidSegmentLength, d.consumed, "bad component count")
	}
	if n != 6+3*d.nComp {
		return parseErr(ErrInvalidSegmentLength, d.consumed, "SOF0 length inconsistent with component count")
	}
	for i := 0; i < d.nComp; i++ {
		c := &d.comp[i]
		c.id = d.tmp[6+3*i]
		for j := 0; j < i; j++ {
			if c.id == d.comp[j].id {
				return parseErr(ErrInvalidSegmentLength, d.consumed, "repeated component identifier")
			}
		}
		hv := d.tmp[7+3*i]
		c.h, c.v = hv>>4, hv&0x0f
		if c.h < 1 || c.h > 4 || c.v < 1 || c.v > 4 {
			return parseErr(ErrInvalidSegmentLength, d.consumed, "bad sampling factor")
		}
		c.tq = d.tmp[8+3*i]
		if c.tq > maxTq {
			return parseErr(ErrInvalidSegmentLength, d.consumed, "bad Tq value")
		}
	}
	return nil
}

// processDQT parses one or more quantization tables, section B.2.4.1.
func (d *decoder) processDQT(n int) error {
	for n > 0 {
		n--
		x, err := d.readByte()
		if err != nil {
			return err
		}
		tq := x & 0x0f
		if tq > maxTq {
			return parseErr(ErrInvalidSegmentLength, d.consumed, "bad Tq value")
		}
		pq := x >> 4
		qt := &QuantTable{ID: tq, Precision: pq}
		switch pq {
		case 0:
			if n < blockSize {
				return parseErr(ErrInvalidSegmentLength, d.consumed, "DQT too short")
			}
			n -= blockSize
			if err := d.readFull(d.tmp[:blockSize]); err != nil {
				return err
			}
			for i := 0; i < blockSize; i++ {
				qt.Values[i] = uint16(d.tmp[i])
			}
		case 1:
			if n < 2*blockSize {
				return parseErr(ErrInvalidSegmentLength, d.consumed, "DQT too short")
			}
			n -= 2 * blockSize
			if err := d.readFull(d.tmp[:2*blockSize]); err != nil {
				return err
			}
			for i := 0; i < blockSize; i++ {
				qt.Values[i] = uint16(d.tmp[2*i])<<8 | uint16(d.tmp[2*i+1])
			}
		default:
			return parseErr(ErrInvalidSegmentLength, d.consumed, "bad Pq value")
		}
		d.quant[tq] = qt
	}
	if n != 0 {
		return parseErr(ErrInvalidSegmentLength, d.consumed, "DQT length mismatch")
	}
	return nil
}

// processDRI parses the restart interval, section B.2.4.4.
func (d *decoder) processDRI(n int) error {
	if n != 2 {
		return parseErr(ErrInvalidSegmentLength, d.consumed, "DRI has wrong length")
	}
	if err := d.readFull(d.tmp[:2]); err != nil {
		return err
	}
	d.ri = int(d.tmp[0])<<8 + int(d.tmp[1])
	return nil
}

// toImage converts the decoder's internal state into the public Image
// value returned from Decode.
func (d *decoder) toImage() *Image {
	img := &Image{
		Width:           d.width,
		Height:          d.height,
		RestartInterval: d.ri,
		QuantTables:     map[uint8]*QuantTable{},
		Preamble:        d.preamble,
	}
	for i := 0; i < maxTq+1; i++ {
		if d.quant[i] != nil {
			img.QuantTables[uint8(i)] = d.quant[i]
		}
	}
	img.HuffTables[dcTable] = map[uint8]*HuffmanTable{}
	img.HuffTables[acTable] = map[uint8]*HuffmanTable{}
	for i := 0; i < maxTh+1; i++ {
		if t := d.huffCanon[dcTable][i]; t != nil {
			img.HuffTables[dcTable][uint8(i)] = t
		}
		if t := d.huffCanon[acTable][i]; t != nil {
			img.HuffTables[acTable][uint8(i)] = t
		}
	}
	var hMax, vMax uint8
	for i := 0; i < d.nComp; i++ {
		if d.comp[i].h > hMax {
			hMax = d.comp[i].h
		}
		if d.comp[i].v > vMax {
			vMax = d.comp[i].v
		}
	}
	img.HMax, img.VMax = hMax, vMax
	for i := 0; i < d.nComp; i++ {
		img.Components = append(img.Components, Component{
			ID: d.comp[i].id, H: d.comp[i].h, V: d.comp[i].v, TQ: d.comp[i].tq,
		})
		img.Planes = append(img.Planes, d.planes[i])
		img.ScanDCSelector = append(img.ScanDCSelector, d.scanDC[i])
		img.ScanACSelector = append(img.ScanACSelector, d.scanAC[i])
	}
	return img
}
