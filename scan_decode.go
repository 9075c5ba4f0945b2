// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// The bit-level decode primitives (ensureNBits/receiveExtend/decodeHuffman)
// and the MCU walk in processSOS are adapted from the standard
// library's image/jpeg decoder and from this pack's teacher (scan.go),
// generalized to store every coefficient into a Plane instead of decoding
// only as far as pixels.

package dctdm

import "io"

// errShortHuffmanData signals that entropy data ran out mid-symbol; decoding
// may still proceed along decodeHuffman's slow path, which tolerates running
// off the end of the scan by the last byte or two (section F.2.2.3 notes
// real encoders sometimes omit trailing zero bits).
var errShortHuffmanData = ErrorKind("shortHuffmanData")

// ensureNBits tops up d.bits to at least n buffered bits.
func (d *decoder) ensureNBits(n int32) error {
	for {
		c, err := d.readByteStuffedByte()
		if err != nil {
			if err == errMissingFF00 {
				return err
			}
			if err == io.ErrUnexpectedEOF {
				return errShortHuffmanData
			}
			return err
		}
		d.bits.a = d.bits.a<<8 | uint32(c)
		d.bits.n += 8
		if d.bits.m == 0 {
			d.bits.m = 1 << 7
		} else {
			d.bits.m <<= 8
		}
		if d.bits.n >= n {
			break
		}
	}
	return nil
}

// receiveExtend is RECEIVE composed with EXTEND, section F.2.2.1: read t
// raw bits and sign-extend per the rule spec §4.3 calls out explicitly:
// if the top bit is 0, value = bits - (1<<t) + 1; else value = bits.
func (d *decoder) receiveExtend(t uint8) (int32, error) {
	if t == 0 {
		return 0, nil
	}
	if d.bits.n < int32(t) {
		if err := d.ensureNBits(int32(t)); err != nil {
			return 0, err
		}
	}
	d.bits.n -= int32(t)
	d.bits.m >>= t
	s := int32(1) << t
	x := int32(d.bits.a>>uint8(d.bits.n)) & (s - 1)
	if x < s>>1 {
		x += ((-1) << t) + 1
	}
	return x, nil
}

// decodeHuffman returns the next symbol decoded against h.
func (d *decoder) decodeHuffman(h *huffLUT) (uint8, error) {
	if h == nil || h.nCodes == 0 {
		return 0, plainErr(ErrInvalidHuffmanCode, "uninitialized Huffman table")
	}
	if d.bits.n < 8 {
		if err := d.ensureNBits(8); err != nil {
			if err != errMissingFF00 && err != errShortHuffmanData {
				return 0, err
			}
			if d.bytes.nUnreadable != 0 {
				d.unreadByteStuffedByte()
			}
			goto slowPath
		}
	}
	if v := h.lut[(d.bits.a>>uint32(d.bits.n-lutSize))&0xff]; v != 0 {
		n := (v & 0xff) - 1
		d.bits.n -= int32(n)
		d.bits.m >>= n
		return uint8(v >> 8), nil
	}

slowPath:
	for i, code := 0, int32(0); i < maxCodeLength; i++ {
		if d.bits.n == 0 {
			if err := d.ensureNBits(1); err != nil {
				return 0, err
			}
		}
		if d.bits.a&d.bits.m != 0 {
			code |= 1
		}
		d.bits.n--
		d.bits.m >>= 1
		if code <= h.maxCodes[i] {
			return h.vals[h.valsIndices[i]+code-h.minCodes[i]], nil
		}
		code <<= 1
	}
	return 0, plainErr(ErrInvalidHuffmanCode, "no matching Huffman code")
}

// scanComponent is the per-scan assignment of a component to its Huffman
// table selectors, section B.2.3.
type scanComponent struct {
	compIndex int
	td, ta    uint8
}

// processSOS parses a scan header and entropy-decodes it into coefficient
// blocks, section B.2.3, generalized from the teacher's scan.go to store
// every AC/DC coefficient (not just steal a few low bits in passing) into
// this component's Plane, in zigzag order.
func (d *decoder) processSOS(n int) error {
	if d.nComp == 0 {
		return parseErr(ErrUnexpectedEndOfStream, d.consumed, "SOS before SOF0")
	}
	if n < 6 || n > 4+2*d.nComp || n%2 != 0 {
		return parseErr(ErrInvalidSegmentLength, d.consumed, "SOS has wrong length")
	}
	if err := d.readFull(d.tmp[:n]); err != nil {
		return err
	}
	nComp := int(d.tmp[0])
	if n != 4+2*nComp {
		return parseErr(ErrInvalidSegmentLength, d.consumed, "SOS length inconsistent with component count")
	}

	scan := make([]scanComponent, nComp)
	totalHV := 0
	for i := 0; i < nComp; i++ {
		cs := d.tmp[1+2*i]
		idx := -1
		for j := 0; j < d.nComp; j++ {
			if d.comp[j].id == cs {
				idx = j
			}
		}
		if idx < 0 {
			return parseErr(ErrInvalidSegmentLength, d.consumed, "unknown component selector")
		}
		scan[i].compIndex = idx
		for j := 0; j < i; j++ {
			if scan[i].compIndex == scan[j].compIndex {
				return parseErr(ErrInvalidSegmentLength, d.consumed, "repeated component selector")
			}
		}
		totalHV += int(d.comp[idx].h) * int(d.comp[idx].v)

		scan[i].td = d.tmp[2+2*i] >> 4
		if scan[i].td > maxTh || (d.baseline && scan[i].td > 1) {
			return parseErr(ErrInvalidSegmentLength, d.consumed, "bad Td value")
		}
		scan[i].ta = d.tmp[2+2*i] & 0x0f
		if scan[i].ta > maxTh || (d.baseline && scan[i].ta > 1) {
			return parseErr(ErrInvalidSegmentLength, d.consumed, "bad Ta value")
		}
		d.scanDC[idx] = scan[i].td
		d.scanAC[idx] = scan[i].ta
	}
	if d.nComp > 1 && totalHV > 10 {
		return parseErr(ErrInvalidSegmentLength, d.consumed, "total sampling factors too large")
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

	for i := 0; i < d.nComp; i++ {
		bw := ceilDiv(d.width*int(d.comp[i].h), 8*int(hMax))
		bh := ceilDiv(d.height*int(d.comp[i].v), 8*int(vMax))
		d.planes[i] = &Plane{
			BlocksWide: bw,
			BlocksHigh: bh,
			Blocks:     make([]Block, bw*bh),
		}
	}

	h0, v0 := int(d.comp[0].h), int(d.comp[0].v)
	mxx := ceilDiv(d.width, 8*h0)
	myy := ceilDiv(d.height, 8*v0)

	d.bits = bitAccumulator{}
	var prevDC [maxComponents]int32
	mcu, expectedRST := 0, uint8(rst0Marker)
	for my := 0; my < myy; my++ {
		for mx := 0; mx < mxx; mx++ {
			if err := checkCancel(d.cancel); err != nil {
				return err
			}
			for i := 0; i < nComp; i++ {
				ci := scan[i].compIndex
				hi, vi := int(d.comp[ci].h), int(d.comp[ci].v)
				for j := 0; j < hi*vi; j++ {
					var bx, by int
					if nComp == 1 {
						// Non-interleaved scan (section A.2): raster order
						// over this component's own block grid.
						bx, by = mx, my
					} else {
						bx = mx*hi + j%hi
						by = my*vi + j/hi
					}
					blk := d.planes[ci].At(bx, by)

					dcSize, err := d.decodeHuffman(d.huff[dcTable][scan[i].td])
					if err != nil {
						return err
					}
					if dcSize > 16 {
						return &Error{Kind: ErrUnsupportedMode, Offset: d.consumed, Pair: -1, Message: "excessive DC coefficient size"}
					}
					diff, err := d.receiveExtend(dcSize)
					if err != nil {
						return err
					}
					prevDC[ci] += diff
					blk[0] = prevDC[ci]

					huff := d.huff[acTable][scan[i].ta]
					zig := 1
					for zig < blockSize {
						rs, err := d.decodeHuffman(huff)
						if err != nil {
							return err
						}
						r, s := rs>>4, rs&0x0f
						if s != 0 {
							zig += int(r)
							if zig > blockSize-1 {
								return parseErr(ErrInvalidSegmentLength, d.consumed, "AC coefficient run overflows block")
							}
							ac, err := d.receiveExtend(s)
							if err != nil {
								return err
							}
							blk[zig] = ac
							zig++
						} else {
							if r != 0x0f {
								break // EOB: remaining ACs stay zero.
							}
							zig += 0x10 // ZRL: 16 zero coefficients.
						}
					}
				}
			}
			mcu++
			if d.ri > 0 && mcu%d.ri == 0 && mcu < mxx*myy {
				if err := d.readFull(d.tmp[:2]); err != nil {
					return err
				}
				if d.tmp[0] != 0xff || d.tmp[1] != expectedRST {
					return parseErr(ErrMissingRestartMarker, d.consumed, "expected RST marker not found")
				}
				expectedRST++
				if expectedRST == rst7Marker+1 {
					expectedRST = rst0Marker
				}
				d.bits = bitAccumulator{}
				prevDC = [maxComponents]int32{}
			}
		}
	}
	d.scanSeen = true
	return nil
}

// ceilDiv computes ceil(a/b) for non-negative a and positive b.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
