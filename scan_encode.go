// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// The bit-packing and run-length coefficient emission here mirror the
// standard library's image/jpeg encoder, generalized to write whatever
// coefficients a Plane already holds instead of computing them from pixels
// via an FDCT.

package dctdm

// writeBits accumulates output bits MSB-first before they are byte-stuffed and
// written out, the write-side mirror of decoder.bitAccumulator.
type writeBits struct {
	a uint32
	n uint32
}

// emit appends the low nBits bits of v to e's pending output, flushing
// complete, byte-stuffed bytes as they accumulate.
func (e *encoder) emit(v uint32, nBits uint32) {
	if e.err != nil {
		return
	}
	nBits &= 31
	e.bits.a |= v << (32 - e.bits.n - nBits)
	e.bits.n += nBits
	for e.bits.n >= 8 {
		b := byte(e.bits.a >> 24)
		e.emitByte(b)
		if b == 0xff {
			e.emitByte(0x00)
		}
		e.bits.a <<= 8
		e.bits.n -= 8
	}
}

// alignByte pads any partial byte in the bit accumulator with 1 bits, per
// section B.1.1.5's fill convention, flushing it out.
func (e *encoder) alignByte() {
	if e.bits.n == 0 {
		return
	}
	pad := 8 - e.bits.n
	e.emit((1<<pad)-1, pad)
}

// emitHuff writes the canonical code assigned to symbol.
func (e *encoder) emitHuff(codes map[uint8]huffCode, symbol uint8) {
	c, ok := codes[symbol]
	if !ok {
		if e.err == nil {
			e.err = plainErr(ErrInvalidHuffmanCode, "no Huffman code assigned for required symbol")
		}
		return
	}
	e.emit(c.code, uint32(c.nBits))
}

// bitSize returns the number of bits needed to represent |v|, section
// F.1.2.1's table K.
func bitSize(v int32) uint8 {
	if v < 0 {
		v = -v
	}
	var s uint8
	for v != 0 {
		s++
		v >>= 1
	}
	return s
}

// encodeValue is RECEIVE/EXTEND run in reverse (section F.1.2.1): it returns
// the (size, bits) pair whose decode via receiveExtend reproduces v exactly.
func encodeValue(v int32) (uint8, uint32) {
	size := bitSize(v)
	if size == 0 {
		return 0, 0
	}
	x := v
	if x < 0 {
		x += (int32(1) << size) - 1
	}
	return size, uint32(x) & (uint32(1)<<size - 1)
}

// writeBlock emits one data unit's DC (as a difference from prevDC) and AC
// run-length-coded coefficients, and returns the DC value to carry forward
// as the next block's predictor.
func (e *encoder) writeBlock(blk *Block, prevDC int32, dcCodes, acCodes map[uint8]huffCode) int32 {
	diff := blk[0] - prevDC
	size, bits := encodeValue(diff)
	e.emitHuff(dcCodes, size)
	if size > 0 {
		e.emit(bits, uint32(size))
	}

	run := uint8(0)
	for zig := 1; zig < blockSize; zig++ {
		v := blk[zig]
		if v == 0 {
			run++
			continue
		}
		for run > 15 {
			e.emitHuff(acCodes, 0xf0) // ZRL: 16 zero coefficients.
			run -= 16
		}
		s, b := encodeValue(v)
		e.emitHuff(acCodes, run<<4|s)
		if s > 0 {
			e.emit(b, uint32(s))
		}
		run = 0
	}
	if run > 0 {
		e.emitHuff(acCodes, 0x00) // EOB: remaining coefficients are zero.
	}
	return blk[0]
}

// writeScanData entropy-encodes every MCU of the single interleaved scan
// that covers all of img's components, inserting restart markers every
// img.RestartInterval MCUs.
func (e *encoder) writeScanData(img *Image, mxx, myy int, dcCodes, acCodes []map[uint8]huffCode, cancel CancelToken) error {
	var prevDC [maxComponents]int32
	mcu := 0
	rst := uint8(0)
	for my := 0; my < myy; my++ {
		for mx := 0; mx < mxx; mx++ {
			if err := checkCancel(cancel); err != nil {
				return err
			}
			for ci := range img.Components {
				h, v := int(img.Components[ci].H), int(img.Components[ci].V)
				for j := 0; j < h*v; j++ {
					var bx, by int
					if len(img.Components) == 1 {
						bx, by = mx, my
					} else {
						bx = mx*h + j%h
						by = my*v + j/h
					}
					blk := img.Planes[ci].At(bx, by)
					prevDC[ci] = e.writeBlock(blk, prevDC[ci], dcCodes[ci], acCodes[ci])
				}
			}
			mcu++
			if e.err != nil {
				return e.err
			}
			if img.RestartInterval > 0 && mcu%img.RestartInterval == 0 && mcu < mxx*myy {
				e.alignByte()
				e.emitByte(0xff)
				e.emitByte(rst0Marker + rst)
				rst = (rst + 1) % 8
				prevDC = [maxComponents]int32{}
			}
		}
	}
	return e.err
}
