// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dctdm

// JPEG marker bytes, ITU-T T.81 table B.1. Each is preceded by a 0xFF byte
// on the wire; the constants below are the second byte only.
const (
	sof0Marker  = 0xc0 // Start Of Frame (baseline sequential, Huffman).
	sof1Marker  = 0xc1 // Extended sequential, Huffman.
	sof2Marker  = 0xc2 // Progressive, Huffman.
	sof3Marker  = 0xc3 // Lossless, Huffman.
	sof5Marker  = 0xc5
	sof6Marker  = 0xc6
	sof7Marker  = 0xc7
	sof9Marker  = 0xc9 // Extended sequential, arithmetic.
	sof10Marker = 0xca // Progressive, arithmetic.
	sof11Marker = 0xcb
	sof13Marker = 0xcd
	sof14Marker = 0xce
	sof15Marker = 0xcf

	dhtMarker = 0xc4 // Define Huffman Table.
	dqtMarker = 0xdb // Define Quantization Table.
	driMarker = 0xdd // Define Restart Interval.

	sosMarker  = 0xda // Start Of Scan.
	rst0Marker = 0xd0
	rst7Marker = 0xd7

	soiMarker = 0xd8 // Start Of Image.
	eoiMarker = 0xd9 // End Of Image.

	app0Marker  = 0xe0
	app14Marker = 0xee
	app15Marker = 0xef
	comMarker   = 0xfe

	tempMarker = 0x01 // TEM, a reserved fill marker with no payload.
)

// isRSTMarker reports whether m is one of RST0..RST7.
func isRSTMarker(m byte) bool {
	return m >= rst0Marker && m <= rst7Marker
}

// isAPPMarker reports whether m is one of APP0..APP15.
func isAPPMarker(m byte) bool {
	return m >= app0Marker && m <= app15Marker
}

// Baseline-relevant limits, ITU-T T.81 table B.5 / annex B.2.4.
const (
	maxComponents = 4
	maxTq         = 3 // max quantization table selector
	maxTh         = 3 // max Huffman table selector (baseline restricts this to 1)
	maxTc         = 1 // table class: 0 = DC, 1 = AC

	dcTable = 0
	acTable = 1

	blockSize = 64 // an 8x8 DCT block, in zigzag order
)

// zigzag[i] is the row-major index of the i'th coefficient in zigzag order,
// i.e. block-in-zigzag-order[i] == block-in-natural-order[zigzag[i]]. Not
// needed for coefficient-plane round-tripping (the plane is kept in zigzag
// order throughout, per spec §4.3 "Output"), and DCTDM needs it nowhere
// either: zigzag index *is* the engine's native indexing. No code in this
// package reads it; it is kept for documentation/debugging use (e.g.
// pretty-printing a block).
var zigzag = [blockSize]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}
