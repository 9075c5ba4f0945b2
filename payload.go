package dctdm

import "encoding/binary"

// lengthPrefixSize is the size, in bytes, of the big-endian payload length
// prefix written ahead of every embedded payload (spec §4.5 "Framing").
const lengthPrefixSize = 4

// frame prepends a 4-byte big-endian length prefix to payload, the wire
// form the AC-pair bitstream actually carries.
func frame(payload []byte) []byte {
	out := make([]byte, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	copy(out[lengthPrefixSize:], payload)
	return out
}

// bitWriter hands out the bits of an existing byte slice one at a time,
// MSB-first; used by Embed to turn a framed payload into the bit stream
// DCTDM consumes two bits per coefficient pair.
type bitWriter struct {
	data []byte
	pos  int // next bit to write, counted from the MSB of data[0]
}

func newBitWriter(data []byte) *bitWriter {
	return &bitWriter{data: data}
}

// next returns the next bit (0 or 1), or ok=false once every bit of data
// has been consumed.
func (b *bitWriter) next() (bit int, ok bool) {
	if b.pos >= len(b.data)*8 {
		return 0, false
	}
	byteIdx, bitIdx := b.pos/8, 7-b.pos%8
	bit = int(b.data[byteIdx]>>uint(bitIdx)) & 1
	b.pos++
	return bit, true
}

// remaining reports how many bits are left to consume.
func (b *bitWriter) remaining() int {
	return len(b.data)*8 - b.pos
}

// bitReader is bitWriter's extraction-side mirror: it appends bits one at a
// time and periodically exposes completed bytes.
type bitReader struct {
	buf  []byte
	cur  byte
	nBit int // number of bits already placed into cur, MSB-first
}

// push appends a single bit (0 or 1), completing and appending a byte to
// buf every 8th call.
func (r *bitReader) push(bit int) {
	r.cur = r.cur<<1 | byte(bit&1)
	r.nBit++
	if r.nBit == 8 {
		r.buf = append(r.buf, r.cur)
		r.cur, r.nBit = 0, 0
	}
}

// bytes returns every complete byte accumulated so far.
func (r *bitReader) bytes() []byte {
	return r.buf
}

// unframe validates a 4-byte big-endian length prefix against the bytes
// that follow it and returns the payload it names, or an error if the
// declared length doesn't fit what was actually recovered.
func unframe(data []byte) ([]byte, error) {
	if len(data) < lengthPrefixSize {
		return nil, plainErr(ErrPayloadTruncated, "not enough bits recovered for a length prefix")
	}
	n := binary.BigEndian.Uint32(data)
	rest := data[lengthPrefixSize:]
	if uint64(n) > uint64(len(rest)) {
		return nil, plainErr(ErrPayloadTruncated, "declared payload length exceeds recovered bits")
	}
	return rest[:n], nil
}
