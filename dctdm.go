package dctdm

import (
	"encoding/binary"
	"fmt"
)

// acClampMin and acClampMax bound every AC coefficient DCTDM writes, the
// signed 11-bit range named in spec §4.5.
const (
	acClampMin int32 = -1024
	acClampMax int32 = 1023
)

// Capacity reports how many payload bytes (after the 4-byte length prefix)
// Embed can currently fit into img's targeted component under cfg. It walks
// every candidate pair rather than using the closed-form estimate, so it is
// exact for any SkipZeroPairs setting; with SkipZeroPairs off it reduces to
// floor(luma_blocks*PairsPerBlock/8) - 4.
func Capacity(img *Image, cfg Config) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	idx := img.ComponentIndex(cfg.Component)
	if idx < 0 {
		return 0, plainErr(ErrInvalidConfiguration, "target component is not present in the image")
	}
	plane := img.Planes[idx]
	pairs := cfg.pairsPerBlock()
	bits := 0
	for bi := range plane.Blocks {
		blk := &plane.Blocks[bi]
		for p := 0; p < pairs; p++ {
			z1, z2 := 1+2*p, 2+2*p
			if cfg.SkipZeroPairs && blk[z1] == 0 && blk[z2] == 0 {
				continue
			}
			bits += 2
		}
	}
	capacityBytes := bits/8 - lengthPrefixSize
	if capacityBytes < 0 {
		capacityBytes = 0
	}
	return capacityBytes, nil
}

// Embed writes payload, length-prefixed, into img's targeted AC coefficient
// pairs, in place. On any error img's coefficient planes may have been
// partially modified and must be discarded; per spec §5 no partial result
// is meaningful.
func Embed(img *Image, payload []byte, cfg Config, cancel CancelToken) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	idx := img.ComponentIndex(cfg.Component)
	if idx < 0 {
		return plainErr(ErrInvalidConfiguration, "target component is not present in the image")
	}

	capacity, err := Capacity(img, cfg)
	if err != nil {
		return err
	}
	if len(payload) > capacity {
		return plainErr(ErrPayloadTooLarge, fmt.Sprintf("payload of %d bytes exceeds capacity of %d bytes", len(payload), capacity))
	}

	bw := newBitWriter(frame(payload))
	delta := int32(cfg.Delta)

	plane := img.Planes[idx]
	pairs := cfg.pairsPerBlock()
	pairIdx := 0
	for bi := range plane.Blocks {
		blk := &plane.Blocks[bi]
		for p := 0; p < pairs; p++ {
			if err := checkCancel(cancel); err != nil {
				return err
			}
			z1, z2 := 1+2*p, 2+2*p
			ac1, ac2 := blk[z1], blk[z2]
			if cfg.SkipZeroPairs && ac1 == 0 && ac2 == 0 {
				pairIdx++
				continue
			}
			if bw.remaining() == 0 {
				// Frame exhausted: leave every remaining pair untouched,
				// spec §4.5 "Framing".
				pairIdx++
				continue
			}
			b1, _ := bw.next()
			b2, _ := bw.next()
			newAC1, newAC2, ok := embedPair(ac1, ac2, delta, b1, b2)
			if !ok {
				return pairErr(ErrClampingExhausted, pairIdx, "coefficient pair could not reach its target difference without clamping out of the signed 11-bit range")
			}
			blk[z1], blk[z2] = newAC1, newAC2
			pairIdx++
		}
	}
	return nil
}

// Extract recovers the payload Embed wrote into img under the identical
// cfg, stopping as soon as the declared length has been satisfied.
func Extract(img *Image, cfg Config, cancel CancelToken) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	idx := img.ComponentIndex(cfg.Component)
	if idx < 0 {
		return nil, plainErr(ErrInvalidConfiguration, "target component is not present in the image")
	}

	delta := int32(cfg.Delta)
	plane := img.Planes[idx]
	pairs := cfg.pairsPerBlock()

	capacity, err := Capacity(img, cfg)
	if err != nil {
		return nil, err
	}

	var br bitReader
	length := -1
	pairIdx := 0

outer:
	for bi := range plane.Blocks {
		blk := &plane.Blocks[bi]
		for p := 0; p < pairs; p++ {
			if err := checkCancel(cancel); err != nil {
				return nil, err
			}
			z1, z2 := 1+2*p, 2+2*p
			ac1, ac2 := blk[z1], blk[z2]
			if cfg.SkipZeroPairs && ac1 == 0 && ac2 == 0 {
				pairIdx++
				continue
			}
			b1, b2 := extractPair(ac1, ac2, delta)
			br.push(b1)
			br.push(b2)
			pairIdx++

			if length < 0 && len(br.bytes()) >= lengthPrefixSize {
				length = int(binary.BigEndian.Uint32(br.bytes()[:lengthPrefixSize]))
				if length > capacity {
					return nil, plainErr(ErrInvalidLength, fmt.Sprintf("declared payload length %d exceeds this image's capacity of %d bytes", length, capacity))
				}
			}
			if length >= 0 && len(br.bytes()) >= lengthPrefixSize+length {
				break outer
			}
		}
	}

	if length < 0 {
		return nil, plainErr(ErrPayloadTruncated, "not enough coefficient pairs to recover a length prefix")
	}
	payload, err := unframe(br.bytes())
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// embedPair applies the DCT Difference Modulation rule of spec §4.5 to one
// AC coefficient pair. k is the bucket the *magnitude* of the original
// difference falls into, floor(|D|/delta) — computed from the magnitude,
// the same way on both the embed and extract sides, so the two agree
// regardless of which bit pattern moves D within that bucket. Keying k off
// the post-embed difference instead (round(D/delta), as spec.md's literal
// table reads if taken as a single self-contained step) is not
// self-consistent: embedding (0,1) or (1,0) shifts D into the neighboring
// bucket, so an extractor that recomputes k from the modified D derives
// the wrong bucket and silently recovers the wrong symbol. This
// magnitude-first, sign-separate construction is grounded on
// original_source/DCTDM.py's embed_message/extract_message (~line 1330
// onward), which computes k from abs(D_original) before ever choosing a
// signed target — see DESIGN.md.
//
// Within bucket k, the four bit patterns place D at one of four signed
// targets: (0,0) -> +eps1, (0,1) -> +eps2, (1,0) -> -eps2, (1,1) -> -eps1,
// where eps1 = floor(delta/4) and eps2 = floor(3*delta/4). The target
// difference is split between the two coefficients favoring their
// existing sum (ceil/floor of half the adjustment), then clamped to the
// signed 11-bit range. embedPair verifies the result actually extracts
// back to (b1,b2) before returning ok=true, which also catches the rare
// case where clamping pushed the pair into a different bucket.
func embedPair(ac1, ac2, delta int32, b1, b2 int) (int32, int32, bool) {
	d := ac1 - ac2
	absD := d
	if absD < 0 {
		absD = -absD
	}
	k := absD / delta // floor, since absD >= 0 and delta > 0

	eps1 := delta / 4       // floor(delta/4)
	eps2 := (3 * delta) / 4 // floor(3*delta/4)

	var target int32
	switch {
	case b1 == 0 && b2 == 0:
		target = k*delta + eps1
	case b1 == 0 && b2 == 1:
		target = k*delta + eps2
	case b1 == 1 && b2 == 0:
		target = -(k*delta + eps2)
	default: // b1 == 1 && b2 == 1
		target = -(k*delta + eps1)
	}

	diff := target - d
	newAC1 := clampAC(ac1 + ceilDivInt32(diff, 2))
	newAC2 := clampAC(ac2 - floorDivInt32(diff, 2))

	gotB1, gotB2 := extractPair(newAC1, newAC2, delta)
	if gotB1 != b1 || gotB2 != b2 {
		return 0, 0, false
	}
	return newAC1, newAC2, true
}

// extractPair recovers the two bits embedPair wrote. k is recomputed from
// the (possibly shifted) post-embed difference's magnitude the same way
// embedPair computed it from the original difference's magnitude; the
// bucket boundary at k*delta + delta/2 (doubled to 2*absD >= 2*k*delta +
// delta to stay in integers) separates the eps1 half of the bucket from
// the eps2 half, and the sign of D separates the two bit-1 values.
func extractPair(ac1, ac2, delta int32) (int, int) {
	d := ac1 - ac2
	absD := d
	if absD < 0 {
		absD = -absD
	}
	k := absD / delta
	isEps2 := 2*absD >= 2*k*delta+delta

	if d >= 0 {
		if isEps2 {
			return 0, 1
		}
		return 0, 0
	}
	if isEps2 {
		return 1, 0
	}
	return 1, 1
}

func clampAC(v int32) int32 {
	if v < acClampMin {
		return acClampMin
	}
	if v > acClampMax {
		return acClampMax
	}
	return v
}

// floorDivInt32 computes floor(a/b) for b > 0.
func floorDivInt32(a, b int32) int32 {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// ceilDivInt32 computes ceil(a/b) for b > 0.
func ceilDivInt32(a, b int32) int32 {
	return -floorDivInt32(-a, b)
}
