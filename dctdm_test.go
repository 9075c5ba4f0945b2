package dctdm

import (
	"bytes"
	"encoding/binary"
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeBytes(t *testing.T, data []byte) *Image {
	t.Helper()
	img, err := Decode(bytes.NewReader(data), nil)
	require.NoError(t, err)
	return img
}

func TestEmbedExtractRoundTrip(t *testing.T) {
	// delta=1 and delta=2 are deliberately excluded: eps1 = floor(delta/4)
	// is 0 for any delta<4, so (1,1)'s target -(k*delta+eps1) is 0, the same
	// as (0,0)'s, whenever |D| < delta; at delta=1 eps2 is 0 as well, which
	// merges (0,1) with (0,0) and (1,0) with (1,1) in every bucket. embedPair
	// legitimately refuses those symbols at those deltas rather than
	// silently losing bits. See TestEmbedPairDeltaOneIsDegenerate and
	// TestEmbedExtractPairAllSymbols, which exercise that behavior directly
	// instead of through a full payload round trip.
	deltas := []int{4, 10, 64}
	payloads := [][]byte{
		{},
		[]byte("h"),
		[]byte("hi"),
		bytes.Repeat([]byte("dctdm"), 40),
	}
	for _, delta := range deltas {
		cfg := DefaultConfig()
		cfg.Delta = delta

		data := synthesizeJPEG(t, 96, 80, image.YCbCrSubsampleRatio420, 90)
		for _, payload := range payloads {
			img := decodeBytes(t, data)
			capacity, err := Capacity(img, cfg)
			require.NoError(t, err)
			if len(payload) > capacity {
				continue
			}

			require.NoError(t, Embed(img, payload, cfg, nil))

			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, img, nil))

			img2, err := Decode(bytes.NewReader(buf.Bytes()), nil)
			require.NoError(t, err)

			got, err := Extract(img2, cfg, nil)
			require.NoError(t, err)
			require.Equal(t, payload, got, "delta=%d payload_len=%d", delta, len(payload))
		}
	}
}

func TestEmbedIdentityScenario(t *testing.T) {
	data := solidGrayJPEG(t, 64, 64, 128, 90)
	cfg := DefaultConfig()

	img := decodeBytes(t, data)
	require.NoError(t, Embed(img, []byte("hi"), cfg, nil))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, nil))

	img2 := decodeBytes(t, buf.Bytes())
	got, err := Extract(img2, cfg, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), got)
}

func TestEmptyPayloadFixpoint(t *testing.T) {
	data := synthesizeJPEG(t, 64, 64, image.YCbCrSubsampleRatio420, 90)
	cfg := DefaultConfig()

	before := decodeBytes(t, data)
	after := decodeBytes(t, data)
	require.NoError(t, Embed(after, nil, cfg, nil))

	idx := after.ComponentIndex(cfg.Component)
	require.GreaterOrEqual(t, idx, 0)

	pairs := cfg.pairsPerBlock()
	modifiedPairs := 0
	for bi := range before.Planes[idx].Blocks {
		bBlk := &before.Planes[idx].Blocks[bi]
		aBlk := &after.Planes[idx].Blocks[bi]
		for p := 0; p < pairs; p++ {
			z1, z2 := 1+2*p, 2+2*p
			if bBlk[z1] != aBlk[z1] || bBlk[z2] != aBlk[z2] {
				modifiedPairs++
			}
		}
	}
	// 4 header bytes * 8 bits / 2 bits-per-pair = 16 pairs.
	require.LessOrEqual(t, modifiedPairs, 16)

	for ci := range before.Planes {
		if ci == idx {
			continue
		}
		require.Equal(t, before.Planes[ci].Blocks, after.Planes[ci].Blocks, "non-targeted component must be untouched")
	}
}

func TestCapacityBoundary(t *testing.T) {
	data := synthesizeJPEG(t, 640, 480, image.YCbCrSubsampleRatio420, 90)
	cfg := DefaultConfig()

	img := decodeBytes(t, data)
	capacity, err := Capacity(img, cfg)
	require.NoError(t, err)

	idx := img.ComponentIndex(cfg.Component)
	lumaBlocks := img.Planes[idx].BlocksWide * img.Planes[idx].BlocksHigh
	require.Equal(t, lumaBlocks*cfg.PairsPerBlock/8-lengthPrefixSize, capacity)

	rng := rand.New(rand.NewSource(1))
	exact := make([]byte, capacity)
	rng.Read(exact)
	img1 := decodeBytes(t, data)
	require.NoError(t, Embed(img1, exact, cfg, nil))

	overflow := make([]byte, capacity+1)
	rng.Read(overflow)
	img2 := decodeBytes(t, data)
	err = Embed(img2, overflow, cfg, nil)
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, ErrPayloadTooLarge, derr.Kind)
}

func TestExtractZeroZeroPair(t *testing.T) {
	// A pair where both coefficients start at zero must decode to (0,0):
	// D=0, k=|0|/delta=0, isEps2 is false since 0 < delta, and D>=0.
	b1, b2 := extractPair(0, 0, 10)
	require.Equal(t, 0, b1)
	require.Equal(t, 0, b2)
}

// TestEmbedPairDeltaOneIsDegenerate documents, rather than hides, delta=1's
// known limitation: eps1 = floor(1/4) = 0 and eps2 = floor(3/4) = 0, so the
// (0,0) and (0,1) target differences are both k*1+0 (and symmetrically for
// (1,0)/(1,1)). A zero remainder extracts as (0,0) or, for a negative D, as
// (1,1), so those two succeed (here k=2, so (1,1)'s target -2 keeps its
// sign); embedPair's self-check correctly rejects (0,1) and (1,0) rather
// than embedding them as the wrong symbol.
func TestEmbedPairDeltaOneIsDegenerate(t *testing.T) {
	const delta = int32(1)

	newAC1, newAC2, ok := embedPair(5, 3, delta, 0, 0)
	require.True(t, ok)
	gotB1, gotB2 := extractPair(newAC1, newAC2, delta)
	require.Equal(t, 0, gotB1)
	require.Equal(t, 0, gotB2)

	_, _, ok = embedPair(5, 3, delta, 0, 1)
	require.False(t, ok, "(0,1) collides with (0,0)'s target at delta=1 and must be refused, not silently miscoded")

	newAC1, newAC2, ok = embedPair(5, 3, delta, 1, 1)
	require.True(t, ok)
	gotB1, gotB2 = extractPair(newAC1, newAC2, delta)
	require.Equal(t, 1, gotB1)
	require.Equal(t, 1, gotB2)

	_, _, ok = embedPair(5, 3, delta, 1, 0)
	require.False(t, ok, "(1,0) collides with (1,1)'s target at delta=1 and must be refused, not silently miscoded")
}

// TestEmbedExtractPairAllSymbols directly exercises embedPair/extractPair
// (no codec, no Embed/Extract framing) across every 2-bit symbol, a spread
// of starting coefficients, and a spread of deltas. This is the test that
// would have caught an embed/extract scheme under which only (0,0)/(1,1)
// survive the round trip while (0,1)/(1,0) silently decode to the wrong
// symbol.
//
// embedPair can legitimately report ok=false for two distinct reasons: the
// signed 11-bit clamp moved the pair out of its target bucket, or delta is
// small enough that eps1 = floor(delta/4) and/or eps2 = floor(3*delta/4)
// collapse two symbols onto the same target difference (for delta<4, eps1=0
// puts (1,1) on (0,0)'s target of 0 whenever |D| < delta; at delta=1, eps2=0
// also merges (0,1) with (0,0) and (1,0) with (1,1) in every bucket). Either way embedPair's self-check must never return a pair
// that extracts to the wrong symbol, so this test only skips failures, it
// never accepts a wrong answer.
func TestEmbedExtractPairAllSymbols(t *testing.T) {
	deltas := []int32{1, 2, 7, 10, 64}
	starts := [][2]int32{
		{0, 0}, {5, -5}, {-5, 5}, {100, 80}, {-100, -80},
		{500, 500}, {-500, 503}, {1000, -1000}, {3, 1000}, {-1000, -3},
	}
	symbols := [][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}}

	for _, delta := range deltas {
		successes := 0
		for _, start := range starts {
			for _, sym := range symbols {
				ac1, ac2 := start[0], start[1]
				newAC1, newAC2, ok := embedPair(ac1, ac2, delta, sym[0], sym[1])
				if !ok {
					continue
				}
				successes++
				gotB1, gotB2 := extractPair(newAC1, newAC2, delta)
				require.Equal(t, sym[0], gotB1, "delta=%d ac1=%d ac2=%d sym=%v newAC1=%d newAC2=%d", delta, ac1, ac2, sym, newAC1, newAC2)
				require.Equal(t, sym[1], gotB2, "delta=%d ac1=%d ac2=%d sym=%v newAC1=%d newAC2=%d", delta, ac1, ac2, sym, newAC1, newAC2)
			}
		}
		if delta >= 4 {
			// Above the eps1/eps2 collapse threshold every symbol at every
			// start coefficient should succeed; a drop here would mean a
			// regression in the clamp or bucket logic, not the known
			// small-delta degeneracy.
			require.Equal(t, len(starts)*len(symbols), successes, "delta=%d: expected every symbol to embed successfully", delta)
		} else {
			require.Greater(t, successes, 0, "delta=%d: expected at least some symbols to embed successfully", delta)
		}
	}
}

func TestEmbedRejectsComponentNotPresent(t *testing.T) {
	data := synthesizeJPEG(t, 32, 32, image.YCbCrSubsampleRatio420, 90)
	cfg := DefaultConfig()
	cfg.Component = 99

	img := decodeBytes(t, data)
	err := Embed(img, []byte("x"), cfg, nil)
	require.Error(t, err)
}

func TestExtractRejectsDeclaredLengthBeyondCapacity(t *testing.T) {
	data := synthesizeJPEG(t, 32, 32, image.YCbCrSubsampleRatio420, 90)
	cfg := DefaultConfig()

	img := decodeBytes(t, data)
	capacity, err := Capacity(img, cfg)
	require.NoError(t, err)

	// Hand-craft a frame whose length prefix is larger than the image
	// could ever hold, then embed it directly via bitWriter/embedPair so
	// Embed's own capacity check is bypassed.
	oversized := make([]byte, 4)
	binary.BigEndian.PutUint32(oversized, uint32(capacity+1000))
	bw := newBitWriter(oversized)
	delta := int32(cfg.Delta)
	idx := img.ComponentIndex(cfg.Component)
	plane := img.Planes[idx]
	pairs := cfg.pairsPerBlock()
	for bi := range plane.Blocks {
		blk := &plane.Blocks[bi]
		for p := 0; p < pairs && bw.remaining() > 0; p++ {
			z1, z2 := 1+2*p, 2+2*p
			b1, _ := bw.next()
			b2, _ := bw.next()
			newAC1, newAC2, ok := embedPair(blk[z1], blk[z2], delta, b1, b2)
			require.True(t, ok)
			blk[z1], blk[z2] = newAC1, newAC2
		}
	}

	_, err = Extract(img, cfg, nil)
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, ErrInvalidLength, derr.Kind)
}

func TestExtractFailsOnUnembeddedImage(t *testing.T) {
	data := solidGrayJPEG(t, 16, 16, 0, 90)
	cfg := DefaultConfig()
	cfg.PairsPerBlock = 2

	img := decodeBytes(t, data)
	_, err := Extract(img, cfg, nil)
	require.Error(t, err)
}
