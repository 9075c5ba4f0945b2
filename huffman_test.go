package dctdm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// A small canonical table modeled on JPEG's standard luminance DC table
// (Annex K.3.3, table K.3): 12 symbols (sizes 0..11), codes 2 to 9 bits long.
func standardLumaDCTable() *HuffmanTable {
	return &HuffmanTable{
		Class:  dcTable,
		ID:     0,
		Counts: [16]uint8{0: 0, 1: 1, 2: 5, 3: 1, 4: 1, 5: 1, 6: 1, 7: 1, 8: 1},
		Values: []uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	}
}

func TestBuildHuffLUTAndCodesAgree(t *testing.T) {
	table := standardLumaDCTable()
	lut, err := buildHuffLUT(table)
	require.NoError(t, err)
	codes := buildHuffCodes(table)

	require.Equal(t, len(table.Values), len(codes))

	// Every assigned code must decode, via the LUT's min/max-code search
	// path, back to the symbol it was assigned to.
	for _, sym := range table.Values {
		c := codes[sym]
		require.LessOrEqual(t, int(c.nBits), maxCodeLength)
		length := int(c.nBits) - 1
		require.GreaterOrEqual(t, c.code, uint32(lut.minCodes[length]))
		require.LessOrEqual(t, c.code, uint32(lut.maxCodes[length]))
	}
}

func TestBuildHuffLUTRejectsEmptyTable(t *testing.T) {
	table := &HuffmanTable{Class: dcTable, ID: 0}
	_, err := buildHuffLUT(table)
	require.Error(t, err)
}

func TestBuildHuffLUTRejectsSymbolCountMismatch(t *testing.T) {
	table := &HuffmanTable{
		Class:  dcTable,
		ID:     0,
		Counts: [16]uint8{0: 2},
		Values: []uint8{0}, // declares 2 codes of length 1 but only 1 value
	}
	_, err := buildHuffLUT(table)
	require.Error(t, err)
}

func TestCanonicalCodeAssignmentIsPrefixFree(t *testing.T) {
	table := standardLumaDCTable()
	codes := buildHuffCodes(table)

	type entry struct {
		code  uint32
		nBits uint8
	}
	var all []entry
	for _, c := range codes {
		all = append(all, entry{c.code, c.nBits})
	}
	for i := range all {
		for j := range all {
			if i == j {
				continue
			}
			a, b := all[i], all[j]
			if a.nBits > b.nBits {
				continue
			}
			// a must not be a prefix of b.
			shifted := b.code >> (b.nBits - a.nBits)
			require.NotEqual(t, a.code, shifted, "code %d (len %d) is a prefix of code %d (len %d)", a.code, a.nBits, b.code, b.nBits)
		}
	}
}
