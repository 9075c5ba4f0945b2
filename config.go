package dctdm

// Config holds the parameters that must be shared, byte-for-byte identical,
// between an Embed call and the Extract call that reverses it (spec §6).
// Config is never persisted into the stego image; the caller is
// responsible for remembering it out of band.
type Config struct {
	// Delta is the embedding step size δ. Must be a positive integer.
	Delta int

	// PairsPerBlock is K, the number of AC zigzag positions (starting at
	// index 1) used per luma block. Pairs = K/2. Must be even and >= 2.
	PairsPerBlock int

	// Component is the JPEG component id (as assigned in SOF0, not a
	// zero-based index) targeted for embedding. Defaults to 1, the
	// conventional id of the luma channel.
	Component uint8

	// SkipZeroPairs, if true, skips AC pairs where both coefficients were
	// originally zero. Embed and Extract must agree on this flag.
	SkipZeroPairs bool
}

// DefaultConfig returns the configuration named in spec §6: δ=10, K=8,
// luma (component id 1), no zero-pair skipping.
func DefaultConfig() Config {
	return Config{
		Delta:         10,
		PairsPerBlock: 8,
		Component:     1,
		SkipZeroPairs: false,
	}
}

// Validate rejects parameter combinations that cannot produce a coherent
// embed/extract pair, mirroring the upfront validation the original
// DCTDM_GUI.py performs before touching any image data.
func (c Config) Validate() error {
	if c.Delta <= 0 {
		return plainErr(ErrInvalidConfiguration, "delta must be positive")
	}
	if c.PairsPerBlock <= 0 {
		return plainErr(ErrInvalidConfiguration, "pairs_per_block must be at least 1")
	}
	if c.PairsPerBlock%2 != 0 {
		return plainErr(ErrInvalidConfiguration, "pairs_per_block must be even")
	}
	if c.PairsPerBlock > blockSize-1 {
		return plainErr(ErrInvalidConfiguration, "pairs_per_block exceeds the 63 available AC positions")
	}
	return nil
}

// pairsPerBlock returns K/2, the number of AC coefficient pairs examined
// per targeted block.
func (c Config) pairsPerBlock() int {
	return c.PairsPerBlock / 2
}
