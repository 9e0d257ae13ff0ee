package blend

// MaxBlendLimit caps the interleaved prefix.
const MaxBlendLimit = 100

// Defaults.
const (
	DefaultBlendLimit = MaxBlendLimit
	DefaultBlockSize  = 10
)

// Config tunes the interleave. Zero values select defaults.
type Config struct {
	BlendLimit int
	BlockSize  int
	// BoostPosition defaults to BlockSize. Nil means unset so 0 stays expressible.
	BoostPosition *int
	BoostCount    int
}

// ClampBlendLimit returns min(n, MaxBlendLimit), or the default for non-positive n.
func ClampBlendLimit(n int) int {
	if n <= 0 {
		return DefaultBlendLimit
	}
	return min(n, MaxBlendLimit)
}

// settings is a Config with every default resolved.
type settings struct {
	blendLimit    int
	blockSize     int
	boostPosition int
	boostCount    int
}

func (c Config) resolve() settings {
	s := settings{
		blendLimit: ClampBlendLimit(c.BlendLimit),
		blockSize:  c.BlockSize,
		boostCount: max(c.BoostCount, 0),
	}
	if s.blockSize <= 0 {
		s.blockSize = DefaultBlockSize
	}
	s.boostPosition = s.blockSize
	if c.BoostPosition != nil {
		s.boostPosition = max(*c.BoostPosition, 0)
	}
	return s
}
