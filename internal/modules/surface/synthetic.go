package surface

import (
	"hash/fnv"
	"math/rand/v2"
)

// syntheticIVPremium scales realized volatility up to a base implied level;
// implied vol trades at a premium to realized in normal regimes.
const syntheticIVPremium = 1.25

// syntheticVolFloor keeps the generated term structure off zero when the
// trailing history is flat.
const syntheticVolFloor = 0.10

// BuildSynthetic derives a surface entirely from trailing realized
// volatility. The generator is deterministic: the builder seed and an fnv64
// hash of the symbol feed a PCG source, so identical inputs always produce
// the identical surface. The result is flagged Synthetic.
func (b *Builder) BuildSynthetic(symbol string, spot, realizedVol float64) Surface {
	rng := rand.New(rand.NewPCG(b.seed, symbolSeed(symbol)))

	baseIV := realizedVol * syntheticIVPremium
	if baseIV < syntheticVolFloor {
		baseIV = syntheticVolFloor
	}

	m := b.cfg.SyntheticMultipliers
	s := Surface{
		Symbol:      symbol,
		Spot:        spot,
		IV1M:        baseIV * m[0],
		IV3M:        baseIV * m[1],
		IV6M:        baseIV * m[2],
		IV1Y:        baseIV * m[3],
		IVLeaps:     baseIV * b.cfg.SyntheticLeapsMult,
		RealizedVol: realizedVol,
		Synthetic:   true,
	}

	s.TermSlope = (s.IV1Y - s.IV1M) / 11.0
	s.IVRVSpread = s.IV3M - realizedVol

	// Small put-premium skew with a seeded perturbation. Negative skew means
	// downside protection is priced richer than upside.
	s.Skew = -0.02 + (rng.Float64()-0.5)*0.02

	// Plausible positioning totals for a mid-cap chain. These only feed the
	// momentum and convexity factors, which divide them against each other.
	s.TotalDelta = rng.Float64()*20000 - 5000
	s.TotalVega = 5000 + rng.Float64()*20000
	s.TotalGamma = 100 + rng.Float64()*1900

	s.CallPutRatio = 0.8 + rng.Float64()*0.6

	return s
}

// symbolSeed folds the ticker into a stable 64-bit stream selector so
// distinct symbols draw from distinct deterministic streams.
func symbolSeed(symbol string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return h.Sum64()
}
