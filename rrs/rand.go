package rrs

import (
	"github.com/mjkal/tinybvh/types"
)

// DefaultSeed seeds the sampling RNG when the caller does not supply one.
// A fixed seed makes ray sets reproducible across runs, which is what lets
// two hierarchies measured in different sessions be compared at all.
const DefaultSeed uint32 = 0x123456

func xorShift32(state *uint32) uint32 {
	*state ^= *state << 13
	*state ^= *state >> 17
	*state ^= *state << 5
	return *state
}

func randFloat(state *uint32) float32 {
	return float32(xorShift32(state)) * (1.0 / 4294967296.0)
}

// randUnitVec3 returns a uniformly distributed unit vector, by rejection
// sampling inside the unit sphere.
func randUnitVec3(state *uint32) types.Vec3 {
	for {
		v := types.Vec3{
			randFloat(state)*2 - 1,
			randFloat(state)*2 - 1,
			randFloat(state)*2 - 1,
		}
		l := v.Len()
		if l > 0.01 && l <= 1 {
			return v.Mul(1.0 / l)
		}
	}
}
