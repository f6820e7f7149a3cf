package rrs

import (
	"github.com/mjkal/tinybvh/bvh"
)

// Mode selects the ray sampling strategy.
type Mode int

const (
	// ModeInterior spawns random paths from a regular grid inside the
	// scene. Suited to architectural scenes the camera sits inside of.
	ModeInterior Mode = iota + 1

	// ModeExterior spawns paths from a sphere surrounding the scene,
	// aimed roughly at its center. Avoids paths starting inside objects;
	// suited to single-object scenes.
	ModeExterior
)

func (m Mode) String() string {
	switch m {
	case ModeInterior:
		return "interior"
	case ModeExterior:
		return "exterior"
	}
	return "unknown"
}

// Stratum is the sampling role a stored ray was classified into.
type Stratum int

const (
	StratumPrimary Stratum = iota
	StratumShortSecondary
	StratumLongSecondary
	StratumEscape
)

func (s Stratum) String() string {
	switch s {
	case StratumPrimary:
		return "primary"
	case StratumShortSecondary:
		return "short secondary"
	case StratumLongSecondary:
		return "long secondary"
	case StratumEscape:
		return "escape"
	}
	return "unknown"
}

// StratumSlice is a view over one stratum's rays within a set.
type StratumSlice struct {
	Role Stratum
	Rays []bvh.Ray
}

// RaySet is a fixed, stratified sample of rays. Once generated it is
// immutable and shared by every subsequent cost evaluation in a session:
// comparing hierarchies only works if they are measured against the same
// queries.
type RaySet struct {
	Mode Mode
	Rays []bvh.Ray
}

// Len returns the total ray count.
func (s *RaySet) Len() int {
	return len(s.Rays)
}

// Strata returns views over the set's strata in storage order. Interior
// sets carry four equal strata; exterior sets carry three, with the
// primary stratum holding half the rays.
func (s *RaySet) Strata() []StratumSlice {
	n := len(s.Rays)
	quarter := n / 4
	if s.Mode == ModeExterior {
		return []StratumSlice{
			{StratumPrimary, s.Rays[:n/2]},
			{StratumShortSecondary, s.Rays[n/2 : 3*quarter]},
			{StratumEscape, s.Rays[3*quarter:]},
		}
	}
	return []StratumSlice{
		{StratumPrimary, s.Rays[:quarter]},
		{StratumShortSecondary, s.Rays[quarter : 2*quarter]},
		{StratumLongSecondary, s.Rays[2*quarter : 3*quarter]},
		{StratumEscape, s.Rays[3*quarter:]},
	}
}
