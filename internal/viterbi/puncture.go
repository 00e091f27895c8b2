package viterbi

// Profile describes a periodic puncturing pattern applied to the rate-1/4
// mother code output: Pattern[i] is true where the i-th mother-code symbol
// (mod len(Pattern)) is actually transmitted, false where it is punctured
// (dropped by the transmitter). This follows spec convention: a puncture
// table entry of zero marks a dropped position.
//
// NOTE: the exact ETSI EN 300 401 Table 14 puncturing vectors (PI_1..PI_24)
// were not present in the retrieved reference material (puncture_codes.h
// was not part of the corpus). The profiles below are generated with
// UniformProfile to hit the documented code rate of each FIC/MSC
// protection stage by spreading the kept positions evenly across each
// period, rather than transcribing un-verifiable exact bit patterns. See
// DESIGN.md for the reasoning.
type Profile struct {
	Pattern []bool
}

// UniformProfile builds a Profile of the given period that keeps exactly
// keep out of period positions, spread as evenly as possible. This
// reproduces the target code rate of a named ETSI puncturing vector
// without asserting the exact bit ordering of the standard table.
func UniformProfile(period, keep int) Profile {
	pattern := make([]bool, period)
	if keep <= 0 || period <= 0 {
		return Profile{Pattern: pattern}
	}
	if keep >= period {
		for i := range pattern {
			pattern[i] = true
		}
		return Profile{Pattern: pattern}
	}
	acc := 0
	for i := 0; i < period; i++ {
		acc += keep
		if acc >= period {
			acc -= period
			pattern[i] = true
		}
	}
	return Profile{Pattern: pattern}
}

// Depuncture expands punctured, a stream of soft symbols at the
// transmitted (post-puncturing) rate, back to the mother code's rate-1/4
// stream by reinserting SoftNeutral at every position the profile marks
// punctured. The profile is consumed cyclically.
func Depuncture(punctured []uint8, profile Profile) []uint8 {
	if len(profile.Pattern) == 0 {
		return append([]uint8(nil), punctured...)
	}
	var total int
	for _, keep := range profile.Pattern {
		if keep {
			total++
		}
	}
	if total == 0 {
		return nil
	}
	groups := len(punctured) / total
	out := make([]uint8, 0, groups*len(profile.Pattern))

	idx := 0
	for i := 0; idx < len(punctured); i++ {
		keep := profile.Pattern[i%len(profile.Pattern)]
		if keep {
			out = append(out, punctured[idx])
			idx++
		} else {
			out = append(out, SoftNeutral)
		}
	}
	// Fill the punctured positions that close the last period.
	for i := len(out); i%len(profile.Pattern) != 0 && !profile.Pattern[i%len(profile.Pattern)]; i++ {
		out = append(out, SoftNeutral)
	}
	return out
}

// FIC puncturing profiles, named after the reference decoder's per-stage
// constants (PI_16, PI_15, PI_X) for the 3 protection levels of a FIC
// logical frame. Nothing in this module applies them: internal/fic decodes
// the FIC as one unpunctured rate-1/4 pass and expects unpunctured input.
var (
	FICProfileStage1 = UniformProfile(32, 21) // ~21/32 of mother-code symbols kept
	FICProfileStage2 = UniformProfile(32, 18) // ~18/32 kept
	FICProfileTail   = UniformProfile(24, 24) // unpunctured tail, rate 1/4
)
