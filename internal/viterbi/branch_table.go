// Package viterbi implements the rate-1/4 K=7 convolutional decoder shared
// by the FIC and MSC channels. The branch table precomputes, for every
// trellis state reachable after a shift, the expected output symbol of
// each of the 4 generator polynomials assuming the bit that was just
// shifted out of the register (the oldest bit, which determines whether
// the true predecessor state had its top bit set) was zero; the
// complementary predecessor's expected symbols are the bitwise complement,
// since every rate-1/4 DAB polynomial taps the leading (K-th) register
// stage. This mirrors the branch-table/butterfly structure of
// viterbi_branch_table.h and viterbi_decoder_scalar.h while using a layout
// indexed by full successor state rather than a compressed half-state,
// which keeps the butterfly step in decoder.go a direct, easily verified
// per-transition computation.
package viterbi

// ConstraintLength is K for the DAB mother code.
const ConstraintLength = 7

// NumStates is the number of trellis states, 2^(K-1).
const NumStates = 1 << (ConstraintLength - 1)

// topBit is the bit distinguishing the two predecessors of a given
// successor state (the bit shifted out of the K-1 bit state register).
const topBit = NumStates

// Rate is the number of output symbols per input bit for the mother code
// (rate 1/4, before puncturing).
const Rate = 4

// MotherPolynomials are the DAB rate-1/4 K=7 generator polynomials, decimal
// form of the bit-reversed octal constants 133,171,145,133 used by the
// reference decoder. Every polynomial here taps the leading register
// stage (bit value NumStates), which is what makes the complementary
// predecessor's branch table the logical complement of this one.
var MotherPolynomials = [Rate]uint32{109, 79, 83, 109}

// Soft decision symbols are unsigned bytes: 0 represents a confidently
// received '0', 255 a confidently received '1', 128 an erasure/neutral
// value used to fill punctured positions.
const (
	SoftLow     uint8 = 0
	SoftHigh    uint8 = 255
	SoftNeutral uint8 = 128
)

// BranchTable holds, for each of the Rate polynomials and each of the
// NumStates successor states, whether the expected symbol is a 1 (true)
// or 0 (false), for the predecessor whose top bit was zero.
type BranchTable struct {
	bit [Rate][NumStates]bool
}

// NewBranchTable computes the branch table for MotherPolynomials.
func NewBranchTable() *BranchTable {
	bt := &BranchTable{}
	for i := 0; i < Rate; i++ {
		for state := 0; state < NumStates; state++ {
			bt.bit[i][state] = parity(uint32(state)&MotherPolynomials[i]) != 0
		}
	}
	return bt
}

// parity returns 1 if v has an odd number of set bits, else 0.
func parity(v uint32) uint32 {
	v ^= v >> 16
	v ^= v >> 8
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v & 1
}

// expected returns the soft symbol expected for polynomial i at successor
// state ns, for the predecessor state with top bit equal to fromTopBit.
func (bt *BranchTable) expected(i int, ns int, fromTopBit bool) uint8 {
	bit := bt.bit[i][ns]
	if fromTopBit {
		bit = !bit
	}
	if bit {
		return SoftHigh
	}
	return SoftLow
}
