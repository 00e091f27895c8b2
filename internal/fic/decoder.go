// Package fic implements the Fast Information Channel decoder: per-CIF
// Viterbi decoding, descrambling, and per-FIB CRC checking, grounded on
// fic_decoder.cpp. The FIC carries ensemble/service/subchannel metadata
// (FIGs, decoded by internal/fig) and is, unlike the MSC, transmitted
// unpunctured at the mother code's full rate-1/4 for maximum robustness:
// the reference decoder's 3-stage VITDEC_RUN sequence
// (128*21+128*3+24 = 3096 coded bits, tail-flushed with 6 zero bits back
// to state 0) sums to exactly 4 mother-code symbols per decoded bit with
// no net puncturing, which this decoder implements directly as a single
// unpunctured Viterbi pass.
package fic

import (
	"fmt"

	"github.com/cwsl/dabradio/internal/crc"
	"github.com/cwsl/dabradio/internal/scrambler"
	"github.com/cwsl/dabradio/internal/viterbi"
)

// FIBLen is the fixed length of one Fast Information Block: 30 data bytes
// followed by a 2-byte CRC-16.
const FIBLen = 32

// FIBsPerCIF is the number of FIBs carried in every CIF regardless of
// transmission mode.
const FIBsPerCIF = 3

// CodedBitsPerCIF is the number of rate-1/4 mother-code soft symbols
// making up one CIF's FIC data (before puncturing, of which there is
// none for the FIC).
const CodedBitsPerCIF = 128*21 + 128*3 + 24

// tailBits is the number of encoder-flush bits appended after the FIB
// data and subtracted from the decoded output.
const tailBits = 6

// decodedBitsWithTail is the number of useful bits the Viterbi decoder must
// recover per CIF, including the tail flush bits.
const decodedBitsWithTail = CodedBitsPerCIF/viterbi.Rate
const dataBits = decodedBitsWithTail - tailBits

// Decoder decodes one CIF's worth of FIC soft symbols into validated FIBs.
type Decoder struct {
	bt  *viterbi.BranchTable
	vit *viterbi.Decoder
	crc *crc.Calculator
}

// NewDecoder creates a FIC Decoder.
func NewDecoder() *Decoder {
	bt := viterbi.NewBranchTable()
	return &Decoder{
		bt:  bt,
		vit: viterbi.NewDecoder(bt),
		crc: crc.NewDABCRC16(),
	}
}

// FIB is one validated (CRC-checked) Fast Information Block's 30 data
// bytes, ready for FIG parsing.
type FIB struct {
	Data [FIBLen - 2]byte
}

// Decode Viterbi-decodes, descrambles and CRC-checks one CIF's FIC soft
// symbols, which must have exactly CodedBitsPerCIF entries. It returns
// only the FIBs that passed their CRC-16 check; a failed check is not an
// error, matching spec's "corrupt FIB dropped silently, decode continues"
// error-handling rule for transient per-block faults.
func (d *Decoder) Decode(symbols []uint8) ([]FIB, error) {
	if len(symbols) != CodedBitsPerCIF {
		return nil, fmt.Errorf("fic: expected %d coded symbols, got %d", CodedBitsPerCIF, len(symbols))
	}

	d.vit.Reset(0)
	d.vit.Update(symbols)
	decoded := d.vit.Chainback(0, decodedBitsWithTail)

	dataBytes := decoded[:dataBits/8]
	s := scrambler.New()
	s.Process(dataBytes)

	fibs := make([]FIB, 0, FIBsPerCIF)
	for i := 0; i < FIBsPerCIF; i++ {
		block := dataBytes[i*FIBLen : (i+1)*FIBLen]
		payload := block[:FIBLen-2]
		want := uint16(block[FIBLen-2])<<8 | uint16(block[FIBLen-1])
		if d.crc.Process(payload) != want {
			continue
		}
		var fib FIB
		copy(fib.Data[:], payload)
		fibs = append(fibs, fib)
	}
	return fibs, nil
}
