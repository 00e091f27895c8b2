// Package superframe reassembles DAB+ audio superframes from an MSC
// subchannel's decoded byte stream: firecode integrity check, RS(120,110)
// forward error correction (via the shortened-codeword padding scheme
// internal/reedsolomon documents), the access-unit start table, and
// per-AU CRC-16 validation, grounded on this project's SPEC_FULL.md
// §4.6.1 and the firecode/CRC conventions in internal/crc.
package superframe

import (
	"encoding/binary"
	"fmt"

	"github.com/cwsl/dabradio/internal/crc"
	"github.com/cwsl/dabradio/internal/reedsolomon"
)

// rsDataLen, rsParityLen and rsBlockLen are the shortened RS(120,110)
// parameters: 10 parity bytes appended to 110 data bytes per 120-byte
// column of the superframe's RS matrix.
const (
	rsDataLen   = 110
	rsParityLen = 10
	rsBlockLen  = rsDataLen + rsParityLen
)

// NumRSRows is the number of data rows of one superframe's RS(120,110)
// error-protection matrix (always 110 regardless of audio bit rate, plus
// 10 parity rows; only the number of columns, i.e. the number of
// interleaved codewords and the superframe's total size, varies with bit
// rate).
const NumRSRows = 110

// AccessUnit is one decoded, CRC-validated AAC access unit extracted from
// a superframe.
type AccessUnit struct {
	Data []byte
}

// Decoder reassembles and corrects DAB+ superframes for one subchannel.
type Decoder struct {
	rs       *reedsolomon.Codec
	firecode *crc.Calculator
	auCRC    *crc.Calculator
}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		rs:       reedsolomon.NewCodec(rsParityLen),
		firecode: crc.NewFirecode(),
		auCRC:    crc.NewDABCRC16(),
	}
}

// SuperframeLen returns the total byte length of a superframe carrying
// numSubchannelBytesPerCIF bytes of subchannel capacity per CIF, spanning
// the fixed 5-CIF (120ms) DAB+ superframe period.
func SuperframeLen(numSubchannelBytesPerCIF int) int {
	return numSubchannelBytesPerCIF * 5
}

// CorrectErrors applies RS(120,110) error correction in place to raw, a
// superframe buffer whose length must be a multiple of rsBlockLen. With
// numCols = len(raw)/rsBlockLen, raw is a rsBlockLen-row by numCols-column
// matrix stored row-major; each column c (0..numCols-1) — i.e. byte c,
// c+numCols, c+2*numCols, ... — is one interleaved RS codeword of
// rsBlockLen bytes (110 data bytes then 10 parity bytes), matching the
// reference decoder's byte de-interleave-then-RS-decode order.
func (d *Decoder) CorrectErrors(raw []byte) (corrected int, err error) {
	if len(raw)%rsBlockLen != 0 {
		return 0, fmt.Errorf("superframe: length %d not a multiple of RS block %d", len(raw), rsBlockLen)
	}
	numCols := len(raw) / rsBlockLen
	if numCols == 0 {
		return 0, nil
	}

	column := make([]byte, rsBlockLen)
	padded := make([]byte, d.rs.DataLen()+d.rs.NumRoots())
	for c := 0; c < numCols; c++ {
		for row := 0; row < rsBlockLen; row++ {
			column[row] = raw[row*numCols+c]
		}

		pad := d.rs.DataLen() - rsDataLen
		for i := 0; i < pad; i++ {
			padded[i] = 0
		}
		copy(padded[pad:pad+rsDataLen], column[:rsDataLen])
		copy(padded[pad+rsDataLen:], column[rsDataLen:])

		n, decErr := d.rs.Decode(padded)
		if decErr != nil {
			return corrected, fmt.Errorf("superframe: column %d uncorrectable: %w", c, decErr)
		}
		corrected += n

		copy(column[:rsDataLen], padded[pad:pad+rsDataLen])
		for row := 0; row < rsBlockLen; row++ {
			raw[row*numCols+c] = column[row]
		}
	}
	return corrected, nil
}

// firecodeLen and firecodeProtected are the firecode trailer size and the
// number of leading bytes of the first CIF-sized chunk it protects (ETSI
// EN 300 401 clause 5.3.3.4, Annex F): every DAB+ superframe's logical
// frame 0 begins with a 2-byte firecode guarding the following
// firecodeProtected bytes, which include the audio superframe header
// (AU count and AU-start table).
const (
	firecodeLen       = 2
	firecodeProtected = 9
)

// CheckFirecode validates the firecode at the start of a superframe's
// first logical frame.
func (d *Decoder) CheckFirecode(frame []byte) bool {
	if len(frame) < firecodeLen+firecodeProtected {
		return false
	}
	got := binary.BigEndian.Uint16(frame[:firecodeLen])
	want := d.firecode.Process(frame[firecodeLen : firecodeLen+firecodeProtected])
	return got == want
}

// descriptorLen is the size of the audio descriptor byte immediately
// following the firecode (ETSI TS 102 563 clause 5.2, Table 2:
// he_aac_super_frame_header()).
const descriptorLen = 1

// Descriptor is the DAB+ audio superframe header's descriptor byte,
// decoded from the 8 bits following the firecode: {rfa:1, dac_rate:1,
// sbr_flag:1, aac_channel_mode:1, ps_flag:1, mpeg_surround_config:3}.
type Descriptor struct {
	DACRate48kHz bool
	SBRFlag      bool
	Stereo       bool
	PSFlag       bool
	MPEGSurround uint8 // 3-bit raw mpeg_surround_config value
}

// ParseDescriptor reads the descriptor byte at the start of a
// (firecode-validated, RS-corrected) superframe.
func ParseDescriptor(frame []byte) (Descriptor, error) {
	if len(frame) < firecodeLen+descriptorLen {
		return Descriptor{}, fmt.Errorf("superframe: frame too short for descriptor byte")
	}
	b := frame[firecodeLen]
	return Descriptor{
		DACRate48kHz: b&0x40 != 0,
		SBRFlag:      b&0x20 != 0,
		Stereo:       b&0x10 != 0,
		PSFlag:       b&0x08 != 0,
		MPEGSurround: b & 0x07,
	}, nil
}

// SampleRate returns the PCM sample rate in Hz implied by d.DACRate48kHz.
func (d Descriptor) SampleRate() int {
	if d.DACRate48kHz {
		return 48000
	}
	return 32000
}

// NumAccessUnits returns the number of AAC access units per superframe
// for d's (dac_rate, sbr_flag) combination.
func (d Descriptor) NumAccessUnits() int {
	switch {
	case !d.DACRate48kHz && d.SBRFlag:
		return 2
	case d.DACRate48kHz && d.SBRFlag:
		return 3
	case !d.DACRate48kHz && !d.SBRFlag:
		return 4
	default: // 48kHz, SBR off
		return 6
	}
}

// NumColumns returns the number of RS(120,110) columns a raw superframe
// buffer of rawLen bytes is composed of.
func NumColumns(rawLen int) (int, error) {
	if rawLen%rsBlockLen != 0 {
		return 0, fmt.Errorf("superframe: length %d not a multiple of RS block %d", rawLen, rsBlockLen)
	}
	return rawLen / rsBlockLen, nil
}

// DataLen returns the number of payload bytes (excluding RS parity) in a
// superframe built from numCols RS columns.
func DataLen(numCols int) int {
	return rsDataLen * numCols
}

// readAUStart reads len(out) consecutive 12-bit big-endian-packed values
// from buf, a direct port of the reference decoder's read_au_start: the
// DAB+ AU start table packs each entry's 12 bits back-to-back with no
// inter-entry byte padding, only padding the trailing partial byte once
// all entries are read. It returns the number of bytes consumed, rounded
// up to the next whole byte.
func readAUStart(buf []byte, out []uint16) int {
	const totalBits = 12
	currValue := 0
	currValueBits := 0
	currByte := 0
	remainBits := 8

	for currValue < len(out) {
		nbRequiredBits := totalBits - currValueBits
		nbConsumeBits := remainBits
		if nbRequiredBits < remainBits {
			nbConsumeBits = nbRequiredBits
		}

		b := buf[currByte]
		removeShift := uint(8 - remainBits)
		maskedB := (b << removeShift) >> removeShift

		out[currValue] = (out[currValue] << uint(nbConsumeBits)) | uint16(maskedB>>uint(remainBits-nbConsumeBits))
		remainBits -= nbConsumeBits
		currValueBits += nbConsumeBits

		if remainBits == 0 {
			remainBits = 8
			currByte++
		}
		if currValueBits == totalBits {
			currValueBits = 0
			currValue++
		}
	}
	if remainBits < 8 {
		currByte++
	}
	return currByte
}

// ParseAUStartTable reads the access-unit start offset table from a
// superframe (after the firecode and descriptor byte), returning each
// AU's byte offset within the superframe's data portion (excluding RS
// parity). The first AU's start is implicit — it begins right after the
// header — so only numAUs-1 explicit 12-bit offsets are carried.
func ParseAUStartTable(frame []byte, numAUs int) ([]int, error) {
	if numAUs < 1 {
		return nil, fmt.Errorf("superframe: numAUs must be at least 1, got %d", numAUs)
	}
	headerLen := firecodeLen + descriptorLen
	if len(frame) < headerLen {
		return nil, fmt.Errorf("superframe: frame too short for header")
	}

	n := numAUs - 1
	vals := make([]uint16, n)
	nbAUStartBytes := 0
	if n > 0 {
		maxBytes := (n*12 + 7) / 8
		if len(frame) < headerLen+maxBytes {
			return nil, fmt.Errorf("superframe: frame too short for %d AU start entries", n)
		}
		nbAUStartBytes = readAUStart(frame[headerLen:], vals)
	}

	offsets := make([]int, numAUs)
	offsets[0] = headerLen + nbAUStartBytes
	for i, v := range vals {
		offsets[i+1] = int(v)
	}
	return offsets, nil
}

// ExtractAccessUnits slices frame (the superframe's data portion, as
// returned by DataLen) into access units using offsets (from
// ParseAUStartTable) and validates each one's trailing CRC-16, dropping
// (not erroring on) any AU that fails its check. failed counts the
// dropped AUs, for the caller to report as a metric.
func (d *Decoder) ExtractAccessUnits(frame []byte, offsets []int) (out []AccessUnit, failed int) {
	for i, start := range offsets {
		end := len(frame)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if start < 0 || end > len(frame) || start+2 > end {
			failed++
			continue
		}
		au := frame[start:end]
		payload := au[:len(au)-2]
		gotCRC := binary.BigEndian.Uint16(au[len(au)-2:])
		wantCRC := d.auCRC.Process(payload)
		if gotCRC != wantCRC {
			failed++
			continue
		}
		out = append(out, AccessUnit{Data: append([]byte(nil), payload...)})
	}
	return out, failed
}
