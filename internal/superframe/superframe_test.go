package superframe

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckFirecode_ValidAndCorrupted(t *testing.T) {
	d := NewDecoder()
	frame := make([]byte, firecodeLen+firecodeProtected+10)
	for i := range frame[firecodeLen:] {
		frame[firecodeLen+i] = byte(i * 7)
	}
	sum := d.firecode.Process(frame[firecodeLen : firecodeLen+firecodeProtected])
	binary.BigEndian.PutUint16(frame[:firecodeLen], sum)

	require.True(t, d.CheckFirecode(frame))

	frame[firecodeLen] ^= 0xFF
	require.False(t, d.CheckFirecode(frame))
}

func TestParseAUStartTable_ReadsOffsets(t *testing.T) {
	// numAUs=2 -> one explicit 12-bit AU-start entry packed right after the
	// firecode+descriptor header, value 20: top byte 0x01, bottom nibble
	// 0x4 in the high bits of the second byte.
	frame := make([]byte, firecodeLen+descriptorLen+2+20)
	frame[firecodeLen+descriptorLen] = 0x01
	frame[firecodeLen+descriptorLen+1] = 0x40

	offsets, err := ParseAUStartTable(frame, 2)
	require.NoError(t, err)
	require.Equal(t, []int{firecodeLen + descriptorLen + 2, 20}, offsets)
}

func TestParseDescriptor_DecodesFields(t *testing.T) {
	frame := make([]byte, firecodeLen+descriptorLen)
	frame[firecodeLen] = 0b01110101 // dac_rate=1 sbr=1 stereo=1 ps=0 mpeg=101

	d, err := ParseDescriptor(frame)
	require.NoError(t, err)
	require.True(t, d.DACRate48kHz)
	require.True(t, d.SBRFlag)
	require.True(t, d.Stereo)
	require.False(t, d.PSFlag)
	require.Equal(t, uint8(0b101), d.MPEGSurround)
	require.Equal(t, 48000, d.SampleRate())
	require.Equal(t, 3, d.NumAccessUnits())
}

func TestExtractAccessUnits_DropsBadCRCAndKeepsGood(t *testing.T) {
	d := NewDecoder()
	payload1 := []byte{0x01, 0x02, 0x03, 0x04}
	payload2 := []byte{0xAA, 0xBB, 0xCC}

	var frame []byte
	sum1 := d.auCRC.Process(payload1)
	frame = append(frame, payload1...)
	frame = append(frame, byte(sum1>>8), byte(sum1))
	au2Start := len(frame)

	sum2 := d.auCRC.Process(payload2)
	frame2 := append([]byte{}, payload2...)
	frame2 = append(frame2, byte(sum2>>8), byte(sum2))
	frame2[0] ^= 0xFF // corrupt AU2's payload so its CRC fails
	frame = append(frame, frame2...)

	offsets := []int{0, au2Start}
	aus, failed := d.ExtractAccessUnits(frame, offsets)
	require.Len(t, aus, 1)
	require.Equal(t, payload1, aus[0].Data)
	require.Equal(t, 1, failed)
}

func TestCorrectErrors_FixesInjectedByteErrors(t *testing.T) {
	d := NewDecoder()
	numCols := 4
	raw := make([]byte, rsBlockLen*numCols)

	// Build numCols independent RS(120,110) codewords (one per column),
	// laid out row-major as CorrectErrors expects.
	for c := 0; c < numCols; c++ {
		data := make([]byte, rsDataLen)
		for i := range data {
			data[i] = byte((i + c) * 3)
		}
		padded := make([]byte, d.rs.DataLen())
		pad := d.rs.DataLen() - rsDataLen
		copy(padded[pad:], data)
		parity, err := d.rs.Encode(padded)
		require.NoError(t, err)

		for row := 0; row < rsDataLen; row++ {
			raw[row*numCols+c] = data[row]
		}
		for row := 0; row < rsParityLen; row++ {
			raw[(rsDataLen+row)*numCols+c] = parity[row]
		}
	}

	// Corrupt 2 bytes in column 0, well within its 5-error correction
	// capacity (nroots=10 -> floor(10/2)=5 correctable symbol errors).
	raw[0*numCols+0] ^= 0xFF
	raw[50*numCols+0] ^= 0x01

	corrected, err := d.CorrectErrors(raw)
	require.NoError(t, err)
	require.GreaterOrEqual(t, corrected, 2)
}
