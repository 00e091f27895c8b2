package fig

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fibHeader(figType uint8, length int) byte {
	return figType<<5 | byte(length)&0x1F
}

func TestSplitFIGs_StopsAtEndMarker(t *testing.T) {
	fib := make([]byte, 30)
	fib[0] = fibHeader(0, 3)
	fib[1], fib[2], fib[3] = 0xAA, 0xBB, 0xCC
	fib[4] = fibHeader(7, 0) // end marker
	fib[5] = 0xFF            // must not be consumed

	recs := splitFIGs(fib)
	require.Len(t, recs, 1)
	require.Equal(t, uint8(0), recs[0].Type)
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC}, recs[0].Data)
}

func TestParser_EnsembleRecord(t *testing.T) {
	p := NewParser()
	body := []byte{0x12, 0x34, 0x00, 0x05} // EId, changeFlag=0 alarm=0 cifHigh=0, cifLow=5
	fib := []byte{fibHeader(0, 1+len(body)), 0x00 /*ext 0, cn/oe/pd=0*/}
	fib = append(fib, body...)
	fib = padFIB(fib)

	for i := 0; i < promoteThreshold; i++ {
		p.ProcessFIB(fib)
	}
	e, ok := p.DB.Ensemble()
	require.True(t, ok)
	require.Equal(t, uint16(0x1234), e.EnsembleID)
	require.Equal(t, uint16(5), e.CIFCountLow)
}

func TestParser_ProgrammeServiceLabel(t *testing.T) {
	p := NewParser()
	label := []byte("My Test Service ")[:16]
	body := append([]byte{0x00, 0x01}, label...) // SId = 1
	body = append(body, 0xFF, 0xFF)              // short label mask: all chars
	header := byte(CharsetEBULatin)<<4 | 1        // ext=1 (programme service label)
	fib := append([]byte{fibHeader(1, 1+len(body)), header}, body...)
	fib = padFIB(fib)

	for i := 0; i < promoteThreshold; i++ {
		p.ProcessFIB(fib)
	}
	s, ok := p.DB.Service(1)
	require.True(t, ok)
	require.Equal(t, "My Test Service ", s.Label)
}

func TestParser_SubChannelEEPLongForm(t *testing.T) {
	p := NewParser()
	// subchannel id=3, start addr=100, long form EEP profile A level 2, size=12
	scidAndStart := byte(3<<2) | byte(100>>8)
	startLow := byte(100 & 0xFF)
	optionLevel := byte(1<<7) | byte(0<<2) | byte(2) // shortLong=1, option=0(profile A), level=2
	body := []byte{scidAndStart, startLow, optionLevel, 12}
	fib := append([]byte{fibHeader(0, 1+len(body)), 1 /* ext 1 */}, body...)
	fib = padFIB(fib)

	for i := 0; i < promoteThreshold; i++ {
		p.ProcessFIB(fib)
	}
	sc, ok := p.DB.SubChannel(3)
	require.True(t, ok)
	require.Equal(t, uint16(100), sc.StartAddress)
	require.False(t, sc.IsUEP)
	require.Equal(t, uint8(2), sc.EEPLevel)
	require.Equal(t, uint16(12), sc.Size)
}

func TestParser_PacketComponentRecord(t *testing.T) {
	p := NewParser()
	// SCId=0x123, CAflag=0, DSCTy=5, SubChId=7, PacketAddress=200
	b0 := byte(0x12)
	b1 := byte(0x30) // low nibble of SCId (0x3) in top 4 bits, CAflag=0
	b2 := byte(5)    // DSCTy in low 6 bits
	b3 := byte(7<<2) | byte(200>>8)
	b4 := byte(200 & 0xFF)
	body := []byte{b0, b1, b2, b3, b4}
	fib := append([]byte{fibHeader(0, 1+len(body)), 3 /* ext 3 */}, body...)
	fib = padFIB(fib)

	p.ProcessFIB(fib)
	pc, ok := p.DB.PacketComponent(0x123)
	require.True(t, ok)
	require.Equal(t, uint8(7), pc.SubChannelID)
	require.Equal(t, uint16(200), pc.PacketAddress)
	require.Equal(t, uint8(5), pc.DSCTy)
}

func TestParser_DateTimeRecord(t *testing.T) {
	p := NewParser()
	// Short form: MJD=58849, hour=13, minute=45, UTCflag=0
	var word uint32
	word |= 58849 << 14
	word |= 13 << 7
	word |= 45 << 1
	body := make([]byte, 4)
	body[0] = byte(word >> 24)
	body[1] = byte(word >> 16)
	body[2] = byte(word >> 8)
	body[3] = byte(word)
	fib := append([]byte{fibHeader(0, 1+len(body)), 10 /* ext 10 */}, body...)
	fib = padFIB(fib)

	p.ProcessFIB(fib)
	dt, ok := p.DB.DateTime()
	require.True(t, ok)
	require.Equal(t, uint32(58849), dt.MJD)
	require.Equal(t, uint8(13), dt.Hour)
	require.Equal(t, uint8(45), dt.Minute)
	require.False(t, dt.UTCFlag)
}

func TestShortLabel_ExtractsMaskedCharacters(t *testing.T) {
	label := "ABCDEFGH........"
	mask := uint16(0xFF00) // first 8 characters
	require.Equal(t, "ABCDEFGH", shortLabel(label, mask))
}

func padFIB(b []byte) []byte {
	out := make([]byte, 30)
	copy(out, b)
	return out
}
