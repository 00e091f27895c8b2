package pad

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildDataGroup(t *testing.T, groupType DataGroupType, isLast bool, segNum uint16, transportID uint16, data []byte) []byte {
	t.Helper()
	header := byte(0)
	header |= 0 << 7 // no extension
	header |= 0 << 6 // crc flag off for this helper
	header |= 1 << 5 // segment flag
	header |= 1 << 4 // user access flag
	header |= byte(groupType) & 0x0F

	var buf []byte
	buf = append(buf, header, 0x00) // continuity/repetition index = 0

	segByte0 := byte(segNum >> 8 & 0x7F)
	if isLast {
		segByte0 |= 0x80
	}
	buf = append(buf, segByte0, byte(segNum))

	accessHeader := byte(0x10) | 2 // transport_id_flag=1, length=2
	buf = append(buf, accessHeader)
	tidBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(tidBuf, transportID)
	buf = append(buf, tidBuf...)

	buf = append(buf, data...)
	return buf
}

func TestParseDataGroup_ExtractsSegmentAndTransportID(t *testing.T) {
	raw := buildDataGroup(t, DataGroupMOTBody, true, 3, 0xABCD, []byte{1, 2, 3, 4})
	dg, err := ParseDataGroup(raw)
	require.NoError(t, err)
	require.True(t, dg.HasSegmentField)
	require.True(t, dg.Segment.IsLastSegment)
	require.Equal(t, uint16(3), dg.Segment.SegmentNumber)
	require.True(t, dg.HasTransportID)
	require.Equal(t, uint16(0xABCD), dg.TransportID)
	require.Equal(t, []byte{1, 2, 3, 4}, dg.Data)
}

func TestAssembler_ReassemblesOutOfOrderSegments(t *testing.T) {
	a := NewAssembler()
	a.SetTotalSegments(3)

	require.False(t, a.AddSegment(2, []byte{5, 6}))
	require.False(t, a.AddSegment(0, []byte{1, 2}))
	require.True(t, a.AddSegment(1, []byte{3, 4}))

	require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, a.Ordered())
}

func TestAssembler_IgnoresDuplicateSegment(t *testing.T) {
	a := NewAssembler()
	a.SetTotalSegments(1)
	require.True(t, a.AddSegment(0, []byte{9}))
	require.False(t, a.AddSegment(0, []byte{9}))
}

func TestParseHeader_ExtractsContentNameExtension(t *testing.T) {
	buf := make([]byte, 0, 16)
	bodySizeField := make([]byte, 4)
	binary.BigEndian.PutUint32(bodySizeField, 1234)
	buf = append(buf, bodySizeField...)

	headerSize := uint16(8 + 7) // 8 fixed + 2 ext header + 5 name bytes (the charset byte is not counted)
	headerSizeField := make([]byte, 2)
	binary.BigEndian.PutUint16(headerSizeField, headerSize)
	buf = append(buf, headerSizeField...)

	contentTypeByte := byte(ContentTypeImage)<<2 | byte(0x01) // sub-type high bits = 01
	buf = append(buf, contentTypeByte, 0x02)                  // sub-type low byte = 0x02

	name := "a.jpg"
	buf = append(buf, byte(0x0C)<<1, byte(len(name)+1), 0x00)
	buf = append(buf, []byte(name)...)

	h, err := ParseHeader(buf)
	require.NoError(t, err)
	require.Equal(t, uint32(1234), h.BodySize)
	require.Equal(t, ContentTypeImage, h.ContentType)
	require.Equal(t, name, h.ContentName)
}

func TestProcessor_AssemblesCompleteEntity(t *testing.T) {
	p := NewProcessor()

	headerPayload := make([]byte, 16)
	binary.BigEndian.PutUint32(headerPayload[0:4], 4) // body size = 4
	binary.BigEndian.PutUint16(headerPayload[4:6], 8) // header size = 8, no extensions
	headerPayload[6] = byte(ContentTypeImage) << 2
	headerPayload[7] = 0

	headerDG, err := ParseDataGroup(buildDataGroup(t, DataGroupMOTHeader, true, 0, 42, headerPayload[:8]))
	require.NoError(t, err)
	entity, done := p.Process(headerDG)
	require.False(t, done)
	require.Nil(t, entity)

	bodyDG, err := ParseDataGroup(buildDataGroup(t, DataGroupMOTBody, true, 0, 42, []byte{0xDE, 0xAD, 0xBE, 0xEF}))
	require.NoError(t, err)
	entity, done = p.Process(bodyDG)
	require.True(t, done)
	require.NotNil(t, entity)
	require.Equal(t, uint16(42), entity.TransportID)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, entity.Body)
	require.Equal(t, ContentTypeImage, entity.Header.ContentType)
}
