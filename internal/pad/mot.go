package pad

import "encoding/binary"

// ContentType is the MOT header's top-level content type (ETSI TS 101
// 756 Annex C / EN 301 234 clause 6.2); values above cover the types
// relevant to DAB+ slideshow (type 2 = image).
type ContentType uint8

const (
	ContentTypeGeneral ContentType = 0
	ContentTypeText    ContentType = 1
	ContentTypeImage   ContentType = 2
	ContentTypeAudio   ContentType = 3
)

// Header is a decoded MOT header entity (MOT_Header_Entity).
type Header struct {
	BodySize       uint32
	HeaderSize     uint16
	ContentType    ContentType
	ContentSubType uint16
	ContentName    string
}

// ParseHeader decodes a MOT header entity's fixed 8-byte core (4 bytes
// carrying the 28-bit body size, 2 bytes carrying the 13-bit header size,
// 2 bytes packing content type/sub-type) plus any header extension
// parameters it recognises (only ContentName, type 0x0C, is implemented;
// trigger/expire time and other extensions are skipped but do not fail
// parsing).
func ParseHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < 8 {
		return h, errShortHeader
	}
	h.BodySize = binary.BigEndian.Uint32(buf[0:4]) & 0x0FFFFFFF // 28-bit field
	h.HeaderSize = binary.BigEndian.Uint16(buf[4:6]) & 0x1FFF   // 13-bit field
	// buf[6:8] packs a 6-bit content type and 10-bit content sub-type.
	h.ContentType = ContentType(buf[6] >> 2)
	h.ContentSubType = uint16(buf[6]&0x03)<<8 | uint16(buf[7])

	i := 8
	for i+2 <= int(h.HeaderSize) && i+2 <= len(buf) {
		paramType := buf[i] >> 1
		paramLen := int(buf[i+1])
		i += 2
		if i+paramLen > len(buf) {
			break
		}
		if paramType == 0x0C && paramLen >= 1 {
			h.ContentName = string(buf[i+1 : i+paramLen])
		}
		i += paramLen
	}
	return h, nil
}

type motError string

func (e motError) Error() string { return string(e) }

const errShortHeader = motError("pad: MOT header shorter than minimum fixed fields")

// Entity is a fully reassembled MOT object (MOT_Entity).
type Entity struct {
	TransportID uint16
	Header      Header
	Body        []byte
}

// Processor reassembles MOT header and body segments, keyed by transport
// ID, into complete Entity values (PAD_MOT_Processor + MOT_Processor's
// combined responsibility).
type Processor struct {
	transportID    uint16
	haveTransport  bool
	headerAsm      *Assembler
	bodyAsm        *Assembler
	header         Header
	haveHeader     bool
}

// NewProcessor creates a Processor.
func NewProcessor() *Processor {
	return &Processor{headerAsm: NewAssembler(), bodyAsm: NewAssembler()}
}

// Process feeds one parsed data group into the reassembly state machine.
// It returns the completed Entity once both the header and body segments
// for a transport ID have fully arrived.
func (p *Processor) Process(dg DataGroup) (*Entity, bool) {
	if !dg.HasSegmentField || !dg.HasTransportID {
		return nil, false
	}

	if p.haveTransport && dg.TransportID != p.transportID {
		p.reset()
	}
	p.transportID = dg.TransportID
	p.haveTransport = true

	switch dg.Type {
	case DataGroupMOTHeader, DataGroupMOTHeaderUnseg:
		if dg.Segment.IsLastSegment {
			p.headerAsm.SetTotalSegments(int(dg.Segment.SegmentNumber) + 1)
		}
		if p.headerAsm.AddSegment(int(dg.Segment.SegmentNumber), dg.Data) {
			h, err := ParseHeader(p.headerAsm.Ordered())
			if err == nil {
				p.header = h
				p.haveHeader = true
			}
		}
	case DataGroupMOTBody, DataGroupMOTBodyUnseg:
		if dg.Segment.IsLastSegment {
			p.bodyAsm.SetTotalSegments(int(dg.Segment.SegmentNumber) + 1)
		}
		p.bodyAsm.AddSegment(int(dg.Segment.SegmentNumber), dg.Data)
	}

	if p.haveHeader && p.bodyAsm.checkComplete() {
		entity := &Entity{TransportID: p.transportID, Header: p.header, Body: append([]byte(nil), p.bodyAsm.Ordered()...)}
		p.reset()
		return entity, true
	}
	return nil, false
}

func (p *Processor) reset() {
	p.headerAsm.Reset()
	p.bodyAsm.Reset()
	p.haveHeader = false
	p.haveTransport = false
}
