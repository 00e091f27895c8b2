// Package pad implements X-PAD data group parsing and MOT (Multimedia
// Object Transfer, ETSI TS 101 499 / EN 301 234) object reassembly for
// the slideshow and similar auxiliary data carried alongside a DAB+
// service's audio, grounded on msc_data_group_processor.cpp and
// MOT_assembler.cpp/MOT_entities.h.
package pad

import (
	"encoding/binary"
	"fmt"

	"github.com/cwsl/dabradio/internal/crc"
)

// DataGroupType identifies what an MSC data group carries (clause 5.3.3.1).
type DataGroupType uint8

const (
	DataGroupMOTHeader       DataGroupType = 3
	DataGroupMOTBody         DataGroupType = 4
	DataGroupMOTHeaderUnseg  DataGroupType = 5
	DataGroupMOTBodyUnseg    DataGroupType = 6
)

// SegmentField is the reassembly session header (clause 5.3.3.2).
type SegmentField struct {
	IsLastSegment bool
	SegmentNumber uint16
}

// DataGroup is a parsed MSC data group (clause 5.3.3.1-5.3.3.3).
type DataGroup struct {
	Type             DataGroupType
	ContinuityIndex  uint8
	RepetitionIndex  uint8
	HasSegmentField  bool
	Segment          SegmentField
	HasTransportID   bool
	TransportID      uint16
	Data             []byte
}

var dataGroupCRC = crc.NewDABCRC16()

// ParseDataGroup decodes one MSC data group from raw, validating its CRC
// if present (crc_flag in the header) and extracting the segmentation and
// transport-id fields needed for MOT reassembly. raw must be the complete
// data group including any trailing CRC.
func ParseDataGroup(raw []byte) (DataGroup, error) {
	var dg DataGroup
	if len(raw) < 2 {
		return dg, fmt.Errorf("pad: data group shorter than header (%d bytes)", len(raw))
	}

	extensionFlag := raw[0]&0x80 != 0
	crcFlag := raw[0]&0x40 != 0
	segmentFlag := raw[0]&0x20 != 0
	userAccessFlag := raw[0]&0x10 != 0
	dg.Type = DataGroupType(raw[0] & 0x0F)
	dg.ContinuityIndex = raw[1] >> 4
	dg.RepetitionIndex = raw[1] & 0x0F
	buf := raw[2:]

	if crcFlag {
		if len(buf) < 2 {
			return dg, fmt.Errorf("pad: data group too short for CRC field")
		}
		want := binary.BigEndian.Uint16(raw[len(raw)-2:])
		got := dataGroupCRC.Process(raw[:len(raw)-2])
		if got != want {
			return dg, fmt.Errorf("pad: data group CRC mismatch")
		}
		buf = buf[:len(buf)-2]
	}

	if extensionFlag {
		if len(buf) < 2 {
			return dg, fmt.Errorf("pad: data group too short for extension field")
		}
		buf = buf[2:]
	}

	if segmentFlag {
		if len(buf) < 2 {
			return dg, fmt.Errorf("pad: data group too short for segment field")
		}
		isLast := buf[0]&0x80 != 0
		segNum := (uint16(buf[0]&0x7F) << 8) | uint16(buf[1])
		dg.HasSegmentField = true
		dg.Segment = SegmentField{IsLastSegment: isLast, SegmentNumber: segNum}
		buf = buf[2:]
	}

	if userAccessFlag {
		if len(buf) < 1 {
			return dg, fmt.Errorf("pad: data group too short for user access header")
		}
		transportIDFlag := buf[0]&0x10 != 0
		lengthIndicator := int(buf[0] & 0x0F)
		buf = buf[1:]
		if lengthIndicator > len(buf) {
			return dg, fmt.Errorf("pad: data group too short for user access fields")
		}
		fields := buf[:lengthIndicator]
		buf = buf[lengthIndicator:]
		if transportIDFlag && len(fields) >= 2 {
			dg.HasTransportID = true
			dg.TransportID = binary.BigEndian.Uint16(fields[:2])
		}
	}

	dg.Data = buf
	return dg, nil
}
