package fig

import "encoding/binary"

// figRecord is one raw FIG (type, data) pulled out of a FIB.
type figRecord struct {
	Type uint8
	Data []byte
}

// splitFIGs walks a 30-byte FIB payload extracting FIGs until the
// type-7 end-marker or the buffer is exhausted, per ETSI EN 300 401
// clause 5.2.1: each FIG starts with a header byte whose top 3 bits are
// the type and bottom 5 bits are the following data length.
func splitFIGs(fib []byte) []figRecord {
	var out []figRecord
	i := 0
	for i < len(fib) {
		header := fib[i]
		figType := header >> 5
		length := int(header & 0x1F)
		if figType == 7 {
			break
		}
		i++
		if i+length > len(fib) {
			break
		}
		out = append(out, figRecord{Type: figType, Data: fib[i : i+length]})
		i += length
	}
	return out
}

// Parser decodes FIGs and updates a Database.
type Parser struct {
	DB *Database
}

// NewParser creates a Parser backed by a fresh Database.
func NewParser() *Parser {
	return &Parser{DB: NewDatabase()}
}

// ProcessFIB splits and dispatches every FIG contained in one FIB's
// payload.
func (p *Parser) ProcessFIB(fib []byte) {
	for _, rec := range splitFIGs(fib) {
		switch rec.Type {
		case 0:
			p.processFIG0(rec.Data)
		case 1:
			p.processFIG1(rec.Data)
		}
	}
}

// processFIG0 dispatches MCI FIGs by their extension field (clause 6).
func (p *Parser) processFIG0(data []byte) {
	if len(data) < 1 {
		return
	}
	header := data[0]
	// cn := header&0x80 != 0 // change flag / new, not tracked separately
	oe := header&0x40 != 0
	pd := header&0x20 != 0
	ext := header & 0x1F
	body := data[1:]

	if oe {
		// Other-ensemble records describe a different multiplex; out of
		// scope for this ensemble's own database.
		return
	}

	switch ext {
	case 0:
		p.parseFIG0Ext0(body)
	case 1:
		p.parseFIG0Ext1(body)
	case 2:
		p.parseFIG0Ext2(body, pd)
	case 3:
		p.parseFIG0Ext3(body)
	case 4:
		p.parseFIG0Ext4(body)
	case 8:
		p.parseFIG0Ext8(body, pd)
	case 10:
		p.parseFIG0Ext10(body)
	case 13:
		p.parseFIG0Ext13(body, pd)
	case 17:
		p.parseFIG0Ext17(body)
	case 21:
		p.parseFIG0Ext21(body)
	case 24:
		p.parseFIG0Ext24(body, pd)
	}
}

// parseFIG0Ext0 parses the ensemble record (clause 6.4): EId, change
// flags, alarm flag, CIF counter.
func (p *Parser) parseFIG0Ext0(body []byte) {
	if len(body) < 4 {
		return
	}
	eid := binary.BigEndian.Uint16(body[0:2])
	changeFlags := body[2] >> 6
	alarm := body[2]&0x20 != 0
	cifHigh := body[2] & 0x1F
	cifLow := body[3]
	p.DB.UpdateEnsemble(Ensemble{
		EnsembleID:   eid,
		ChangeFlag:   changeFlags,
		Alarm:        alarm,
		CIFCountHigh: cifHigh,
		CIFCountLow:  uint16(cifLow),
	})
}

// parseFIG0Ext1 parses one or more subchannel organisation records
// (clause 6.2): a 6-bit subchannel id, 10-bit start address, then either
// a short-form UEP table index or long-form EEP profile/level and size.
func (p *Parser) parseFIG0Ext1(body []byte) {
	i := 0
	for i+3 <= len(body) {
		scid := body[i] >> 2
		startAddr := (uint16(body[i]&0x03) << 8) | uint16(body[i+1])
		shortLong := body[i+2] & 0x80 != 0
		i += 3
		var sc SubChannel
		sc.SubChannelID = scid
		sc.StartAddress = startAddr
		if !shortLong {
			// short form (UEP)
			tableIdx := body[i-1] & 0x7F
			sc.IsUEP = true
			sc.UEPTableIndex = tableIdx
		} else {
			if i+1 > len(body) {
				break
			}
			optionAndLevel := body[i-1] & 0x7F
			option := optionAndLevel >> 2
			level := optionAndLevel & 0x03
			sizeHigh := body[i-1] // already consumed above; size spans next byte too
			_ = sizeHigh
			if i >= len(body) {
				break
			}
			size := body[i]
			i++
			sc.IsUEP = false
			sc.EEPProfileB = option == 1
			sc.EEPLevel = level
			sc.Size = uint16(size)
		}
		p.DB.UpdateSubChannel(sc)
	}
}

// parseFIG0Ext2 parses basic service/service-component organisation
// records (clause 6.3): SId, number of components, and a component
// descriptor list. Every component descriptor is recorded; only
// stream-mode audio descriptors (TMId 0) also carry a subchannel id.
func (p *Parser) parseFIG0Ext2(body []byte, pd bool) {
	i := 0
	sidLen := 2
	if pd {
		sidLen = 4
	}
	for i+sidLen+1 <= len(body) {
		var sid uint32
		if pd {
			sid = binary.BigEndian.Uint32(body[i : i+4])
		} else {
			sid = uint32(binary.BigEndian.Uint16(body[i : i+2]))
		}
		i += sidLen
		numComponents := int(body[i] & 0x0F)
		i++
		p.DB.UpdateService(Service{ServiceID: sid, IsProgramme: !pd, NumComponents: uint8(numComponents)})

		for c := 0; c < numComponents && i+2 <= len(body); c++ {
			tmid := body[i] >> 6
			scids := body[i] & 0x0F
			comp := ServiceComponent{ServiceID: sid, SCIdS: scids}
			if tmid == 0 { // MSC stream audio
				comp.SubChannelID = body[i+1] & 0x3F
			}
			i += 2
			p.DB.UpdateComponent(comp)
		}
	}
}

// parseFIG0Ext3 parses service-component-in-packet-mode records (clause
// 6.3.2): a 12-bit ensemble-wide SCId, a CA flag, the data service
// component type (DSCTy), the host subchannel id, and the in-subchannel
// packet address. The 2-byte CAOrg field present when CAFlag is set is
// skipped rather than decoded (see ConditionalAccess's doc comment); no
// source file for this FIG's exact bit layout was present in the
// retrieved corpus, so the field widths below follow the standard's
// documented sizes (see DESIGN.md).
func (p *Parser) parseFIG0Ext3(body []byte) {
	i := 0
	for i+5 <= len(body) {
		scid := uint16(body[i])<<4 | uint16(body[i+1]>>4)
		caFlag := body[i+1]&0x08 != 0
		dscty := body[i+2] & 0x3F
		subch := body[i+3] >> 2
		packetAddr := uint16(body[i+3]&0x03)<<8 | uint16(body[i+4])
		i += 5
		if caFlag {
			if i+2 > len(body) {
				break
			}
			i += 2 // CAOrg, not decoded
		}
		p.DB.UpdatePacketComponent(PacketComponent{
			SCId:          scid,
			SubChannelID:  subch,
			PacketAddress: packetAddr,
			DSCTy:         dscty,
			CAFlag:        caFlag,
		})
	}
}

// parseFIG0Ext4 parses a minimal form of the service-component-with-CA
// record (clause 6.3.3): which conditional access system (CAId) a service
// component is declared under. See ConditionalAccess's doc comment for
// what is intentionally not decoded.
func (p *Parser) parseFIG0Ext4(body []byte) {
	i := 0
	for i+3 <= len(body) {
		pd := body[i]&0x80 != 0
		scids := body[i] & 0x0F
		i++
		var sid uint32
		if pd {
			if i+4 > len(body) {
				break
			}
			sid = binary.BigEndian.Uint32(body[i : i+4])
			i += 4
		} else {
			if i+2 > len(body) {
				break
			}
			sid = uint32(binary.BigEndian.Uint16(body[i : i+2]))
			i += 2
		}
		if i >= len(body) {
			break
		}
		caId := body[i] >> 5
		i++
		p.DB.AddConditionalAccess(ConditionalAccess{ServiceID: sid, SCIdS: scids, CAId: caId})
	}
}

// parseFIG0Ext10 parses the ensemble's current UTC date/time (clause
// 8.1.3.1): a 32-bit short form (Modified Julian Day, hour, minute), or a
// 48-bit long form additionally carrying seconds and milliseconds when
// the UTC flag is set. No source file for this FIG's exact bit-for-bit
// layout was in the retrieved corpus; the field widths below are the
// standard's documented sizes and the trailing/interstitial reserved bit
// positions are this project's own derivation (they round the short form
// to an exact 4-byte boundary); see DESIGN.md.
func (p *Parser) parseFIG0Ext10(body []byte) {
	if len(body) < 4 {
		return
	}
	word := binary.BigEndian.Uint32(body[0:4])
	mjd := (word >> 14) & 0x1FFFF
	lsi := word&0x2000 != 0
	utcFlag := word&0x1000 != 0
	hour := uint8((word >> 7) & 0x1F)
	minute := uint8((word >> 1) & 0x3F)

	dt := DateTime{MJD: mjd, Hour: hour, Minute: minute, UTCFlag: utcFlag, LeapSecond: lsi}
	if utcFlag {
		if len(body) < 6 {
			return
		}
		tail := binary.BigEndian.Uint16(body[4:6])
		dt.Second = uint8(tail >> 10)
		dt.Milliseconds = tail & 0x03FF
	}
	p.DB.UpdateDateTime(dt)
}

// parseFIG0Ext13 parses user application association records (clause
// 6.3.6): for each service component, the number of associated user
// applications followed by each application's type and opaque data.
func (p *Parser) parseFIG0Ext13(body []byte, pd bool) {
	i := 0
	sidLen := 2
	if pd {
		sidLen = 4
	}
	for i+sidLen+1 <= len(body) {
		var sid uint32
		if pd {
			sid = binary.BigEndian.Uint32(body[i : i+4])
		} else {
			sid = uint32(binary.BigEndian.Uint16(body[i : i+2]))
		}
		i += sidLen
		scids := body[i] >> 4
		numApps := int(body[i] & 0x0F)
		i++
		for a := 0; a < numApps && i+2 <= len(body); a++ {
			typeAndLen := binary.BigEndian.Uint16(body[i : i+2])
			appType := typeAndLen >> 5
			dataLen := int(typeAndLen & 0x1F)
			i += 2
			if i+dataLen > len(body) {
				break
			}
			data := append([]byte(nil), body[i:i+dataLen]...)
			i += dataLen
			p.DB.AddUserApplication(UserApplication{ServiceID: sid, SCIdS: scids, AppType: appType, Data: data})
		}
	}
}

// parseFIG0Ext17 parses basic programme type signalling (clause 8.1.5):
// SId, an optional language byte, and the 6-bit programme type. The exact
// position of the language-presence flag bit was not confirmed against a
// retrieved source and is this project's best-effort placement; see
// DESIGN.md.
func (p *Parser) parseFIG0Ext17(body []byte) {
	i := 0
	for i+3 <= len(body) {
		sid := uint32(binary.BigEndian.Uint16(body[i : i+2]))
		i += 2
		flags := body[i]
		i++
		lFlag := flags&0x10 != 0
		var lang uint8
		if lFlag {
			if i >= len(body) {
				break
			}
			lang = body[i]
			i++
		}
		if i >= len(body) {
			break
		}
		progType := body[i] & 0x3F
		i++

		s, ok := p.DB.Service(sid)
		if !ok {
			s = Service{ServiceID: sid}
		}
		s.ProgrammeType = progType
		if lFlag {
			s.Language = lang
		}
		p.DB.UpdateService(s)
	}
}

// parseFIG0Ext21 recognises Frequency Information records (clause 8.1.8)
// well enough to skip each variable-length entry safely; the alternate
// frequency list's own sub-structure (broadcast-system-dependent control
// fields for terrestrial/satellite/FM/MW/LW frequencies) was not present
// in the retrieved corpus and is not decoded into the database. This FIG
// has no SPEC_FULL.md consumer (no alternate-frequency retune operation
// is in scope) and is parsed only to the extent needed to not misframe
// subsequent FIGs in the same FIB; see DESIGN.md.
func (p *Parser) parseFIG0Ext21(body []byte) {
	i := 0
	for i+3 <= len(body) {
		length := int(body[i+2] & 0x1F)
		i += 3
		if i+length > len(body) {
			break
		}
		i += length
	}
}

// parseFIG0Ext24 parses OE Services records (clause 8.1.10): a service id
// followed by the list of other ensembles it is also carried on.
func (p *Parser) parseFIG0Ext24(body []byte, pd bool) {
	i := 0
	sidLen := 2
	if pd {
		sidLen = 4
	}
	for i+sidLen+1 <= len(body) {
		var sid uint32
		if pd {
			sid = binary.BigEndian.Uint32(body[i : i+4])
		} else {
			sid = uint32(binary.BigEndian.Uint16(body[i : i+2]))
		}
		i += sidLen
		numEIds := int(body[i] & 0x0F)
		i++
		var eids []uint16
		for e := 0; e < numEIds && i+2 <= len(body); e++ {
			eids = append(eids, binary.BigEndian.Uint16(body[i:i+2]))
			i += 2
		}
		p.DB.UpdateOtherEnsembleService(OtherEnsembleService{ServiceID: sid, EnsembleIDs: eids})
	}
}

// parseFIG0Ext8 parses explicit service-component-to-subchannel/packet
// links (clause 6.3.5), used when a component needs an address FIG 0/2
// didn't carry.
func (p *Parser) parseFIG0Ext8(body []byte, pd bool) {
	i := 0
	sidLen := 2
	if pd {
		sidLen = 4
	}
	for i+sidLen+1 <= len(body) {
		var sid uint32
		if pd {
			sid = binary.BigEndian.Uint32(body[i : i+4])
		} else {
			sid = uint32(binary.BigEndian.Uint16(body[i : i+2]))
		}
		i += sidLen
		scids := body[i] & 0x0F
		lsFlag := body[i]&0x80 != 0
		i++
		comp := ServiceComponent{ServiceID: sid, SCIdS: scids}
		if !lsFlag {
			if i >= len(body) {
				break
			}
			scField := body[i]
			i++
			comp.IsPacketMode = scField&0x80 != 0
			if comp.IsPacketMode {
				if i+1 >= len(body) {
					break
				}
				comp.TransportID = binary.BigEndian.Uint16(body[i : i+2])
				i += 2
			} else {
				comp.SubChannelID = scField & 0x3F
			}
		} else {
			if i+1 >= len(body) {
				break
			}
			comp.IsPacketMode = true
			comp.TransportID = binary.BigEndian.Uint16(body[i : i+2])
			i += 2
		}
		p.DB.UpdateComponent(comp)
	}
}

// processFIG1 parses label records (clause 5.2.2): ensemble (ext 0),
// programme service (ext 1), service component (ext 4), and data service
// (ext 5) labels, each a fixed 16 character field followed by a 2-byte
// abbreviation flag mask.
func (p *Parser) processFIG1(data []byte) {
	if len(data) < 1 {
		return
	}
	header := data[0]
	charset := Charset(header >> 4)
	ext := header & 0x07
	body := data[1:]

	const labelLen = 16
	switch ext {
	case 0: // ensemble label
		if len(body) < 2+labelLen+2 {
			return
		}
		eid := binary.BigEndian.Uint16(body[0:2])
		label := DecodeText(body[2:2+labelLen], charset)
		short := shortLabel(label, binary.BigEndian.Uint16(body[2+labelLen:4+labelLen]))
		e, ok := p.DB.Ensemble()
		if !ok || e.EnsembleID != eid {
			e = Ensemble{EnsembleID: eid}
		}
		e.Label = label
		e.ShortLabel = short
		p.DB.UpdateEnsemble(e)
	case 1: // programme service label
		if len(body) < 2+labelLen+2 {
			return
		}
		sid := uint32(binary.BigEndian.Uint16(body[0:2]))
		p.applyServiceLabel(sid, body[2:], charset)
	case 2, 3:
		// Not allocated by ETSI EN 300 401 Table 14 (only 0, 1, 4, 5, 6 are
		// defined label extensions); present here only so the full FIG 1
		// extension field range is explicitly enumerated rather than
		// silently falling through the switch.
	case 4: // service component label
		if len(body) < 1 {
			return
		}
		flags := body[0]
		pd := flags&0x80 != 0
		scids := flags & 0x0F
		rest := body[1:]
		sidLen := 2
		if pd {
			sidLen = 4
		}
		if len(rest) < sidLen+labelLen+2 {
			return
		}
		var sid uint32
		if pd {
			sid = binary.BigEndian.Uint32(rest[0:4])
		} else {
			sid = uint32(binary.BigEndian.Uint16(rest[0:2]))
		}
		label := DecodeText(rest[sidLen:sidLen+labelLen], charset)
		short := shortLabel(label, binary.BigEndian.Uint16(rest[sidLen+labelLen:sidLen+labelLen+2]))
		p.DB.UpdateComponentLabel(sid, scids, label, short)
	case 5: // data service label
		if len(body) < 4+labelLen+2 {
			return
		}
		sid := binary.BigEndian.Uint32(body[0:4])
		p.applyServiceLabel(sid, body[4:], charset)
	case 6: // X-PAD user application label
		if len(body) < 3 {
			return
		}
		sid := uint32(binary.BigEndian.Uint16(body[0:2]))
		scidsAndAppType := body[2]
		scids := scidsAndAppType >> 4
		rest := body[3:]
		if len(rest) < 1+labelLen+2 {
			return
		}
		appType := uint16(rest[0] & 0x1F)
		label := DecodeText(rest[1:1+labelLen], charset)
		short := shortLabel(label, binary.BigEndian.Uint16(rest[1+labelLen:3+labelLen]))
		p.DB.UpdateUserApplicationLabel(sid, scids, appType, label, short)
	}
}

func (p *Parser) applyServiceLabel(sid uint32, rest []byte, charset Charset) {
	const labelLen = 16
	if len(rest) < labelLen+2 {
		return
	}
	label := DecodeText(rest[:labelLen], charset)
	short := shortLabel(label, binary.BigEndian.Uint16(rest[labelLen:labelLen+2]))
	s, ok := p.DB.Service(sid)
	if !ok {
		s = Service{ServiceID: sid}
	}
	s.Label = label
	s.ShortLabel = short
	p.DB.UpdateService(s)
}

// shortLabel extracts the abbreviated form of label using mask, a 16-bit
// field whose set bits mark which of label's (rune) characters are part
// of the short form (clause 5.2.2.3).
func shortLabel(label string, mask uint16) string {
	runes := []rune(label)
	var b []rune
	for i := 0; i < len(runes) && i < 16; i++ {
		if mask&(1<<uint(15-i)) != 0 {
			b = append(b, runes[i])
		}
	}
	return string(b)
}
