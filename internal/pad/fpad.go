package pad

import "github.com/cwsl/dabradio/internal/fig"

// xpadIndicator values from the 2-byte F-PAD trailer appended to every
// DAB+ access unit (ETSI TS 102 563 Annex 5.1): the top 2 bits of the
// first F-PAD byte say whether X-PAD data precedes it, and if so whether
// it is the fixed 4-byte "short" form or a variable-length form.
const (
	xpadNone     = 0
	xpadShort    = 1
	xpadVariable = 2
)

// shortXPadLen is the fixed size of short-form X-PAD (ETSI EN 300 401
// clause 5.3.2.2).
const shortXPadLen = 4

// X-PAD application types this decoder recognises from the leading
// content-indicator byte of an X-PAD sub-field (ETSI EN 300 401 Annex
// PD, Table 16 application type allocation). No source file carrying
// this table was in the retrieved corpus; these are the standard's
// published values, not a ported routine — see DESIGN.md.
const (
	appTypeDLStart         = 2
	appTypeDLContinuation  = 3
	appTypeMOTStart        = 12
	appTypeMOTContinuation = 13
)

// ExtractXPAD locates and returns the X-PAD payload embedded at the tail
// of a decoded, CRC-validated access unit, per its F-PAD trailer. It
// returns ok=false if the AU carries no X-PAD (indicator 0) or is too
// short to hold the indicated form.
//
// For the short form the 4 bytes before the F-PAD trailer are returned.
// For the variable-length form everything before the F-PAD trailer is
// returned: its content-indicator list is not parsed, so the X-PAD's
// length and sub-field boundaries are not located. See DESIGN.md.
func ExtractXPAD(au []byte) (xpad []byte, ok bool) {
	if len(au) < 2 {
		return nil, false
	}
	fpad := au[len(au)-2:]
	indicator := fpad[0] >> 6

	switch indicator {
	case xpadShort:
		if len(au) < 2+shortXPadLen {
			return nil, false
		}
		return au[len(au)-2-shortXPadLen : len(au)-2], true
	case xpadVariable:
		// The variable form's true length is carried in the CI list at
		// the start of the X-PAD region, which this decoder does not
		// fully parse (see doc comment above); treat everything before
		// the F-PAD trailer as the candidate X-PAD region instead.
		if len(au) < 3 {
			return nil, false
		}
		return au[:len(au)-2], true
	default:
		return nil, false
	}
}

// DynamicLabelAssembler reassembles a dynamic label from its X-PAD CI=2
// (start) / CI=3 (continuation) segments, following the toggle/first/
// last-segment header bits documented in ETSI EN 300 401 Annex 7 clause
// 7.4.2. No source file implementing this reassembly was in the
// retrieved corpus; field widths below follow the standard's documented
// layout rather than a ported routine — see DESIGN.md.
type DynamicLabelAssembler struct {
	haveToggle bool
	toggle     uint8
	charset    fig.Charset
	buf        []byte
}

// NewDynamicLabelAssembler creates an empty DynamicLabelAssembler.
func NewDynamicLabelAssembler() *DynamicLabelAssembler {
	return &DynamicLabelAssembler{}
}

// AddSegment feeds one DL segment's raw X-PAD sub-field payload
// (including its header byte). It returns the decoded label text once
// the segment marked last-segment arrives.
func (a *DynamicLabelAssembler) AddSegment(raw []byte) (label string, complete bool) {
	if len(raw) < 1 {
		return "", false
	}
	header := raw[0]
	toggle := (header >> 7) & 1
	first := header&0x40 != 0
	last := header&0x20 != 0

	if a.haveToggle && toggle != a.toggle {
		a.buf = a.buf[:0]
	}
	a.toggle = toggle
	a.haveToggle = true

	if first {
		a.buf = a.buf[:0]
		if len(raw) < 2 {
			return "", false
		}
		a.charset = fig.Charset(raw[1] >> 4)
		a.buf = append(a.buf, raw[2:]...)
	} else {
		a.buf = append(a.buf, raw[1:]...)
	}

	if !last {
		return "", false
	}
	label = fig.DecodeText(a.buf, a.charset)
	a.buf = a.buf[:0]
	a.haveToggle = false
	return label, true
}
