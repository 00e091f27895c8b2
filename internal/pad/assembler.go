package pad

// segmentSlot records one received segment's payload and where it landed
// in the unordered receive buffer, mirroring MOT_Assembler's m_segments
// bookkeeping (MOT_assembler.cpp).
type segmentSlot struct {
	length int
	offset int
}

// Assembler reassembles a MOT header or body entity from its out-of-order
// segments (segments can arrive in any order; only the final, complete
// set triggers reconstruction).
type Assembler struct {
	totalSegments int
	haveTotal     bool
	segments      []segmentSlot
	unordered     []byte
	ordered       []byte
}

// NewAssembler creates an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Reset clears all accumulated segments.
func (a *Assembler) Reset() {
	a.totalSegments = 0
	a.haveTotal = false
	a.segments = a.segments[:0]
	a.unordered = a.unordered[:0]
	a.ordered = a.ordered[:0]
}

// SetTotalSegments records the session's segment count, learned from the
// last segment's is_last_segment flag plus its index.
func (a *Assembler) SetTotalSegments(n int) {
	a.totalSegments = n
	a.haveTotal = true
	if len(a.segments) < n {
		grown := make([]segmentSlot, n)
		copy(grown, a.segments)
		a.segments = grown
	}
}

// AddSegment records segment index's payload and returns true once every
// segment up to the known total has arrived, at which point Ordered()
// returns the reassembled buffer.
func (a *Assembler) AddSegment(index int, buf []byte) bool {
	if index >= len(a.segments) {
		grown := make([]segmentSlot, index+1)
		copy(grown, a.segments)
		a.segments = grown
	}
	if a.haveTotal && index >= a.totalSegments {
		return false
	}

	seg := &a.segments[index]
	if seg.length != 0 {
		return false // duplicate, already have this segment
	}

	seg.length = len(buf)
	seg.offset = len(a.unordered)
	a.unordered = append(a.unordered, buf...)

	if a.checkComplete() {
		a.reconstruct()
		return true
	}
	return false
}

func (a *Assembler) checkComplete() bool {
	if !a.haveTotal {
		return false
	}
	total := 0
	for i := 0; i < a.totalSegments; i++ {
		if a.segments[i].length == 0 {
			return false
		}
		total += a.segments[i].length
	}
	return total == len(a.unordered)
}

func (a *Assembler) reconstruct() {
	a.ordered = make([]byte, len(a.unordered))
	write := 0
	for i := 0; i < a.totalSegments; i++ {
		seg := a.segments[i]
		copy(a.ordered[write:write+seg.length], a.unordered[seg.offset:seg.offset+seg.length])
		write += seg.length
	}
}

// Ordered returns the reassembled buffer, valid after AddSegment returns
// true.
func (a *Assembler) Ordered() []byte {
	return a.ordered
}
