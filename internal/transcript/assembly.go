package transcript

import "fmt"

// Assembly places segments by their chunk index, so the order in which results arrive
// does not affect the reassembled text.
type Assembly struct {
	streamID string
	slots    []*Segment
}

func NewAssembly(streamID string, chunkCount int) *Assembly {
	return &Assembly{
		streamID: streamID,
		slots:    make([]*Segment, chunkCount),
	}
}

func (a *Assembly) Put(seg Segment) error {
	if seg.ChunkIndex < 1 || seg.ChunkIndex > len(a.slots) {
		return fmt.Errorf("put %s chunk %d of %d: %w", a.streamID, seg.ChunkIndex, len(a.slots), ErrSegmentRange)
	}
	if a.slots[seg.ChunkIndex-1] != nil {
		return fmt.Errorf("put %s chunk %d: %w", a.streamID, seg.ChunkIndex, ErrDuplicateSegment)
	}
	a.slots[seg.ChunkIndex-1] = &seg
	return nil
}

// Ordered returns the segments by ascending chunk index, failing on any gap.
func (a *Assembly) Ordered() ([]Segment, error) {
	out := make([]Segment, 0, len(a.slots))
	for i, s := range a.slots {
		if s == nil {
			return nil, fmt.Errorf("assemble %s chunk %d: %w", a.streamID, i+1, ErrMissingSegment)
		}
		out = append(out, *s)
	}
	return out, nil
}

func (a *Assembly) Reassemble() (*Transcript, error) {
	ordered, err := a.Ordered()
	if err != nil {
		return nil, err
	}
	return Reassemble(a.streamID, ordered)
}
