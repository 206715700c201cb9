package deepgram

import "voicenote/internal/domain"

// segmentTracker turns Deepgram's stream of interim and final results into the
// ordered segment list handed to recognition handlers. Interim results revise
// the open segment; a final result closes it.
type segmentTracker struct {
	segments []domain.Segment
	open     bool
}

// apply records one provider result and reports whether the segment list changed.
func (t *segmentTracker) apply(text string, final bool) bool {
	if text == "" {
		if !t.open {
			return false
		}
		if final {
			// Deepgram finalizes silence with an empty transcript.
			t.segments = t.segments[:len(t.segments)-1]
			t.open = false
			return true
		}
		return false
	}

	segment := domain.Segment{Text: text, IsFinal: final}
	if t.open {
		t.segments[len(t.segments)-1] = segment
	} else {
		t.segments = append(t.segments, segment)
	}
	t.open = !final
	return true
}

func (t *segmentTracker) snapshot() []domain.Segment {
	return append([]domain.Segment(nil), t.segments...)
}
