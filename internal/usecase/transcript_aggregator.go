package usecase

import (
	"strings"

	"voicenote/internal/domain"
)

// transcriptAggregator rebuilds the full transcript from the segments of the
// current stream plus whatever earlier streams of the same session produced.
type transcriptAggregator struct {
	carried  string
	segments []domain.Segment
}

func newTranscriptAggregator() *transcriptAggregator {
	return &transcriptAggregator{}
}

// Reset drops everything and starts over from seed.
func (a *transcriptAggregator) Reset(seed string) {
	a.carried = strings.TrimSpace(seed)
	a.segments = nil
}

// Update replaces the known segments of the current stream. Platforms resend
// every segment on each result, so an interim segment is overwritten in place.
func (a *transcriptAggregator) Update(segments []domain.Segment) {
	a.segments = append(a.segments[:0], segments...)
}

// Carry folds the current stream into the carried prefix ahead of a restart.
func (a *transcriptAggregator) Carry() {
	a.carried = a.Text()
	a.segments = nil
}

func (a *transcriptAggregator) Text() string {
	parts := make([]string, 0, len(a.segments)+1)
	if a.carried != "" {
		parts = append(parts, a.carried)
	}
	for _, segment := range a.segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}
