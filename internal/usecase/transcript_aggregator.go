package usecase

import (
	"strings"
	"sync"

	"deskscribe/internal/domain"
)

// transcriptAggregator builds the user-visible transcript from the
// recognizer's event stream. Within one recognition session each partial
// replaces the previous one; a final result commits the segment and the
// next session appends after it. The published text is always the joined
// committed segments plus the live partial.
type transcriptAggregator struct {
	mu      sync.Mutex
	finals  []string
	partial string
}

func newTranscriptAggregator() *transcriptAggregator {
	return &transcriptAggregator{}
}

// Apply folds one recognition event in and returns the resulting text.
func (a *transcriptAggregator) Apply(event domain.TranscriptEvent) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	text := strings.TrimSpace(event.Text)
	if event.Final() {
		// An empty final still ends the session; promote the live
		// partial so its words survive into the committed text.
		if text == "" {
			text = a.partial
		}
		if text != "" {
			a.finals = append(a.finals, text)
		}
		a.partial = ""
	} else if text != "" {
		a.partial = text
	}
	return a.currentLocked()
}

// Current returns the published transcript without folding anything in.
func (a *transcriptAggregator) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentLocked()
}

func (a *transcriptAggregator) currentLocked() string {
	joined := strings.Join(a.finals, " ")
	if a.partial == "" {
		return joined
	}
	if joined == "" {
		return a.partial
	}
	return joined + " " + a.partial
}
