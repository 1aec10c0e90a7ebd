package meetings

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/wolfeidau/calendash/internal/models"
)

// summaryTemplates are the canned summaries attached to past meetings.
var summaryTemplates = []func(m *models.Meeting) string{
	func(m *models.Meeting) string {
		return fmt.Sprintf("Key discussion points included project timelines and resource allocation. Action items: %d team members to follow up on deliverables by next week.", len(m.Attendees))
	},
	func(*models.Meeting) string {
		return "Productive session covering quarterly goals and KPIs. Decisions made on budget allocation and hiring priorities for Q2."
	},
	func(*models.Meeting) string {
		return "Technical review meeting with focus on architecture improvements. Identified 3 critical bugs and assigned ownership for fixes."
	},
	func(*models.Meeting) string {
		return "Strategic planning session. Aligned on product roadmap and feature prioritization for next quarter. Strong consensus on direction."
	},
	func(*models.Meeting) string {
		return "Client sync meeting with positive feedback on recent deliverables. Discussed scope expansion and timeline adjustments."
	},
	func(*models.Meeting) string {
		return "Team standup covering sprint progress. 85% of stories completed, 2 blockers identified and resolved during discussion."
	},
}

// Enricher classifies meetings as past or upcoming and attaches summaries to past ones.
type Enricher struct {
	now func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Enricher)

// WithClock overrides the time source used to classify meetings.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) {
		e.now = now
	}
}

// WithRand overrides the source used to pick summaries. A nil rnd keeps the default.
func WithRand(rnd *rand.Rand) Option {
	return func(e *Enricher) {
		if rnd != nil {
			e.rnd = rnd
		}
	}
}

func NewEnricher(opts ...Option) *Enricher {
	e := &Enricher{
		now: time.Now,
		rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich returns a copy of meetings with IsPast and AISummary assigned.
// The input slice is not modified.
func (e *Enricher) Enrich(meetings []models.Meeting) []models.Meeting {
	now := e.now()

	out := make([]models.Meeting, len(meetings))
	for i := range meetings {
		m := meetings[i]
		m.Attendees = append([]models.Attendee(nil), meetings[i].Attendees...)
		m.IsPast = m.End.Before(now)
		m.AISummary = ""
		if m.IsPast {
			m.AISummary = e.summary(&m)
		}
		out[i] = m
	}

	return out
}

func (e *Enricher) summary(m *models.Meeting) string {
	e.mu.Lock()
	idx := e.rnd.IntN(len(summaryTemplates))
	e.mu.Unlock()

	return summaryTemplates[idx](m)
}
