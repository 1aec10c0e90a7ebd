package meetings

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/calendash/internal/models"
)

var testNow = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func testMeetings() []models.Meeting {
	return []models.Meeting{
		{
			ID:    "past",
			Title: "Retro",
			Start: testNow.Add(-3 * time.Hour),
			End:   testNow.Add(-2 * time.Hour),
			Attendees: []models.Attendee{
				{Name: "A", Email: "a@example.com", Status: models.AttendeeAccepted},
			},
		},
		{
			ID:    "ongoing",
			Title: "Planning",
			Start: testNow.Add(-30 * time.Minute),
			End:   testNow.Add(30 * time.Minute),
		},
		{
			ID:        "future",
			Title:     "Demo",
			Start:     testNow.Add(2 * time.Hour),
			End:       testNow.Add(3 * time.Hour),
			AISummary: "stale summary",
		},
		{
			ID:    "ends-now",
			Title: "Sync",
			Start: testNow.Add(-time.Hour),
			End:   testNow,
		},
	}
}

func TestEnricher_Enrich(t *testing.T) {
	e := NewEnricher(WithClock(func() time.Time { return testNow }))

	enriched := e.Enrich(testMeetings())
	require.Len(t, enriched, 4)

	byID := map[string]models.Meeting{}
	for _, m := range enriched {
		byID[m.ID] = m
	}

	require.True(t, byID["past"].IsPast)
	require.NotEmpty(t, byID["past"].AISummary)

	require.False(t, byID["ongoing"].IsPast)
	require.Empty(t, byID["ongoing"].AISummary)

	require.False(t, byID["future"].IsPast)
	require.Empty(t, byID["future"].AISummary, "upcoming meetings never carry a summary")

	// end == now is not strictly before now
	require.False(t, byID["ends-now"].IsPast)
}

func TestEnricher_DoesNotMutateInput(t *testing.T) {
	e := NewEnricher(WithClock(func() time.Time { return testNow }))

	input := testMeetings()
	_ = e.Enrich(input)

	require.False(t, input[0].IsPast)
	require.Empty(t, input[0].AISummary)
	require.Equal(t, "stale summary", input[2].AISummary)
}

func TestEnricher_SummaryInvariant(t *testing.T) {
	e := NewEnricher(
		WithClock(func() time.Time { return testNow }),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	)

	for range 50 {
		for _, m := range e.Enrich(testMeetings()) {
			if m.IsPast {
				require.NotEmpty(t, m.AISummary)
			} else {
				require.Empty(t, m.AISummary)
			}
		}
	}
}

func TestEnricher_SummariesComeFromTemplates(t *testing.T) {
	e := NewEnricher(
		WithClock(func() time.Time { return testNow }),
		WithRand(rand.New(rand.NewPCG(7, 7))),
	)

	m := testMeetings()[0]
	known := map[string]bool{}
	for _, tmpl := range summaryTemplates {
		known[tmpl(&m)] = true
	}

	seen := map[string]bool{}
	for range 200 {
		summary := e.Enrich([]models.Meeting{m})[0].AISummary
		require.True(t, known[summary], "unexpected summary %q", summary)
		seen[summary] = true
	}

	// uniform selection over six templates should hit more than one in 200 draws
	require.Greater(t, len(seen), 1)
}

func TestPartition(t *testing.T) {
	e := NewEnricher(WithClock(func() time.Time { return testNow }))

	view := Partition(e.Enrich(testMeetings()))

	require.Equal(t, Stats{Total: 4, Upcoming: 3, Past: 1}, view.Stats)
	require.Len(t, view.All, 4)

	require.Equal(t, "ends-now", view.Upcoming[0].ID)
	require.Equal(t, "ongoing", view.Upcoming[1].ID)
	require.Equal(t, "future", view.Upcoming[2].ID)
	require.Equal(t, "past", view.Past[0].ID)
}

func TestPartition_PastMostRecentFirst(t *testing.T) {
	past := []models.Meeting{
		{ID: "old", Start: testNow.Add(-72 * time.Hour), IsPast: true},
		{ID: "recent", Start: testNow.Add(-2 * time.Hour), IsPast: true},
		{ID: "middle", Start: testNow.Add(-24 * time.Hour), IsPast: true},
	}

	view := Partition(past)
	require.Equal(t, []string{"recent", "middle", "old"}, []string{view.Past[0].ID, view.Past[1].ID, view.Past[2].ID})
	require.Empty(t, view.Upcoming)
}

func TestPartition_Empty(t *testing.T) {
	view := Partition(nil)
	require.Equal(t, Stats{}, view.Stats)
	require.NotNil(t, view.Upcoming)
	require.NotNil(t, view.Past)
}

func TestEnricher_NilRandKeepsDefault(t *testing.T) {
	e := NewEnricher(
		WithClock(func() time.Time { return testNow }),
		WithRand(nil),
	)

	require.NotPanics(t, func() {
		enriched := e.Enrich(testMeetings())
		require.NotEmpty(t, enriched[0].AISummary)
	})
}
