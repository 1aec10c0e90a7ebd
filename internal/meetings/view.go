package meetings

import (
	"slices"

	"github.com/wolfeidau/calendash/internal/models"
)

// Stats are the counters shown at the top of the dashboard.
type Stats struct {
	Total    int `json:"total"`
	Upcoming int `json:"upcoming"`
	Past     int `json:"past"`
}

// View splits an enriched meeting list into the upcoming and past tabs.
type View struct {
	All      []models.Meeting `json:"all"`
	Upcoming []models.Meeting `json:"upcoming"`
	Past     []models.Meeting `json:"past"`
	Stats    Stats            `json:"stats"`
}

// Partition builds a View. Upcoming meetings are ordered soonest first and past
// meetings most recent first.
func Partition(meetings []models.Meeting) View {
	view := View{
		All:      slices.Clone(meetings),
		Upcoming: []models.Meeting{},
		Past:     []models.Meeting{},
	}

	for _, m := range meetings {
		if m.IsPast {
			view.Past = append(view.Past, m)
		} else {
			view.Upcoming = append(view.Upcoming, m)
		}
	}

	slices.SortStableFunc(view.Upcoming, func(a, b models.Meeting) int {
		return a.Start.Compare(b.Start)
	})
	slices.SortStableFunc(view.Past, func(a, b models.Meeting) int {
		return b.Start.Compare(a.Start)
	})

	view.Stats = Stats{
		Total:    len(meetings),
		Upcoming: len(view.Upcoming),
		Past:     len(view.Past),
	}

	return view
}
