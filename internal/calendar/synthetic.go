package calendar

import (
	"context"
	"strconv"
	"time"

	"github.com/wolfeidau/calendash/internal/models"
)

// DefaultSyntheticDelay mimics the latency of a real calendar call.
const DefaultSyntheticDelay = 1500 * time.Millisecond

type syntheticMeeting struct {
	title       string
	description string
	dayOffset   int
	startHour   int
	startMin    int
	endHour     int
	endMin      int
	location    string
	attendees   []models.Attendee
}

func attendee(name, email string, status models.AttendeeStatus) models.Attendee {
	return models.Attendee{Name: name, Email: email, Status: status}
}

var syntheticData = []syntheticMeeting{
	{
		title:       "Q1 Product Strategy Review",
		description: "Quarterly review of product roadmap and strategic initiatives",
		dayOffset:   -5, startHour: 10, endHour: 11, endMin: 30,
		location: "Conference Room A",
		attendees: []models.Attendee{
			attendee("Sarah Johnson", "sarah.j@company.com", models.AttendeeAccepted),
			attendee("Michael Chen", "michael.c@company.com", models.AttendeeAccepted),
			attendee("Emily Rodriguez", "emily.r@company.com", models.AttendeeAccepted),
		},
	},
	{
		title:       "Engineering Standup",
		description: "Daily sync with engineering team",
		dayOffset:   -3, startHour: 9, endHour: 9, endMin: 30,
		attendees: []models.Attendee{
			attendee("David Kim", "david.k@company.com", models.AttendeeAccepted),
			attendee("Lisa Wang", "lisa.w@company.com", models.AttendeeAccepted),
			attendee("James Miller", "james.m@company.com", models.AttendeeDeclined),
			attendee("Anna Schmidt", "anna.s@company.com", models.AttendeeAccepted),
		},
	},
	{
		title:       "Client Demo - Acme Corp",
		description: "Product demonstration for potential enterprise client",
		dayOffset:   -2, startHour: 14, endHour: 15,
		location: "Zoom",
		attendees: []models.Attendee{
			attendee("Robert Taylor", "robert.t@acme.com", models.AttendeeAccepted),
			attendee("Jennifer Lee", "jennifer.l@company.com", models.AttendeeAccepted),
		},
	},
	{
		title:       "Design System Workshop",
		description: "Workshop to align on new design system components",
		dayOffset:   -1, startHour: 13, endHour: 15,
		location: "Design Lab",
		attendees: []models.Attendee{
			attendee("Sophie Martin", "sophie.m@company.com", models.AttendeeAccepted),
			attendee("Alex Thompson", "alex.t@company.com", models.AttendeeAccepted),
			attendee("Chris Anderson", "chris.a@company.com", models.AttendeePending),
		},
	},
	{
		title:       "Team All-Hands",
		description: "Monthly company-wide update and Q&A session",
		dayOffset:   1, startHour: 11, endHour: 12,
		location: "Main Auditorium",
		attendees: []models.Attendee{
			attendee("CEO - Mark Stevens", "mark.s@company.com", models.AttendeeAccepted),
			attendee("All Staff", "staff@company.com", models.AttendeePending),
		},
	},
	{
		title:       "Sprint Planning - Team Velocity",
		description: "Planning session for Sprint 24",
		dayOffset:   2, startHour: 10, endHour: 12,
		attendees: []models.Attendee{
			attendee("Tom Wilson", "tom.w@company.com", models.AttendeeAccepted),
			attendee("Rachel Green", "rachel.g@company.com", models.AttendeeAccepted),
			attendee("Kevin Brown", "kevin.b@company.com", models.AttendeeAccepted),
			attendee("Michelle Davis", "michelle.d@company.com", models.AttendeePending),
		},
	},
	{
		title:       "1:1 with Manager",
		description: "Bi-weekly check-in and career development discussion",
		dayOffset:   3, startHour: 15, endHour: 15, endMin: 30,
		location: "Office - Room 302",
		attendees: []models.Attendee{
			attendee("Patricia Moore", "patricia.m@company.com", models.AttendeeAccepted),
		},
	},
	{
		title:       "Security Audit Review",
		description: "Review findings from Q1 security audit",
		dayOffset:   5, startHour: 14, startMin: 30, endHour: 16,
		location: "Secure Conference Room",
		attendees: []models.Attendee{
			attendee("Security Team", "security@company.com", models.AttendeeAccepted),
			attendee("Daniel Garcia", "daniel.g@company.com", models.AttendeeAccepted),
			attendee("Nicole White", "nicole.w@company.com", models.AttendeeAccepted),
		},
	},
	{
		title:       "Marketing Campaign Kickoff",
		description: "Launch planning for summer product campaign",
		dayOffset:   7, startHour: 9, startMin: 30, endHour: 11,
		attendees: []models.Attendee{
			attendee("Marketing Team", "marketing@company.com", models.AttendeePending),
			attendee("Brandon Hall", "brandon.h@company.com", models.AttendeeAccepted),
			attendee("Olivia Martinez", "olivia.m@company.com", models.AttendeeAccepted),
		},
	},
	{
		title:       "Board Meeting Preparation",
		description: "Prep session for upcoming board presentation",
		dayOffset:   10, startHour: 13, endHour: 15,
		location: "Executive Boardroom",
		attendees: []models.Attendee{
			attendee("Executive Team", "exec@company.com", models.AttendeeAccepted),
			attendee("Finance - Karen Lee", "karen.l@company.com", models.AttendeeAccepted),
		},
	},
}

// SyntheticMeetings builds the demo dataset relative to now: four meetings on the
// preceding days and six on the following days. The result is not enriched.
func SyntheticMeetings(now time.Time) []models.Meeting {
	y, m, d := now.Date()
	loc := now.Location()

	out := make([]models.Meeting, 0, len(syntheticData))
	for i, s := range syntheticData {
		out = append(out, models.Meeting{
			ID:          strconv.Itoa(i + 1),
			Title:       s.title,
			Description: s.description,
			Start:       time.Date(y, m, d+s.dayOffset, s.startHour, s.startMin, 0, 0, loc),
			End:         time.Date(y, m, d+s.dayOffset, s.endHour, s.endMin, 0, 0, loc),
			Location:    s.location,
			Attendees:   append([]models.Attendee(nil), s.attendees...),
		})
	}
	return out
}

// SyntheticSource serves SyntheticMeetings after an optional delay. It never
// contacts the network and ignores the token.
type SyntheticSource struct {
	Delay time.Duration
	Now   func() time.Time
}

// NewSyntheticSource returns a source using the wall clock.
func NewSyntheticSource(delay time.Duration) *SyntheticSource {
	return &SyntheticSource{Delay: delay, Now: time.Now}
}

func (s *SyntheticSource) Fetch(ctx context.Context, _ *models.Token) ([]models.Meeting, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return SyntheticMeetings(s.now()), nil
}

func (s *SyntheticSource) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
