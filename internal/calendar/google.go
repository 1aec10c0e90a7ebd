package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/wolfeidau/calendash/internal/models"
)

const (
	googleCalendarID = "primary"
	googleMaxResults = 50
	googleLookBack   = 7 * 24 * time.Hour
	googleLookAhead  = 30 * 24 * time.Hour
	googleNoTitle    = "No Title"
)

// GoogleSource lists events from the user's primary Google calendar.
type GoogleSource struct {
	httpClient *http.Client
	endpoint   string
	now        func() time.Time
}

type GoogleOption func(*GoogleSource)

// WithGoogleHTTPClient sets the base client the bearer transport is layered on.
func WithGoogleHTTPClient(c *http.Client) GoogleOption {
	return func(s *GoogleSource) {
		s.httpClient = c
	}
}

// WithGoogleEndpoint overrides the Calendar API base URL, used by tests.
func WithGoogleEndpoint(endpoint string) GoogleOption {
	return func(s *GoogleSource) {
		s.endpoint = endpoint
	}
}

// WithGoogleClock overrides the clock used for the event window.
func WithGoogleClock(now func() time.Time) GoogleOption {
	return func(s *GoogleSource) {
		s.now = now
	}
}

func NewGoogleSource(opts ...GoogleOption) *GoogleSource {
	s := &GoogleSource{
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GoogleSource) Fetch(ctx context.Context, token *models.Token) ([]models.Meeting, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}

	svc, err := s.service(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	events, err := svc.Events.List(googleCalendarID).
		TimeMin(now.Add(-googleLookBack).Format(time.RFC3339)).
		TimeMax(now.Add(googleLookAhead).Format(time.RFC3339)).
		MaxResults(googleMaxResults).
		OrderBy("startTime").
		SingleEvents(true).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, &StatusError{StatusCode: apiErr.Code, Status: apiErr.Message}
		}
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}

	meetings := make([]models.Meeting, 0, len(events.Items))
	for _, ev := range events.Items {
		m, err := googleMeeting(ev, now.Location())
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		meetings = append(meetings, m)
	}

	return meetings, nil
}

func (s *GoogleSource) service(ctx context.Context, token *models.Token) (*gcal.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	})

	// oauth2.NewClient layers the bearer transport over the client in the context
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(authCtx, ts))}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return svc, nil
}

func googleMeeting(ev *gcal.Event, loc *time.Location) (models.Meeting, error) {
	start, err := eventTime(ev.Start, loc)
	if err != nil {
		return models.Meeting{}, fmt.Errorf("event %s start: %w", ev.Id, err)
	}
	end, err := eventTime(ev.End, loc)
	if err != nil {
		return models.Meeting{}, fmt.Errorf("event %s end: %w", ev.Id, err)
	}

	title := ev.Summary
	if title == "" {
		title = googleNoTitle
	}

	attendees := make([]models.Attendee, 0, len(ev.Attendees))
	for _, a := range ev.Attendees {
		name := a.DisplayName
		if name == "" {
			name = a.Email
		}
		attendees = append(attendees, models.Attendee{
			Name:   name,
			Email:  a.Email,
			Status: models.ParseAttendeeStatus(a.ResponseStatus),
		})
	}

	return models.Meeting{
		ID:          ev.Id,
		Title:       title,
		Description: ev.Description,
		Start:       start,
		End:         end,
		Attendees:   attendees,
		Location:    ev.Location,
	}, nil
}

// eventTime reads a timed or all-day event boundary. All-day dates are placed
// at midnight in loc.
func eventTime(t *gcal.EventDateTime, loc *time.Location) (time.Time, error) {
	if t == nil {
		return time.Time{}, errors.New("missing time")
	}
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	if t.Date != "" {
		return time.ParseInLocation(time.DateOnly, t.Date, loc)
	}
	return time.Time{}, errors.New("missing time")
}
