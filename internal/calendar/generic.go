package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/calendash/internal/client"
	"github.com/wolfeidau/calendash/internal/models"
)

// maxBodySize caps how much of a calendar response is read.
const maxBodySize = 4 << 20

// GenericSource reads meetings from a JSON endpoint that already speaks the
// dashboard's meeting shape.
//
//	GET {endpoint}/calendar/events
//	Authorization: Bearer <access token>
//
//	{"items":[{"id":"..","title":"..","startTime":"..","endTime":"..","attendees":[..]}]}
type GenericSource struct {
	endpoint string
	client   *http.Client
}

// NewGenericSource creates a source for endpoint. A nil client falls back to an
// in-memory caching client.
func NewGenericSource(endpoint string, httpClient *http.Client) *GenericSource {
	if httpClient == nil {
		httpClient = client.NewInMemoryCachingHTTPClient()
	}
	return &GenericSource{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   httpClient,
	}
}

type genericEvents struct {
	Items []genericEvent `json:"items"`
}

type genericEvent struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	StartTime   time.Time         `json:"startTime"`
	EndTime     time.Time         `json:"endTime"`
	Attendees   []genericAttendee `json:"attendees"`
	Location    string            `json:"location"`
}

type genericAttendee struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

var errMissingItems = errors.New("response has no items field")

func (s *GenericSource) Fetch(ctx context.Context, token *models.Token) ([]models.Meeting, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/calendar/events", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	zerolog.Ctx(ctx).Debug().
		Bool("cached", client.IsCached(resp)).
		Str("endpoint", s.endpoint).
		Msg("calendar events received")

	// read to EOF so the caching transport can store the response
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar events: %w", err)
	}

	var body struct {
		Items *[]genericEvent `json:"items"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, &ParseError{Err: err}
	}
	if body.Items == nil {
		return nil, &ParseError{Err: errMissingItems}
	}

	return genericEvents{Items: *body.Items}.meetings(), nil
}

func (e genericEvents) meetings() []models.Meeting {
	out := make([]models.Meeting, 0, len(e.Items))
	for _, item := range e.Items {
		attendees := make([]models.Attendee, 0, len(item.Attendees))
		for _, a := range item.Attendees {
			attendees = append(attendees, models.Attendee{
				Name:   a.Name,
				Email:  a.Email,
				Status: models.ParseAttendeeStatus(a.Status),
			})
		}

		out = append(out, models.Meeting{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Start:       item.StartTime,
			End:         item.EndTime,
			Attendees:   attendees,
			Location:    item.Location,
		})
	}
	return out
}
