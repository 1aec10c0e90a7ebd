package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfeidau/calendash/internal/meetings"
	"github.com/wolfeidau/calendash/internal/models"
	"github.com/wolfeidau/calendash/internal/telemetry"
)

// DefaultFetchTimeout bounds a single live fetch.
const DefaultFetchTimeout = 10 * time.Second

// Result is the outcome of FetchMeetings. Success is always true; Fallback
// records why live data was replaced and never leaves the process.
type Result struct {
	Success  bool
	Meetings []models.Meeting
	Source   models.Provenance
	Fallback error
}

// FailSoft wraps a live Source and substitutes the synthetic dataset whenever
// the live fetch fails.
type FailSoft struct {
	live      Source
	synthetic *SyntheticSource
	enricher  *meetings.Enricher
	timeout   time.Duration
	now       func() time.Time
}

type Option func(*FailSoft)

// WithTimeout bounds each live fetch.
func WithTimeout(d time.Duration) Option {
	return func(f *FailSoft) {
		f.timeout = d
	}
}

// WithSynthetic replaces the synthetic source, mostly to change its delay.
func WithSynthetic(s *SyntheticSource) Option {
	return func(f *FailSoft) {
		f.synthetic = s
	}
}

// WithClock sets the clock shared by the synthetic dataset and the enricher.
func WithClock(now func() time.Time) Option {
	return func(f *FailSoft) {
		f.now = now
	}
}

// WithEnricher overrides the enricher, for example to seed summary selection.
func WithEnricher(e *meetings.Enricher) Option {
	return func(f *FailSoft) {
		f.enricher = e
	}
}

// NewFailSoft creates the facade. A nil live source always yields synthetic data.
func NewFailSoft(live Source, opts ...Option) *FailSoft {
	f := &FailSoft{
		live:    live,
		timeout: DefaultFetchTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.synthetic == nil {
		f.synthetic = &SyntheticSource{Delay: DefaultSyntheticDelay}
	}
	if f.synthetic.Now == nil {
		f.synthetic.Now = f.now
	}
	if f.enricher == nil {
		f.enricher = meetings.NewEnricher(meetings.WithClock(f.now))
	}
	return f
}

// HasLiveSource reports whether a live source is configured.
func (f *FailSoft) HasLiveSource() bool {
	return f.live != nil
}

// FetchMeetings returns enriched meetings for token, never failing.
func (f *FailSoft) FetchMeetings(ctx context.Context, token *models.Token) Result {
	ctx, span := telemetry.Tracer().Start(ctx, "calendar.FetchMeetings",
		trace.WithAttributes(attribute.Bool("calendar.live_configured", f.live != nil)))
	defer span.End()

	start := time.Now()
	res := f.fetch(ctx, token)

	attrs := metric.WithAttributes(attribute.String("source", string(res.Source)))
	m := telemetry.GetMetrics()
	m.MeetingsFetchTotal.Add(ctx, 1, attrs)
	m.MeetingsFetchDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	span.SetAttributes(
		attribute.String("calendar.source", string(res.Source)),
		attribute.Int("calendar.meetings", len(res.Meetings)),
	)
	if res.Fallback != nil {
		span.RecordError(res.Fallback)
		span.SetStatus(codes.Ok, "served synthetic data")
	}

	return res
}

func (f *FailSoft) fetch(ctx context.Context, token *models.Token) Result {
	if token == nil || f.live == nil {
		return f.syntheticResult(ctx, token)
	}

	liveCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	raw, err := f.live.Fetch(liveCtx, token)
	if err != nil {
		return f.fallback(ctx, err)
	}

	valid := make([]models.Meeting, 0, len(raw))
	for _, m := range raw {
		if !m.Valid() {
			zerolog.Ctx(ctx).Warn().
				Str("meeting_id", m.ID).
				Time("start", m.Start).
				Time("end", m.End).
				Msg("dropping meeting that ends before it starts")
			telemetry.GetMetrics().MeetingsDroppedTotal.Add(ctx, 1)
			continue
		}
		valid = append(valid, m)
	}

	return Result{
		Success:  true,
		Meetings: f.enricher.Enrich(valid),
		Source:   models.ProvenanceLive,
	}
}

func (f *FailSoft) syntheticResult(ctx context.Context, token *models.Token) Result {
	raw, err := f.synthetic.Fetch(ctx, token)
	if err != nil {
		// the delay was cut short, the dataset itself cannot fail
		raw = SyntheticMeetings(f.now())
	}

	return Result{
		Success:  true,
		Meetings: f.enricher.Enrich(raw),
		Source:   models.ProvenanceSynthetic,
		Fallback: err,
	}
}

func (f *FailSoft) fallback(ctx context.Context, cause error) Result {
	reason := fallbackReason(cause)
	if reason == reasonCanceled {
		// a newer load or a logout took over
		zerolog.Ctx(ctx).Debug().Err(cause).Msg("calendar fetch canceled, falling back to demo data")
	} else {
		zerolog.Ctx(ctx).Warn().Err(cause).Str("reason", reason).Msg("calendar fetch failed, falling back to demo data")
	}

	telemetry.GetMetrics().MeetingsFallbackTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)))

	return Result{
		Success:  true,
		Meetings: f.enricher.Enrich(SyntheticMeetings(f.now())),
		Source:   models.ProvenanceSynthetic,
		Fallback: cause,
	}
}

const reasonCanceled = "canceled"

// fallbackReason buckets a fetch error for the fallback counter.
func fallbackReason(err error) string {
	var statusErr *StatusError
	var parseErr *ParseError
	switch {
	case errors.Is(err, ErrNoToken):
		return "no_token"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return reasonCanceled
	case errors.As(err, &parseErr):
		return "parse"
	default:
		return "network"
	}
}
