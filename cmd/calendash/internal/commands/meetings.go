package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/wolfeidau/calendash/internal/app"
	"github.com/wolfeidau/calendash/internal/logger"
	"github.com/wolfeidau/calendash/internal/models"
)

type MeetingsCmd struct {
	Past     bool `help:"only show past meetings" xor:"tab"`
	Upcoming bool `help:"only show upcoming meetings" xor:"tab"`

	App AppFlags `embed:""`
}

func (c *MeetingsCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx = log.WithContext(ctx)

	rt, err := c.App.build(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.restore(ctx); err != nil {
		return err
	}

	snap, err := rt.shell.LoadMeetings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load meetings: %w", err)
	}

	c.printMeetings(os.Stdout, snap)
	return nil
}

func (c *MeetingsCmd) printMeetings(w io.Writer, snap app.Snapshot) {
	stats := snap.View.Stats
	_, _ = fmt.Fprintf(w, "Meetings (source: %s, total: %d, upcoming: %d, past: %d)\n",
		snap.Source, stats.Total, stats.Upcoming, stats.Past)

	if !c.Past {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "Upcoming:")
		printMeetingTable(w, snap.View.Upcoming, false)
	}

	if !c.Upcoming {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "Past:")
		printMeetingTable(w, snap.View.Past, true)
	}
}

func printMeetingTable(w io.Writer, meetings []models.Meeting, summaries bool) {
	if len(meetings) == 0 {
		_, _ = fmt.Fprintln(w, "  No meetings found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "  Start\tDuration\tTitle\tAccepted\tLocation")
	for _, m := range meetings {
		title := truncate(m.Title, 40)
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\t%d/%d\t%s\n",
			m.Start.Local().Format("Mon 02 Jan 15:04"),
			m.End.Sub(m.Start).Truncate(time.Minute),
			title,
			m.AcceptedCount(), len(m.Attendees),
			m.Location)
		if summaries && m.AISummary != "" {
			_, _ = fmt.Fprintf(tw, "  \t\t%s\t\t\n", strings.TrimSpace(m.AISummary))
		}
	}
	_ = tw.Flush()
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}
