package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/roach88/dropfarm/internal/engine"
	"github.com/roach88/dropfarm/internal/model"
)

func farmingLabel(st model.FarmingState) string {
	switch {
	case st.Running && st.Paused:
		return "paused"
	case st.Running:
		return "running"
	default:
		return "stopped"
	}
}

// humanizeLeft formats the time until t, "-" when unknown.
func humanizeLeft(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := t.Sub(now)
	if d <= 0 {
		return "ended"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	mins := int(d % time.Hour / time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

func dropLine(d model.Drop) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d%%", d.Name, d.Progress)
	if d.RemainingMinutes != nil {
		fmt.Fprintf(&b, ", %dm left", *d.RemainingMinutes)
	}
	if d.Claimable {
		b.WriteString(", claimable")
	}
	return b.String()
}

func campaignLine(c model.Campaign, now time.Time) string {
	line := c.Name
	if key := c.Key(); key != "" && key != c.Name {
		line += " (" + key + ")"
	}
	if !c.EndsAt.IsZero() {
		line += fmt.Sprintf(", ends in %s [%s]", humanizeLeft(c.EndsAt, now), model.BucketFor(c.EndsAt, now))
	}
	return line
}

// renderStatus writes the human-readable farming summary.
func renderStatus(w io.Writer, st model.FarmingState, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	fmt.Fprintf(tw, "Farming:\t%s\n", farmingLabel(st))
	if st.Selected != nil {
		fmt.Fprintf(tw, "Campaign:\t%s\n", campaignLine(*st.Selected, now))
	} else {
		fmt.Fprintf(tw, "Campaign:\t-\n")
	}
	if s := st.ActiveStreamer; s != nil {
		line := s.Login
		if s.Viewers != nil {
			line += fmt.Sprintf(" (%d viewers)", *s.Viewers)
		}
		fmt.Fprintf(tw, "Streamer:\t%s\n", line)
	} else {
		fmt.Fprintf(tw, "Streamer:\t-\n")
	}
	if st.CurrentDrop != nil {
		fmt.Fprintf(tw, "Drop:\t%s\n", dropLine(*st.CurrentDrop))
	} else {
		fmt.Fprintf(tw, "Drop:\t-\n")
	}
	fmt.Fprintf(tw, "Pending:\t%d\n", len(st.Pending))
	fmt.Fprintf(tw, "Completed:\t%d\n", len(st.Completed))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(st.Pending) > 0 {
		fmt.Fprintln(w, "\nPending drops:")
		for _, d := range st.Pending {
			fmt.Fprintf(w, "  - %s\n", dropLine(d))
		}
	}
	return renderQueue(w, st.Queue, now)
}

func renderQueue(w io.Writer, queue []model.Campaign, now time.Time) error {
	if len(queue) == 0 {
		_, err := fmt.Fprintln(w, "\nQueue: empty")
		return err
	}
	fmt.Fprintln(w, "\nQueue:")
	for i, c := range queue {
		fmt.Fprintf(w, "  %d. %s\n", i+1, campaignLine(c, now))
	}
	return nil
}

func renderCampaigns(w io.Writer, games []model.Campaign, now time.Time) error {
	if len(games) == 0 {
		_, err := fmt.Fprintln(w, "No campaigns available.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tDROPS\tENDS IN\tEXPIRY")
	for _, c := range games {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			c.Name, c.Key(), c.DropCount, humanizeLeft(c.EndsAt, now), model.BucketFor(c.EndsAt, now))
	}
	return tw.Flush()
}

func renderClaims(w io.Writer, recs []engine.ClaimRecord) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No claims recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tDROP\tRESULT")
	for _, r := range recs {
		result := "claimed"
		if !r.Success {
			result = "failed: " + r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.At.UTC().Format(time.RFC3339), r.DropName, result)
	}
	return tw.Flush()
}
