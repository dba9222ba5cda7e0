// Package report renders training results for people: a colored policy table
// on the terminal and an HTML page of charts.
package report

import (
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"
	"github.com/mattn/go-isatty"

	"fare-rl-go/internal/engine"
)

// UseColor resolves a color mode of auto, always or never against the file
// descriptor the report is written to.
func UseColor(mode string, fd uintptr) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
}

// PrintSummary writes the headline numbers of a run.
func PrintSummary(w io.Writer, s engine.Summary, color bool) error {
	au := aurora.NewAurora(color)
	_, err := fmt.Fprintf(w, "%s\n  episodes        %d\n  states visited  %d\n  mean revenue    %s (sd %.2f)\n  recent revenue  %s\n  mean seats sold %.2f\n",
		au.Bold("Training summary"),
		s.Episodes,
		s.StatesVisited,
		au.Green(fmt.Sprintf("%.2f", s.MeanRevenue)),
		s.StdDevRevenue,
		au.Green(fmt.Sprintf("%.2f", s.RecentMeanRevenue)),
		s.MeanSeatsSold,
	)
	return err
}

// PrintPolicy writes one row per entry. Prices chosen from a learned value
// are green; fallback prices for unvisited states are yellow.
func PrintPolicy(w io.Writer, entries []engine.Entry, color bool) error {
	au := aurora.NewAurora(color)
	if _, err := fmt.Fprintf(w, "%s\n", au.Bold(fmt.Sprintf("%6s %5s %-9s %-9s %-9s %9s %10s",
		"seats", "time", "segment", "rate", "rival", "price", "value"))); err != nil {
		return err
	}
	prevSeats := -1
	for _, e := range entries {
		seats := fmt.Sprintf("%6d", e.State.SeatsLeft)
		if e.State.SeatsLeft == prevSeats {
			seats = fmt.Sprintf("%6s", "")
		}
		prevSeats = e.State.SeatsLeft

		price := fmt.Sprintf("%9.2f", e.Price)
		value := fmt.Sprintf("%10.2f", e.Value)
		var priceCell, valueCell aurora.Value
		if e.Visited {
			priceCell = au.Green(price)
			valueCell = au.Cyan(value)
		} else {
			priceCell = au.Yellow(price)
			valueCell = au.Yellow(fmt.Sprintf("%10s", "unvisited"))
		}
		if _, err := fmt.Fprintf(w, "%s %5d %-9s %-9s %-9s %s %s\n",
			seats, e.State.TimeRemaining, e.State.Segment, e.State.BookingRate, e.State.CompetitorPrice,
			priceCell, valueCell); err != nil {
			return err
		}
	}
	return nil
}
