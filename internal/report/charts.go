package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"fare-rl-go/internal/engine"
)

const maxSmoothingWindow = 100

// WriteCharts renders the per-episode revenue curve and a heat map of the
// greedy price over the given policy entries as one HTML page.
func WriteCharts(w io.Writer, revenues []float64, entries []engine.Entry) error {
	page := components.NewPage()
	page.AddCharts(revenueChart(revenues), policyHeatMap(entries))
	return page.Render(w)
}

func revenueChart(revenues []float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Revenue per episode",
			Subtitle: fmt.Sprintf("%d episodes", len(revenues)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "revenue"}),
	)

	episodes := make([]string, len(revenues))
	raw := make([]opts.LineData, len(revenues))
	for i, r := range revenues {
		episodes[i] = fmt.Sprintf("%d", i+1)
		raw[i] = opts.LineData{Value: r}
	}
	window := smoothingWindow(len(revenues))
	smoothed := movingAverage(revenues, window)
	avg := make([]opts.LineData, len(smoothed))
	for i, v := range smoothed {
		avg[i] = opts.LineData{Value: v}
	}

	line.SetXAxis(episodes).
		AddSeries("revenue", raw).
		AddSeries(fmt.Sprintf("moving average (%d)", window), avg)
	return line
}

// policyHeatMap puts inventory levels on the x axis and the booking rate /
// competitor price combinations on the y axis.
func policyHeatMap(entries []engine.Entry) *charts.HeatMap {
	hm := charts.NewHeatMap()

	var seats []string
	seatIndex := make(map[int]int)
	var rows []string
	rowIndex := make(map[[2]engine.Level]int)
	for _, e := range entries {
		if _, ok := seatIndex[e.State.SeatsLeft]; !ok {
			seatIndex[e.State.SeatsLeft] = len(seats)
			seats = append(seats, fmt.Sprintf("%d seats", e.State.SeatsLeft))
		}
		key := [2]engine.Level{e.State.BookingRate, e.State.CompetitorPrice}
		if _, ok := rowIndex[key]; !ok {
			rowIndex[key] = len(rows)
			rows = append(rows, fmt.Sprintf("rate %s / rival %s", key[0], key[1]))
		}
	}

	data := make([]opts.HeatMapData, 0, len(entries))
	var lo, hi float64
	for i, e := range entries {
		if i == 0 || e.Price < lo {
			lo = e.Price
		}
		if i == 0 || e.Price > hi {
			hi = e.Price
		}
		key := [2]engine.Level{e.State.BookingRate, e.State.CompetitorPrice}
		data = append(data, opts.HeatMapData{
			Value: [3]interface{}{seatIndex[e.State.SeatsLeft], rowIndex[key], e.Price},
		})
	}

	title := "Greedy price"
	if len(entries) > 0 {
		s := entries[0].State
		title = fmt.Sprintf("Greedy price, %d steps left, %s", s.TimeRemaining, s.Segment)
	}
	hm.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: seats}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: rows}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Min: float32(lo),
			Max: float32(hi),
			InRange: &opts.VisualMapInRange{
				Color: []string{"#50a3ba", "#eac736", "#d94e5d"},
			},
		}),
	)
	hm.SetXAxis(seats).AddSeries("price", data)
	return hm
}

func smoothingWindow(n int) int {
	return max(1, min(maxSmoothingWindow, n/10))
}

// movingAverage returns the trailing mean over at most window values for each
// position.
func movingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(min(i+1, window))
	}
	return out
}
