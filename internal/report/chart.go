package report

import (
	"bytes"
	"fmt"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"finbrief/internal/source"
)

// chartIndices are the series drawn on the weekly performance chart.
var chartIndices = []string{"^GSPC", "^DJI", "^IXIC"}

// RenderIndexChart draws the major indices over the lookback window,
// rebased to percent change from the first close so they share one axis.
func RenderIndexChart(market source.MarketSnapshot) ([]byte, error) {
	var series []chart.Series
	for _, symbol := range chartIndices {
		points := market.Series[symbol]
		if len(points) < 2 || points[0].Close == 0 {
			continue
		}
		x := make([]time.Time, len(points))
		y := make([]float64, len(points))
		base := points[0].Close
		for i, p := range points {
			x[i] = p.Time
			y[i] = (p.Close - base) / base * 100
		}
		series = append(series, chart.TimeSeries{
			Name:    source.IndexName(symbol),
			XValues: x,
			YValues: y,
		})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no index series available for charting")
	}

	pctFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f%%")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Change since window start",
			ValueFormatter: pctFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render index chart: %w", err)
	}
	return buf.Bytes(), nil
}
