package search

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// SweepResult is one bin-count configuration measurement.
type SweepResult struct {
	Bins         float32
	BuildSeconds float64
	SAH          float32
	RRSCost      float32
}

// ResultsLog appends comma-separated sweep records to a file. The format
// is key,value pairs per line: bins,<b>.<0|5>,time,<s>,SAH,<c>,RRS,<c>.
type ResultsLog struct {
	f *os.File
}

// OpenResultsLog opens the results file for appending, creating it if
// needed.
func OpenResultsLog(path string) (*ResultsLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &ResultsLog{f: f}, nil
}

// Append writes one configuration record.
func (l *ResultsLog) Append(res SweepResult) error {
	_, err := fmt.Fprintf(l.f, "bins,%.1f,time,%f,SAH,%f,RRS,%f\n",
		res.Bins, res.BuildSeconds, res.SAH, res.RRSCost)
	return err
}

func (l *ResultsLog) Close() error {
	return l.f.Close()
}

// WriteSweepChart renders the sweep as an HTML line chart: measured RRS
// cost and SAH cost against bin count.
func WriteSweepChart(path, sceneName string, results []SweepResult) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Bin count sweep", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Bin count sweep",
			Subtitle: fmt.Sprintf("scene=%s configurations=%d", sceneName, len(results)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
		charts.WithXAxisOpts(opts.XAxis{Name: "bins"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "cost"}),
	)

	x := make([]string, len(results))
	rrsData := make([]opts.LineData, len(results))
	sahData := make([]opts.LineData, len(results))
	for i, r := range results {
		x[i] = fmt.Sprintf("%g", r.Bins)
		rrsData[i] = opts.LineData{Value: r.RRSCost}
		sahData[i] = opts.LineData{Value: r.SAH}
	}
	line.SetXAxis(x)
	line.AddSeries("RRS cost", rrsData)
	line.AddSeries("SAH cost", sahData)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return line.Render(f)
}
