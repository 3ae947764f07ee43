package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
)

// stats prints the gateway metrics gathered by this process.
func (app *application) stats(c *cli.Context) error {
	families, err := app.metrics.Gather()
	if err != nil {
		return cli.Exit(fmt.Sprintf("gather metrics: %v", err), 1)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	rows := 0
	for _, family := range families {
		if family.GetName() != "hackmatch_api_requests_total" {
			continue
		}
		fmt.Fprintln(w, "METHOD\tROUTE\tSTATUS\tCALLS")
		for _, m := range family.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, pair := range m.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\n", labels["method"], labels["route"], labels["status"], m.GetCounter().GetValue())
			rows++
		}
	}
	for _, family := range families {
		if family.GetName() != "hackmatch_api_request_duration_seconds" {
			continue
		}
		fmt.Fprintln(w, "\nMETHOD\tROUTE\tMEAN LATENCY")
		for _, m := range family.GetMetric() {
			h := m.GetHistogram()
			if h.GetSampleCount() == 0 {
				continue
			}
			var method, route string
			for _, pair := range m.GetLabel() {
				switch pair.GetName() {
				case "method":
					method = pair.GetValue()
				case "route":
					route = pair.GetValue()
				}
			}
			mean := h.GetSampleSum() / float64(h.GetSampleCount())
			fmt.Fprintf(w, "%s\t%s\t%.1fms\n", method, route, mean*1000)
		}
	}
	if rows == 0 {
		fmt.Fprintln(c.App.Writer, "No API calls yet")
		return nil
	}
	return w.Flush()
}
