package main

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

const metricPrefix = "udpshare_"

// metricLine is one flattened sample from the daemon's exposition.
type metricLine struct {
	Name   string
	Labels string
	Value  float64
}

func statsCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show daemon metrics",
		Long:  "Fetch the daemon's Prometheus metrics from its health server and print the udpshare series.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("fetch metrics: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("fetch metrics: unexpected status %d", resp.StatusCode)
			}

			lines, err := parseMetrics(resp.Body)
			if err != nil {
				return err
			}

			fmt.Println(headingStyle.Render("udpshare metrics"))
			for _, l := range lines {
				name := strings.TrimPrefix(l.Name, metricPrefix)
				if l.Labels != "" {
					name += "{" + l.Labels + "}"
				}
				printField(name, formatValue(l))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "http://127.0.0.1:8080/metrics", "Metrics endpoint of the daemon")

	return cmd
}

// parseMetrics extracts counters and gauges with the udpshare prefix from a
// text exposition, sorted by name and labels.
func parseMetrics(r io.Reader) ([]metricLine, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}

	var lines []metricLine
	for name, mf := range families {
		if !strings.HasPrefix(name, metricPrefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			var v float64
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				v = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				v = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				v = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			lines = append(lines, metricLine{Name: name, Labels: labelString(m), Value: v})
		}
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Name != lines[j].Name {
			return lines[i].Name < lines[j].Name
		}
		return lines[i].Labels < lines[j].Labels
	})
	return lines, nil
}

func labelString(m *dto.Metric) string {
	parts := make([]string, 0, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		parts = append(parts, lp.GetName()+"="+lp.GetValue())
	}
	return strings.Join(parts, ",")
}

func formatValue(l metricLine) string {
	if strings.HasPrefix(l.Name, metricPrefix+"bytes_") {
		return humanize.IBytes(uint64(l.Value))
	}
	return humanize.Commaf(l.Value)
}
