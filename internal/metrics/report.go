package metrics

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ReportOptions tunes Report.
type ReportOptions struct {
	Title string
	// Endpoints adds a per-endpoint table.
	Endpoints bool
}

// Report writes the final summary of a run.
func Report(w io.Writer, s Snapshot, opts ReportOptions) {
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	if opts.Title != "" {
		summary.SetTitle(opts.Title)
	}
	summary.AppendRows([]table.Row{
		{"Duration", formatDuration(s.Duration)},
		{"Requests", s.Requests},
		{"Failures", s.Failures},
		{"Transport errors", s.TransportErrors},
		{"Success rate", fmt.Sprintf("%.2f%%", s.SuccessRate)},
		{"QPS", fmt.Sprintf("%.2f", s.QPS)},
		{"Received", formatBytes(s.Bytes)},
	})
	summary.AppendSeparator()
	summary.AppendRows([]table.Row{
		{"Latency min / avg / max", fmt.Sprintf("%s / %s / %s",
			formatLatency(s.Latency.Min), formatLatency(s.Latency.Avg), formatLatency(s.Latency.Max))},
		{"Latency p50 / p95 / p99", fmt.Sprintf("%s / %s / %s",
			formatLatency(s.Latency.P50), formatLatency(s.Latency.P95), formatLatency(s.Latency.P99))},
	})
	summary.AppendSeparator()
	summary.AppendRows([]table.Row{
		{"Sessions started", s.SessionsStarted},
		{"Sessions aborted", s.SessionsAborted},
		{"Sessions stopped", s.SessionsStopped},
		{"Reviews created", s.ReviewsCreated},
	})
	if len(s.Tasks) > 0 {
		summary.AppendSeparator()
		for _, name := range sortedKeys(s.Tasks) {
			summary.AppendRow(table.Row{"Task " + name, s.Tasks[name]})
		}
	}
	if len(s.StatusCodes) > 0 {
		summary.AppendSeparator()
		codes := make([]int, 0, len(s.StatusCodes))
		for code := range s.StatusCodes {
			codes = append(codes, code)
		}
		slices.Sort(codes)
		for _, code := range codes {
			summary.AppendRow(table.Row{"HTTP " + strconv.Itoa(code), s.StatusCodes[code]})
		}
	}
	summary.SetStyle(table.StyleRounded)
	summary.Render()

	if !opts.Endpoints || len(s.Endpoints) == 0 {
		return
	}

	eps := table.NewWriter()
	eps.SetOutputMirror(w)
	eps.AppendHeader(table.Row{"Endpoint", "Requests", "Failures", "Success", "p50", "p95", "p99", "Max"})
	for _, name := range sortedKeys(s.Endpoints) {
		ep := s.Endpoints[name]
		eps.AppendRow(table.Row{
			name,
			ep.Requests,
			ep.Failures,
			fmt.Sprintf("%.1f%%", ep.SuccessRate),
			formatLatency(ep.Latency.P50),
			formatLatency(ep.Latency.P95),
			formatLatency(ep.Latency.P99),
			formatLatency(ep.Latency.Max),
		})
	}
	eps.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	eps.SetStyle(table.StyleRounded)
	eps.Render()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func formatLatency(d time.Duration) string {
	switch {
	case d == 0:
		return "0ms"
	case d < time.Millisecond:
		return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Truncate(time.Second).String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
