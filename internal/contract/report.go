package contract

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Print writes one row per scenario and a totals footer. Failure messages
// are shown for failed scenarios only.
func (r Report) Print(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Contract verification")
	t.AppendHeader(table.Row{"Scenario", "Result", "Time", "Details"})

	for _, res := range r.Results {
		details := ""
		switch res.Outcome {
		case Failed, Skipped:
			details = strings.Join(res.Messages, "\n")
		}
		if res.TeardownErr != nil {
			details = strings.TrimSpace(details + "\nteardown: " + res.TeardownErr.Error())
		}
		t.AppendRow(table.Row{res.Name, colorize(res.Outcome), res.Duration.Round(time.Millisecond), details})
	}

	t.AppendFooter(table.Row{
		"Total",
		fmt.Sprintf("%d passed, %d failed, %d skipped", r.Passed(), r.Failed(), r.Skipped()),
		r.Duration.Round(time.Millisecond),
		"",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 80},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func colorize(o Outcome) string {
	switch o {
	case Failed:
		return text.FgRed.Sprint(o.String())
	case Skipped:
		return text.FgYellow.Sprint(o.String())
	default:
		return text.FgGreen.Sprint(o.String())
	}
}
