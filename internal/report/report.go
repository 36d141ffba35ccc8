// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders directory plans, run reports, and run history as
// tables, JSON, or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/webpify/internal/pipeline"
	"github.com/pdiddy/webpify/pkg/types"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// WritePlan renders the status of a directory.
func WritePlan(w io.Writer, plan pipeline.Plan, format types.ReportFormat) error {
	switch format {
	case types.ReportNone:
		return nil
	case types.ReportJSON:
		return writeJSON(w, plan)
	case types.ReportYAML:
		return writeYAML(w, plan)
	}

	rows := [][]string{
		{"Directory", plan.Dir},
		{"Output", plan.OutputDir},
		{"State", describeState(plan.State)},
		{"Source images", strconv.Itoa(plan.Images)},
	}
	if plan.Action != types.ActionNone {
		rows = append(rows, []string{"Next step", describeAction(plan.Action)})
	}
	rows = appendList(rows, "Missing", plan.Missing)
	rows = appendList(rows, "Stray outputs", plan.Strays)
	rows = appendList(rows, "Ambiguous", plan.Ambiguous)

	_, err := fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows, nil))
	return err
}

// WriteRun renders the outcome of a run.
func WriteRun(w io.Writer, rep types.RunReport, format types.ReportFormat) error {
	switch format {
	case types.ReportNone:
		return nil
	case types.ReportJSON:
		return writeJSON(w, rep)
	case types.ReportYAML:
		return writeYAML(w, rep)
	}

	rows := [][]string{
		{"Run", rep.ID},
		{"Directory", rep.Dir},
		{"State", describeState(rep.State)},
	}
	if rep.Action != types.ActionNone {
		rows = append(rows, []string{"Action", describeAction(rep.Action)})
	}
	if rep.DryRun {
		rows = append(rows, []string{"Dry run", "yes"})
	}
	rows = append(rows,
		[]string{"Converted", strconv.Itoa(rep.Converted)},
		[]string{"Skipped", strconv.Itoa(rep.Skipped)},
		[]string{"Failed", strconv.Itoa(rep.Failed)},
		[]string{"Moved", strconv.Itoa(rep.Moved)},
	)
	if rep.Conflicts > 0 {
		rows = append(rows, []string{"Conflicts", strconv.Itoa(rep.Conflicts)})
	}
	if rep.MoveFailed > 0 {
		rows = append(rows, []string{"Move failures", strconv.Itoa(rep.MoveFailed)})
	}
	if rep.BytesIn > 0 {
		rows = append(rows, []string{"Size", fmt.Sprintf("%s -> %s (%s)",
			humanize.Bytes(uint64(rep.BytesIn)), humanize.Bytes(uint64(rep.BytesOut)), savedPercent(rep))})
	}
	rows = append(rows, []string{"Elapsed", fmt.Sprintf("%.4fs", rep.Elapsed.Seconds())})

	_, err := fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows, nil))
	return err
}

// WriteHistory renders a list of past runs, newest first.
func WriteHistory(w io.Writer, runs []types.RunReport, format types.ReportFormat, now time.Time) error {
	switch format {
	case types.ReportNone:
		return nil
	case types.ReportJSON:
		return writeJSON(w, runs)
	case types.ReportYAML:
		return writeYAML(w, runs)
	}

	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	headers := []string{"When", "Directory", "State", "Converted", "Failed", "Moved", "Saved", "Elapsed"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		saved := "-"
		if r.BytesIn > 0 {
			saved = savedPercent(r)
		}
		rows = append(rows, []string{
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			r.Dir,
			string(r.State),
			strconv.Itoa(r.Converted),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Moved),
			saved,
			r.Elapsed.Round(time.Millisecond).String(),
		})
	}
	_, err := fmt.Fprintln(w, renderTable(headers, rows, aligns))
	return err
}

func savedPercent(r types.RunReport) string {
	if r.BytesIn <= 0 {
		return "0%"
	}
	pct := float64(r.SpaceSaved()) / float64(r.BytesIn) * 100
	return fmt.Sprintf("%.1f%% saved", pct)
}

func describeState(s types.State) string {
	switch s {
	case types.StateNoImages:
		return "no images"
	case types.StateAlreadyConverted:
		return "already converted"
	case types.StatePartial:
		return "partially converted"
	case types.StateUnconverted:
		return "not converted"
	}
	return string(s)
}

func describeAction(a types.Action) string {
	switch a {
	case types.ActionMoveOnly:
		return "move converted images into place"
	case types.ActionConvertThenMove:
		return "convert missing images, then move"
	}
	return string(a)
}

func appendList(rows [][]string, label string, items []string) [][]string {
	if len(items) == 0 {
		return rows
	}
	return append(rows, []string{fmt.Sprintf("%s (%d)", label, len(items)), strings.Join(items, ", ")})
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
