package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agentstation/cardmap"
	"github.com/agentstation/cardmap/internal/records"
	"github.com/agentstation/cardmap/pkg/cards"
	"github.com/agentstation/cardmap/pkg/queue"
	"github.com/agentstation/cardmap/pkg/scheduler"
	"github.com/agentstation/cardmap/pkg/update"
)

// timeLayout is used for timestamps in tables.
const timeLayout = "2006-01-02 15:04:05"

// ImportData renders import results, one row per file.
func ImportData(results []*records.ImportResult) Data {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Source,
			r.File,
			strconv.Itoa(r.Records),
			strconv.Itoa(r.Skipped),
		})
	}
	return Data{
		Headers:         []string{"Source", "File", "Records", "Skipped"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignRight},
	}
}

// ResultData renders a run result as a property table.
func ResultData(r *update.Result) Data {
	rows := [][]string{}
	add := func(k, v string) { rows = append(rows, []string{k, v}) }

	if r.DryRun {
		add("Mode", "dry run")
	}
	rows = append(rows, mergeRows(r.Merge)...)
	if r.SkippedSources > 0 {
		add("Unreadable sources", strconv.Itoa(r.SkippedSources))
	}
	add("New names", strconv.Itoa(r.NewNames))
	add("Reconciled", strconv.Itoa(len(r.Reconciled)))
	add("Verified locally", strconv.Itoa(len(r.FastVerified)))
	add("Normalized", strconv.Itoa(r.Normalized))

	switch {
	case r.SkipAnnotation:
		add("Annotation", "skipped")
	case r.DryRun:
		add("Planned", fmt.Sprintf("%d names in %d tasks", len(r.Plan.Selected), len(r.Plan.Tasks)))
	default:
		add("Tasks", fmt.Sprintf("%d (%d failed)", len(r.Tasks), r.FailedTasks()))
		add("Readings", strconv.Itoa(r.Readings))
	}
	if r.Plan.Deferred > 0 {
		add("Deferred", strconv.Itoa(r.Plan.Deferred))
	}
	if r.Stopped != "" {
		add("Stopped", r.Stopped)
	}

	rows = append(rows, queueRows("", r.Queue)...)
	add("Dictionary", strconv.Itoa(r.Dictionary))
	for _, e := range r.Exports {
		add("Export "+e.Name, fmt.Sprintf("%s (%d)", e.Path, e.Records))
	}
	if d := r.Duration(); d != "" {
		add("Duration", d)
	}

	return Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft},
	}
}

// TaskData renders the per-task outcomes of a run.
func TaskData(tasks []update.TaskResult) Data {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		status := "ok"
		if t.Failed {
			status = "failed"
		}
		rows = append(rows, []string{
			strconv.Itoa(t.Index),
			strconv.Itoa(t.Names),
			t.Model,
			strconv.Itoa(t.Attempts),
			strconv.Itoa(t.Readings),
			status,
		})
	}
	return Data{
		Headers:         []string{"Task", "Names", "Model", "Attempts", "Readings", "Status"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignRight, AlignLeft, AlignRight, AlignRight, AlignLeft},
	}
}

// PlanData renders planned names with their scores and tasks.
func PlanData(plan scheduler.Plan) Data {
	task := make(map[string]int, len(plan.Selected))
	for _, t := range plan.Tasks {
		for _, n := range t.Names {
			task[n] = t.Index
		}
	}
	rows := make([][]string, 0, len(plan.Selected))
	for _, c := range plan.Selected {
		rows = append(rows, []string{
			strconv.Itoa(task[c.Name]),
			c.Name,
			strconv.Itoa(c.Score),
		})
	}
	return Data{
		Headers:         []string{"Task", "Name", "Score"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignRight},
	}
}

// StatusData renders a state snapshot. Stored counts are what the queue
// file holds; pending counts are what the next run would see.
func StatusData(s *cardmap.Status) Data {
	rows := [][]string{{"Sources", strconv.Itoa(s.Sources)}}
	rows = append(rows, mergeRows(s.Merge)...)
	rows = append(rows, queueRows("Stored ", s.Stored)...)
	rows = append(rows, queueRows("Pending ", s.Pending)...)
	rows = append(rows,
		[]string{"Dictionary", strconv.Itoa(s.Dictionary)},
		[]string{"Next run", fmt.Sprintf("%d names in %d tasks", len(s.Plan.Selected), len(s.Plan.Tasks))},
		[]string{"Deferred", strconv.Itoa(s.Plan.Deferred)},
	)
	if !s.UpdatedAt.IsZero() {
		rows = append(rows, []string{"Updated", s.UpdatedAt.Format(timeLayout)})
	}
	return Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft},
	}
}

// ModelsData renders candidate models in the order they are tried.
func ModelsData(models []string) Data {
	rows := make([][]string, 0, len(models))
	for i, m := range models {
		rows = append(rows, []string{strconv.Itoa(i + 1), m})
	}
	return Data{
		Headers:         []string{"#", "Model"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft},
	}
}

// ListData renders a single-column list.
func ListData(header string, items []string) Data {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item})
	}
	return Data{Headers: []string{header}, Rows: rows}
}

func mergeRows(s cards.Stats) [][]string {
	rows := [][]string{
		{"Records", strconv.Itoa(s.Records)},
		{"Canonical", strconv.Itoa(s.Canonical)},
		{"Duplicates", strconv.Itoa(s.Duplicates)},
	}
	if s.Skipped > 0 {
		rows = append(rows, []string{"Skipped records", strconv.Itoa(s.Skipped)})
	}
	return rows
}

func queueRows(prefix string, c queue.Counts) [][]string {
	label := func(s string) string {
		if prefix == "" {
			return s
		}
		return prefix + strings.ToLower(s)
	}
	return [][]string{
		{label("Verified"), strconv.Itoa(c.Verified)},
		{label("Unverified"), strconv.Itoa(c.Unverified)},
	}
}

// Write renders a command result. Table formats render data; json and
// yaml render v as is.
func Write(w io.Writer, format string, data Data, v any) error {
	f, err := ParseFormat(string(DetectFormat(format)))
	if err != nil {
		return err
	}
	switch f {
	case FormatJSON, FormatYAML:
		return NewFormatter(f).Format(w, v)
	}
	return NewFormatter(f).Format(w, data)
}
