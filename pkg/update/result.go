package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/cardmap/pkg/cards"
	"github.com/agentstation/cardmap/pkg/queue"
	"github.com/agentstation/cardmap/pkg/save"
	"github.com/agentstation/cardmap/pkg/scheduler"
)

// Result is the complete result of a run.
type Result struct {
	// Operation metadata
	StartedAt      utc.Time `json:"started_at"      yaml:"started_at"`
	FinishedAt     utc.Time `json:"finished_at"     yaml:"finished_at"`
	DryRun         bool     `json:"dry_run"         yaml:"dry_run"`
	SkipAnnotation bool     `json:"skip_annotation" yaml:"skip_annotation"`

	// Merge statistics
	Merge          cards.Stats `json:"merge"           yaml:"merge"`
	SkippedSources int         `json:"skipped_sources" yaml:"skipped_sources"`

	// Queue maintenance
	NewNames     int      `json:"new_names"     yaml:"new_names"`     // Names added to the unverified set
	Reconciled   []string `json:"reconciled"    yaml:"reconciled"`    // Names verified from hand-written readings
	Normalized   int      `json:"normalized"    yaml:"normalized"`    // Dictionary entries rewritten by normalization
	FastVerified []string `json:"fast_verified" yaml:"fast_verified"` // Names verified by the local acceptance check

	// Annotation
	Plan     scheduler.Plan `json:"plan"     yaml:"plan"`
	Tasks    []TaskResult   `json:"tasks"    yaml:"tasks"`
	Readings int            `json:"readings" yaml:"readings"` // Dictionary entries added or changed by the reader
	Stopped  string         `json:"stopped,omitempty" yaml:"stopped,omitempty"`

	// Final state
	Queue      queue.Counts   `json:"queue"      yaml:"queue"`
	Dictionary int            `json:"dictionary" yaml:"dictionary"`
	Exports    []ExportResult `json:"exports"    yaml:"exports"`
}

// TaskResult is the outcome of one annotation task.
type TaskResult struct {
	Index    int    `json:"index"           yaml:"index"`
	Names    int    `json:"names"           yaml:"names"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
	Attempts int    `json:"attempts"        yaml:"attempts"`
	Readings int    `json:"readings"        yaml:"readings"`
	Failed   bool   `json:"failed"          yaml:"failed"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ExportResult describes one written export.
type ExportResult struct {
	Format  save.Format `json:"-"       yaml:"-"`
	Name    string      `json:"format"  yaml:"format"`
	Path    string      `json:"path"    yaml:"path"`
	Records int         `json:"records" yaml:"records"` // Canonical records for JSON, all records for tables
}

// FailedTasks returns how many tasks exhausted their attempts.
func (r *Result) FailedTasks() int {
	n := 0
	for _, t := range r.Tasks {
		if t.Failed {
			n++
		}
	}
	return n
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	var parts []string
	if r.DryRun {
		parts = append(parts, "(Dry run)")
	}
	parts = append(parts, fmt.Sprintf("%d records, %d canonical, %d duplicates",
		r.Merge.Records, r.Merge.Canonical, r.Merge.Duplicates))
	if r.NewNames > 0 {
		parts = append(parts, fmt.Sprintf("%d new names", r.NewNames))
	}
	if n := len(r.Reconciled) + len(r.FastVerified); n > 0 {
		parts = append(parts, fmt.Sprintf("%d verified locally", n))
	}
	switch {
	case r.DryRun:
		parts = append(parts, fmt.Sprintf("%d names planned in %d tasks", len(r.Plan.Selected), len(r.Plan.Tasks)))
	case len(r.Tasks) > 0:
		parts = append(parts, fmt.Sprintf("%d tasks (%d failed), %d readings", len(r.Tasks), r.FailedTasks(), r.Readings))
	}
	parts = append(parts, fmt.Sprintf("%d verified, %d unverified", r.Queue.Verified, r.Queue.Unverified))
	return strings.Join(parts, ", ")
}

// Duration returns the run duration.
func (r *Result) Duration() string {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return ""
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}
