// Package scheduler decides which pending names are sent to the external
// reader in a run, in what order and in what batches.
package scheduler

import (
	"cmp"
	"slices"
	"strings"

	"github.com/agentstation/cardmap/pkg/constants"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/readings"
)

// Score weights. Higher scores are scheduled first.
const (
	ScoreNoEntry     = 20
	ScoreLogographic = 10
	ScoreKeyword     = 5
)

// DefaultKeywords are kanji that usually carry an unusual (ateji) reading
// on cards.
var DefaultKeywords = []string{"脚", "拳", "砲", "流", "式", "斬", "龍", "覇", "銃", "剣", "鞭", "撃"}

// Config bounds a plan.
type Config struct {
	// Quota is the maximum number of names planned per run.
	Quota int
	// BatchSize is the maximum number of names per task.
	BatchSize int
	// Keywords are hard-to-read substrings that raise a name's priority.
	Keywords []string
}

// DefaultConfig returns the run defaults.
func DefaultConfig() Config {
	return Config{
		Quota:     constants.DefaultQuota,
		BatchSize: constants.DefaultBatchSize,
		Keywords:  slices.Clone(DefaultKeywords),
	}
}

// Validate checks that the config can produce a plan.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return errors.NewValidationError("batch_size", c.BatchSize, "must be positive")
	}
	if c.Quota < 0 {
		return errors.NewValidationError("quota", c.Quota, "must not be negative")
	}
	return nil
}

// Task is one batch of names for a single external call.
type Task struct {
	Index int      `json:"index" yaml:"index"`
	Names []string `json:"names" yaml:"names"`
}

// Candidate is a scored name.
type Candidate struct {
	Name  string `json:"name"  yaml:"name"`
	Score int    `json:"score" yaml:"score"`
}

// Plan is the outcome of scheduling.
type Plan struct {
	Tasks []Task `json:"tasks" yaml:"tasks"`
	// Selected lists the planned names in priority order.
	Selected []Candidate `json:"selected" yaml:"selected"`
	// Deferred counts pending names left for a future run.
	Deferred int `json:"deferred" yaml:"deferred"`
}

// Names returns every planned name in task order.
func (p Plan) Names() []string {
	out := make([]string, 0, len(p.Selected))
	for _, c := range p.Selected {
		out = append(out, c.Name)
	}
	return out
}

// Lookup is the read side of a reading dictionary.
type Lookup interface {
	Get(name string) (string, bool)
}

// Scheduler scores and batches pending names.
type Scheduler struct {
	cfg Config
}

// New returns a scheduler for cfg.
func New(cfg Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{cfg: cfg}, nil
}

// Score returns the priority of name given its dictionary state.
func (s *Scheduler) Score(name string, dict Lookup) int {
	score := 0
	reading, ok := dict.Get(name)
	if !ok {
		score += ScoreNoEntry
	} else if readings.HasLogographic(reading) {
		score += ScoreLogographic
	}
	for _, kw := range s.cfg.Keywords {
		if kw != "" && strings.Contains(name, kw) {
			score += ScoreKeyword
			break
		}
	}
	return score
}

// Plan orders pending by descending score, breaking ties by name, keeps
// the first Quota names and splits them into tasks of at most BatchSize.
// Duplicate and empty names are ignored.
func (s *Scheduler) Plan(pending []string, dict Lookup) Plan {
	seen := make(map[string]struct{}, len(pending))
	candidates := make([]Candidate, 0, len(pending))
	for _, name := range pending {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		candidates = append(candidates, Candidate{Name: name, Score: s.Score(name, dict)})
	}

	slices.SortFunc(candidates, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	selected := candidates
	if len(selected) > s.cfg.Quota {
		selected = selected[:s.cfg.Quota]
	}

	plan := Plan{
		Selected: selected,
		Deferred: len(candidates) - len(selected),
	}
	for i, chunk := range chunk(selected, s.cfg.BatchSize) {
		names := make([]string, len(chunk))
		for j, c := range chunk {
			names[j] = c.Name
		}
		plan.Tasks = append(plan.Tasks, Task{Index: i, Names: names})
	}
	return plan
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		out = append(out, items[start:min(start+size, len(items))])
	}
	return out
}
