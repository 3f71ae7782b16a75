package update

import (
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"

	"github.com/agentstation/cardmap/pkg/cards"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/queue"
	"github.com/agentstation/cardmap/pkg/save"
	"github.com/agentstation/cardmap/pkg/scheduler"
)

func TestDefaults(t *testing.T) {
	o := Defaults()
	assert.True(t, o.Reconcile)
	assert.False(t, o.DryRun)
	assert.Equal(t, []save.Format{save.FormatJSON}, o.Formats)
	assert.NoError(t, o.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"negative timeout", WithTimeout(-time.Second)},
		{"negative quota", WithQuota(-1)},
		{"negative batch size", WithBatchSize(-1)},
		{"unknown format", WithFormats(save.Format(42))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Defaults().Apply(tt.opt).Validate()
			assert.True(t, errors.IsValidationError(err), "got %v", err)
		})
	}
}

func TestSummary(t *testing.T) {
	r := &Result{
		Merge:        cards.Stats{Records: 10, Canonical: 8, Duplicates: 2},
		NewNames:     4,
		FastVerified: []string{"ウソップ"},
		Tasks:        []TaskResult{{Index: 1, Readings: 2}, {Index: 2, Failed: true}},
		Readings:     2,
		Queue:        queue.Counts{Verified: 7, Unverified: 1},
	}
	assert.Equal(t, 1, r.FailedTasks())
	assert.Equal(t,
		"10 records, 8 canonical, 2 duplicates, 4 new names, 1 verified locally, 2 tasks (1 failed), 2 readings, 7 verified, 1 unverified",
		r.Summary())

	r = &Result{
		DryRun: true,
		Plan: scheduler.Plan{
			Selected: []scheduler.Candidate{{Name: "a"}, {Name: "b"}},
			Tasks:    []scheduler.Task{{Index: 1, Names: []string{"a", "b"}}},
		},
	}
	assert.Equal(t,
		"(Dry run), 0 records, 0 canonical, 0 duplicates, 2 names planned in 1 tasks, 0 verified, 0 unverified",
		r.Summary())
}

func TestDuration(t *testing.T) {
	r := &Result{}
	assert.Empty(t, r.Duration())

	start := utc.Now()
	r.StartedAt = start
	r.FinishedAt = start.Add(1500 * time.Millisecond)
	assert.Equal(t, "1.5s", r.Duration())
}
