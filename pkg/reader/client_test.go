package reader_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/logging"
	"github.com/agentstation/cardmap/pkg/reader"
)

// fakeCandidate replays scripted responses and records calls.
type fakeCandidate struct {
	name      string
	responses []response
	calls     int
}

type response struct {
	text string
	err  error
}

func (f *fakeCandidate) Name() string { return f.name }

func (f *fakeCandidate) Generate(_ context.Context, _ string) (string, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	r := f.responses[i]
	return r.text, r.err
}

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func testConfig() reader.Config {
	return reader.Config{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Second,
		MaxDelay:    8 * time.Second,
		TaskDelay:   4 * time.Second,
	}
}

func newClient(t *testing.T, sleeper *recordingSleeper, candidates ...reader.Candidate) *reader.Client {
	t.Helper()
	logger := logging.NewTestLogger(t)
	c, err := reader.New(testConfig(), candidates,
		reader.WithSleeper(sleeper.sleep),
		reader.WithLogger(logger.Logger),
	)
	require.NoError(t, err)
	return c
}

var (
	rateLimited = &pkgerrors.APIError{Provider: "google", StatusCode: 429, Status: "RESOURCE_EXHAUSTED"}
	notFound    = &pkgerrors.APIError{Provider: "google", StatusCode: 404, Status: "NOT_FOUND"}
	serverError = &pkgerrors.APIError{Provider: "google", StatusCode: 500}
)

func TestReadSuccessFirstCandidate(t *testing.T) {
	first := &fakeCandidate{name: "m1", responses: []response{{text: `{"龍": "リュウ"}`}}}
	second := &fakeCandidate{name: "m2", responses: []response{{text: `{}`}}}
	sleeper := &recordingSleeper{}

	result, err := newClient(t, sleeper, first, second).Read(context.Background(), []string{"龍"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"龍": "リュウ"}, result.Readings)
	assert.Equal(t, "m1", result.Model)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 0, second.calls)
	assert.Empty(t, sleeper.waits)
}

func TestReadNotFoundFallsThrough(t *testing.T) {
	missing := &fakeCandidate{name: "gone", responses: []response{{err: notFound}}}
	working := &fakeCandidate{name: "ok", responses: []response{{text: `{"龍": "ドラゴン"}`}}}
	sleeper := &recordingSleeper{}
	client := newClient(t, sleeper, missing, working)

	result, err := client.Read(context.Background(), []string{"龍"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Model)
	assert.Empty(t, sleeper.waits, "not-found does not trigger backoff")

	// The missing model is skipped for the rest of the run.
	_, err = client.Read(context.Background(), []string{"龍"})
	require.NoError(t, err)
	assert.Equal(t, 1, missing.calls)
	assert.Equal(t, 2, working.calls)
}

func TestReadRateLimitAbortsCandidateLoop(t *testing.T) {
	limited := &fakeCandidate{name: "m1", responses: []response{
		{err: rateLimited},
		{text: `{"剣": "ツルギ"}`},
	}}
	untouched := &fakeCandidate{name: "m2", responses: []response{{text: `{"剣": "ケン"}`}}}
	sleeper := &recordingSleeper{}

	result, err := newClient(t, sleeper, limited, untouched).Read(context.Background(), []string{"剣"})
	require.NoError(t, err)
	assert.Equal(t, "ツルギ", result.Readings["剣"])
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 0, untouched.calls, "rate limit must not spill onto other candidates")
	assert.Equal(t, []time.Duration{5 * time.Second}, sleeper.waits)
}

func TestReadOtherErrorsTryNextCandidate(t *testing.T) {
	broken := &fakeCandidate{name: "m1", responses: []response{{err: serverError}}}
	prose := &fakeCandidate{name: "m2", responses: []response{{text: "sorry, no JSON today"}}}
	working := &fakeCandidate{name: "m3", responses: []response{{text: `{"拳": "コブシ"}`}}}
	sleeper := &recordingSleeper{}

	result, err := newClient(t, sleeper, broken, prose, working).Read(context.Background(), []string{"拳"})
	require.NoError(t, err)
	assert.Equal(t, "m3", result.Model)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, prose.calls)
}

func TestReadExhaustsWithBackoff(t *testing.T) {
	always := &fakeCandidate{name: "m1", responses: []response{{err: rateLimited}}}
	sleeper := &recordingSleeper{}

	_, err := newClient(t, sleeper, always).Read(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, reader.ErrTaskFailed)
	assert.ErrorIs(t, err, pkgerrors.ErrRateLimited)

	var taskErr *reader.TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, 3, taskErr.Attempts)
	assert.Equal(t, 2, taskErr.Names)

	assert.Equal(t, 3, always.calls)
	// Base delay doubles and is capped; no wait after the final attempt.
	assert.Equal(t, []time.Duration{5 * time.Second, 8 * time.Second}, sleeper.waits)
}

func TestReadNoCandidates(t *testing.T) {
	sleeper := &recordingSleeper{}
	_, err := newClient(t, sleeper).Read(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, reader.ErrNoCandidates)

	gone := &fakeCandidate{name: "gone", responses: []response{{err: errors.New("models/gone is not found for API version v1beta")}}}
	client := newClient(t, sleeper, gone)
	// Once the only model is known to be missing, retrying is pointless.
	_, err = client.Read(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, reader.ErrNoCandidates)
	assert.NotErrorIs(t, err, reader.ErrTaskFailed)
	assert.Equal(t, 1, gone.calls)
}

func TestReadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cand := reader.CandidateFunc{ID: "m1", Fn: func(context.Context, string) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	sleeper := &recordingSleeper{}

	_, err := newClient(t, sleeper, cand).Read(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, reader.ErrTaskFailed)
}

func TestReadEmptyTask(t *testing.T) {
	sleeper := &recordingSleeper{}
	result, err := newClient(t, sleeper).Read(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Readings)
}

func TestPause(t *testing.T) {
	sleeper := &recordingSleeper{}
	client := newClient(t, sleeper)
	require.NoError(t, client.Pause(context.Background()))
	assert.Equal(t, []time.Duration{4 * time.Second}, sleeper.waits)
}

func TestConfigValidate(t *testing.T) {
	_, err := reader.New(reader.Config{MaxAttempts: 0}, nil)
	assert.True(t, pkgerrors.IsValidationError(err))

	_, err = reader.New(reader.Config{MaxAttempts: 1, BaseDelay: -time.Second}, nil)
	assert.True(t, pkgerrors.IsValidationError(err))

	assert.NoError(t, reader.DefaultConfig().Validate())
}

func TestClassifyByMessage(t *testing.T) {
	// Untyped errors are classified by their message. Undecodable replies
	// are plain failures whatever text they quote.
	tests := []struct {
		name       string
		first      response
		nextCalls  int
		firstCalls int
	}{
		// Rate limited: no fallback, the retry reuses the first candidate.
		{"quota message", response{err: fmt.Errorf("Error 429, Message: quota exceeded")}, 0, 3},
		// Not found: the first candidate is dropped for the second task.
		{"unsupported message", response{err: fmt.Errorf("model is not supported for generateContent")}, 1, 1},
		{"other message", response{err: fmt.Errorf("connection reset by peer")}, 1, 2},
		{"reply quoting 429", response{text: `{"ルフィ": 429,}`}, 1, 2},
		{"reply quoting not found", response{text: `{"ルフィ": "not found" "quota"}`}, 1, 2},
		{"reply without object", response{text: "429 quota not found"}, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := &fakeCandidate{name: "m1", responses: []response{tt.first, {text: "{}"}}}
			next := &fakeCandidate{name: "m2", responses: []response{{text: "{}"}, {text: "{}"}}}
			c := newClient(t, &recordingSleeper{}, first, next)
			_, err := c.Read(context.Background(), []string{"a"})
			require.NoError(t, err)
			assert.Equal(t, tt.nextCalls, next.calls)

			_, err = c.Read(context.Background(), []string{"b"})
			require.NoError(t, err)
			assert.Equal(t, tt.firstCalls, first.calls)
		})
	}
}
