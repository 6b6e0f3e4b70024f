package evaluationengine

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voice-agent-eval-platform/backend/internal/coreengine/judgescorer"
	"voice-agent-eval-platform/backend/internal/coreengine/provideradapters"
	"voice-agent-eval-platform/backend/internal/datastore"
)

// memStore is an in-memory stand-in for the datastore, implementing the
// engine's store interfaces with the same semantics: forward-only run status
// and duplicate rejection on (run, scenario, provider).
type memStore struct {
	mu        sync.Mutex
	runs      map[int]*datastore.EvalRun
	scenarios map[int]*datastore.Scenario
	providers map[int]*datastore.ProviderConfig
	results   []*datastore.EvalResult
	nextID    int
}

func newMemStore() *memStore {
	return &memStore{
		runs:      map[int]*datastore.EvalRun{},
		scenarios: map[int]*datastore.Scenario{},
		providers: map[int]*datastore.ProviderConfig{},
		nextID:    1,
	}
}

var memStatusRank = map[string]int{
	datastore.RunStatusPending:   0,
	datastore.RunStatusRunning:   1,
	datastore.RunStatusCompleted: 2,
	datastore.RunStatusFailed:    2,
	datastore.RunStatusCancelled: 2,
}

func (m *memStore) GetEvalRun(id int) (*datastore.EvalRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("eval run %d: %w", id, datastore.ErrNotFound)
	}
	copied := *run
	return &copied, nil
}

func (m *memStore) UpdateEvalRunStatus(id int, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return fmt.Errorf("eval run %d: %w", id, datastore.ErrNotFound)
	}
	if memStatusRank[run.Status] < memStatusRank[status] {
		run.Status = status
	}
	return nil
}

func (m *memStore) UpdateEvalRunProgress(id int, progress float64, failedPairs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return fmt.Errorf("eval run %d: %w", id, datastore.ErrNotFound)
	}
	run.Progress = progress
	run.FailedPairs = failedPairs
	return nil
}

func (m *memStore) UpdateEvalRunTimestamps(id int, startTime, endTime sql.NullTime) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return fmt.Errorf("eval run %d: %w", id, datastore.ErrNotFound)
	}
	if startTime.Valid && !run.StartedAt.Valid {
		run.StartedAt = startTime
	}
	if endTime.Valid {
		run.CompletedAt = endTime
	}
	return nil
}

func (m *memStore) GetScenario(id int) (*datastore.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("scenario %d: %w", id, datastore.ErrNotFound)
	}
	return sc, nil
}

func (m *memStore) GetProviderConfig(id int) (*datastore.ProviderConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pc, ok := m.providers[id]
	if !ok {
		return nil, fmt.Errorf("provider config %d: %w", id, datastore.ErrNotFound)
	}
	return pc, nil
}

func (m *memStore) CreateEvalResult(result *datastore.EvalResult) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.results {
		if existing.RunID == result.RunID &&
			existing.ScenarioID == result.ScenarioID &&
			existing.ProviderConfigID == result.ProviderConfigID {
			return 0, datastore.ErrDuplicateResult
		}
	}
	result.ID = m.nextID
	m.nextID++
	copied := *result
	m.results = append(m.results, &copied)
	return result.ID, nil
}

func (m *memStore) ListEvalResultsForRun(runID int) ([]*datastore.EvalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*datastore.EvalResult
	for _, r := range m.results {
		if r.RunID == runID {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

// scriptedAdapter answers from scenario prompts and records the scenario ID
// of every call in arrival order.
type scriptedAdapter struct {
	mu          sync.Mutex
	callOrder   []int
	failOn      map[int]bool // scenario IDs that always fail
	transcripts map[int]string
}

func (a *scriptedAdapter) GenerateResponse(ctx context.Context, req provideradapters.AgentRequest, cfg *datastore.ProviderConfig) (*provideradapters.AgentResponse, error) {
	scenarioID := scenarioIDFromPrompt(req.PromptText)
	a.mu.Lock()
	a.callOrder = append(a.callOrder, scenarioID)
	fail := a.failOn[scenarioID]
	transcript, hasTranscript := a.transcripts[scenarioID]
	a.mu.Unlock()

	if fail {
		return nil, provideradapters.NewProviderError(cfg.ProviderType, provideradapters.CodeInvalidRequest, 400, "scripted failure")
	}
	if !hasTranscript {
		transcript = "the answer is correct"
	}
	return &provideradapters.AgentResponse{
		Transcript: transcript,
		Latency:    provideradapters.Latency{TTFBMs: 12, TotalMs: 48},
	}, nil
}

func scenarioIDFromPrompt(prompt string) int {
	id, _ := strconv.Atoi(strings.TrimPrefix(prompt, "prompt "))
	return id
}

// staticJudge returns fixed passing scores.
type staticJudge struct {
	mu    sync.Mutex
	calls int
}

func (j *staticJudge) Score(ctx context.Context, input judgescorer.ScoreInput) (*judgescorer.Scores, error) {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	return &judgescorer.Scores{
		Accuracy:      78,
		Helpfulness:   89,
		Naturalness:   67,
		Efficiency:    100,
		TaskCompleted: true,
		Reasoning:     "Response matches the expected outcome.",
	}, nil
}

type fixture struct {
	store   *memStore
	adapter *scriptedAdapter
	judge   *staticJudge
	orch    *Orchestrator
	runID   int
}

func newFixture(t *testing.T, scenarioIDs, providerIDs []int) *fixture {
	t.Helper()
	store := newMemStore()
	for _, id := range scenarioIDs {
		store.scenarios[id] = &datastore.Scenario{
			ID:              id,
			Name:            fmt.Sprintf("scenario %d", id),
			PromptText:      fmt.Sprintf("prompt %d", id),
			ExpectedOutcome: "the answer is correct",
			ScenarioType:    datastore.ScenarioTypeTaskCompletion,
		}
	}
	for _, id := range providerIDs {
		store.providers[id] = &datastore.ProviderConfig{
			ID:           id,
			Name:         fmt.Sprintf("provider %d", id),
			ProviderType: "scripted",
		}
	}

	scenarioJSON, err := datastore.MarshalIntSliceToJSON(scenarioIDs)
	require.NoError(t, err)
	providerJSON, err := datastore.MarshalIntSliceToJSON(providerIDs)
	require.NoError(t, err)
	store.runs[1] = &datastore.EvalRun{
		ID:          1,
		Name:        "benchmark",
		ScenarioIDs: scenarioJSON,
		ProviderIDs: providerJSON,
		Status:      datastore.RunStatusPending,
	}

	adapter := &scriptedAdapter{failOn: map[int]bool{}, transcripts: map[int]string{}}
	registry := provideradapters.NewRegistry()
	registry.Register("scripted", adapter)
	judge := &staticJudge{}

	orch := NewOrchestrator(Config{
		Runs:      store,
		Scenarios: store,
		Providers: store,
		Results:   store,
		Registry:  registry,
		Judge:     judge,
	})
	return &fixture{store: store, adapter: adapter, judge: judge, orch: orch, runID: 1}
}

func TestOrchestrator_ExecutesAllPairs(t *testing.T) {
	f := newFixture(t, []int{10, 20}, []int{1, 2, 3})

	err := f.orch.Execute(context.Background(), f.runID)
	require.NoError(t, err)

	results, _ := f.store.ListEvalResultsForRun(f.runID)
	require.Len(t, results, 6)

	run, _ := f.store.GetEvalRun(f.runID)
	require.Equal(t, datastore.RunStatusCompleted, run.Status)
	require.Equal(t, 100.0, run.Progress)
	require.Equal(t, 0, run.FailedPairs)
	require.True(t, run.StartedAt.Valid)
	require.True(t, run.CompletedAt.Valid)

	// One provider call per pair, no more.
	require.Len(t, f.adapter.callOrder, 6)
	require.Equal(t, 6, f.judge.calls)

	for _, res := range results {
		require.True(t, res.WER.Valid)
		require.Equal(t, 0.0, res.WER.Float64)
		require.Equal(t, 78.0, res.AccuracyScore.Float64)
		require.True(t, res.TaskCompleted.Bool)
		require.Equal(t, int64(48), res.TotalLatencyMs.Int64)
	}
}

func TestOrchestrator_ScenariosRunSequentially(t *testing.T) {
	f := newFixture(t, []int{10, 20, 30}, []int{1, 2, 3, 4})

	err := f.orch.Execute(context.Background(), f.runID)
	require.NoError(t, err)

	// All calls for one scenario must land before any call of the next.
	order := f.adapter.callOrder
	require.Len(t, order, 12)
	var boundaries []int
	for i := 1; i < len(order); i++ {
		if order[i] != order[i-1] {
			boundaries = append(boundaries, i)
		}
	}
	require.Equal(t, []int{4, 8}, boundaries)
	require.Equal(t, 10, order[0])
	require.Equal(t, 20, order[4])
	require.Equal(t, 30, order[8])
}

func TestOrchestrator_PartialFailureStillCompletes(t *testing.T) {
	f := newFixture(t, []int{10, 20}, []int{1})
	f.adapter.failOn[20] = true

	err := f.orch.Execute(context.Background(), f.runID)
	require.NoError(t, err)

	results, _ := f.store.ListEvalResultsForRun(f.runID)
	require.Len(t, results, 2)

	var errorRows int
	for _, res := range results {
		if res.ScenarioID == 20 {
			errorRows++
			require.True(t, strings.HasPrefix(res.JudgeReasoning.String, "ERROR: "))
			require.False(t, res.WER.Valid)
			require.False(t, res.AccuracyScore.Valid)
			require.False(t, res.TaskCompleted.Bool)
		} else {
			require.True(t, res.WER.Valid)
		}
	}
	require.Equal(t, 1, errorRows)

	run, _ := f.store.GetEvalRun(f.runID)
	require.Equal(t, datastore.RunStatusCompleted, run.Status)
	require.Equal(t, 100.0, run.Progress)
	require.Equal(t, 1, run.FailedPairs)
}

func TestOrchestrator_ResumeSkipsCompletedPairs(t *testing.T) {
	f := newFixture(t, []int{10, 20}, []int{1, 2})

	// Pre-seed scenario 10 as already done for both providers, as if a prior
	// attempt crashed between scenarios.
	for _, providerID := range []int{1, 2} {
		_, err := f.store.CreateEvalResult(&datastore.EvalResult{
			RunID:            f.runID,
			ScenarioID:       10,
			ProviderConfigID: providerID,
			WER:              sql.NullFloat64{Float64: 0, Valid: true},
		})
		require.NoError(t, err)
	}

	err := f.orch.Execute(context.Background(), f.runID)
	require.NoError(t, err)

	// Only scenario 20's pairs were executed.
	require.Len(t, f.adapter.callOrder, 2)
	for _, id := range f.adapter.callOrder {
		require.Equal(t, 20, id)
	}

	results, _ := f.store.ListEvalResultsForRun(f.runID)
	require.Len(t, results, 4)

	run, _ := f.store.GetEvalRun(f.runID)
	require.Equal(t, datastore.RunStatusCompleted, run.Status)
	require.Equal(t, 100.0, run.Progress)
}

func TestOrchestrator_SecondExecuteIsIdempotent(t *testing.T) {
	f := newFixture(t, []int{10, 20}, []int{1, 2})

	require.NoError(t, f.orch.Execute(context.Background(), f.runID))
	firstCalls := len(f.adapter.callOrder)

	require.NoError(t, f.orch.Execute(context.Background(), f.runID))

	// The second pass finds every pair done and calls no provider.
	require.Len(t, f.adapter.callOrder, firstCalls)
	results, _ := f.store.ListEvalResultsForRun(f.runID)
	require.Len(t, results, 4)

	run, _ := f.store.GetEvalRun(f.runID)
	require.Equal(t, datastore.RunStatusCompleted, run.Status)
	require.Equal(t, 100.0, run.Progress)
}

func TestOrchestrator_MissingRunAborts(t *testing.T) {
	f := newFixture(t, []int{10}, []int{1})

	err := f.orch.Execute(context.Background(), 999)
	require.Error(t, err)
	require.ErrorIs(t, err, datastore.ErrNotFound)
}

func TestOrchestrator_ResumedFailedPairsStayCounted(t *testing.T) {
	f := newFixture(t, []int{10, 20}, []int{1})

	// A prior attempt recorded scenario 10 as an error row.
	_, err := f.store.CreateEvalResult(&datastore.EvalResult{
		RunID:            f.runID,
		ScenarioID:       10,
		ProviderConfigID: 1,
		JudgeReasoning:   sql.NullString{String: "ERROR: provider call failed", Valid: true},
		TaskCompleted:    sql.NullBool{Bool: false, Valid: true},
	})
	require.NoError(t, err)

	require.NoError(t, f.orch.Execute(context.Background(), f.runID))

	run, _ := f.store.GetEvalRun(f.runID)
	require.Equal(t, 1, run.FailedPairs)
	require.Equal(t, 100.0, run.Progress)
	require.Equal(t, datastore.RunStatusCompleted, run.Status)
}

func TestPairExecutor_DuplicateInsertTreatedAsDone(t *testing.T) {
	f := newFixture(t, []int{10}, []int{1})
	run, err := f.store.GetEvalRun(f.runID)
	require.NoError(t, err)

	// First insert wins.
	_, err = f.store.CreateEvalResult(&datastore.EvalResult{
		RunID: f.runID, ScenarioID: 10, ProviderConfigID: 1,
	})
	require.NoError(t, err)

	outcome, err := f.orch.executor.Execute(context.Background(), run, 10, 1)
	require.NoError(t, err)
	require.True(t, outcome.duplicate)
	require.False(t, outcome.failed)

	results, _ := f.store.ListEvalResultsForRun(f.runID)
	require.Len(t, results, 1)
}

func TestOrchestrator_ZeroPairsCompletesImmediately(t *testing.T) {
	f := newFixture(t, nil, nil)

	require.NoError(t, f.orch.Execute(context.Background(), f.runID))

	run, _ := f.store.GetEvalRun(f.runID)
	require.Equal(t, datastore.RunStatusCompleted, run.Status)
	require.Equal(t, 100.0, run.Progress)
	require.True(t, run.CompletedAt.Valid)
	require.Empty(t, f.adapter.callOrder)
}

func TestOrchestrator_ProviderCallTimeoutApplies(t *testing.T) {
	f := newFixture(t, []int{10}, []int{1})
	// Rebuild with a tiny timeout and an adapter that honors ctx.
	slow := &blockingAdapter{}
	registry := provideradapters.NewRegistry()
	registry.Register("scripted", slow)
	orch := NewOrchestrator(Config{
		Runs:                f.store,
		Scenarios:           f.store,
		Providers:           f.store,
		Results:             f.store,
		Registry:            registry,
		Judge:               f.judge,
		ProviderCallTimeout: 10 * time.Millisecond,
		ProviderMaxAttempts: 1,
	})

	require.NoError(t, orch.Execute(context.Background(), f.runID))

	results, _ := f.store.ListEvalResultsForRun(f.runID)
	require.Len(t, results, 1)
	require.True(t, strings.HasPrefix(results[0].JudgeReasoning.String, "ERROR: "))

	run, _ := f.store.GetEvalRun(f.runID)
	require.Equal(t, 1, run.FailedPairs)
}

// blockingAdapter waits for context cancellation and returns its error.
type blockingAdapter struct{}

func (b *blockingAdapter) GenerateResponse(ctx context.Context, req provideradapters.AgentRequest, cfg *datastore.ProviderConfig) (*provideradapters.AgentResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
