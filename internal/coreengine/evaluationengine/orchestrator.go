package evaluationengine

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"voice-agent-eval-platform/backend/internal/coreengine/metricscalculator"
	"voice-agent-eval-platform/backend/internal/datastore"
	"voice-agent-eval-platform/backend/internal/retrypolicy"
)

// Orchestrator executes evaluation runs. Scenarios are processed strictly in
// the run's declared order; within a scenario every not-yet-completed
// provider runs concurrently and all of them settle before the next scenario
// starts, so concurrent external calls are bounded by the provider count.
type Orchestrator struct {
	runs     RunStore
	results  ResultStore
	executor *PairExecutor
}

// NewOrchestrator wires the engine from its injected collaborators.
func NewOrchestrator(cfg Config) *Orchestrator {
	callTimeout := cfg.ProviderCallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultProviderCallTimeout
	}
	maxAttempts := cfg.ProviderMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultProviderMaxAttempts
	}
	normOpts := metricscalculator.DefaultNormalizeOptions()
	if cfg.NormalizeOptions != nil {
		normOpts = *cfg.NormalizeOptions
	}

	executor := &PairExecutor{
		scenarios:   cfg.Scenarios,
		providers:   cfg.Providers,
		results:     cfg.Results,
		audio:       cfg.Audio,
		registry:    cfg.Registry,
		judge:       cfg.Judge,
		transcriber: cfg.Transcriber,
		callTimeout: callTimeout,
		providerRetry: retrypolicy.Policy{
			MaxAttempts: maxAttempts,
			Classify:    classifyProviderError,
		},
		normOpts: normOpts,
	}
	return &Orchestrator{runs: cfg.Runs, results: cfg.Results, executor: executor}
}

// pairKey identifies one (scenario, provider) unit within a run.
type pairKey struct {
	scenarioID int
	providerID int
}

// progressTracker serializes progress updates from concurrently settling
// providers. Progress is always recomputed from the completed count, never
// incremented blindly, so the persisted value cannot drift.
type progressTracker struct {
	mu        sync.Mutex
	runs      RunStore
	runID     int
	total     int
	completed int
	failed    int
}

func (t *progressTracker) pairSettled(failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed++
	if failed {
		t.failed++
	}
	progress := float64(t.completed) / float64(t.total) * 100
	if err := t.runs.UpdateEvalRunProgress(t.runID, progress, t.failed); err != nil {
		log.Printf("evaluationengine: failed to persist progress for run %d: %v", t.runID, err)
	}
}

// Execute runs (or resumes) one evaluation run to completion. Only a failure
// to load the run itself aborts; every pair-level failure is captured as an
// error row and the run still finalizes as completed.
func (o *Orchestrator) Execute(ctx context.Context, runID int) error {
	run, err := o.runs.GetEvalRun(runID)
	if err != nil {
		return fmt.Errorf("cannot execute run %d: %w", runID, err)
	}

	scenarioIDs, err := datastore.UnmarshalJSONToIntSlice(run.ScenarioIDs)
	if err != nil {
		return fmt.Errorf("run %d has malformed scenario IDs: %w", runID, err)
	}
	providerIDs, err := datastore.UnmarshalJSONToIntSlice(run.ProviderIDs)
	if err != nil {
		return fmt.Errorf("run %d has malformed provider IDs: %w", runID, err)
	}

	totalPairs := len(scenarioIDs) * len(providerIDs)
	log.Printf("evaluationengine: executing run %d (%d scenarios x %d providers = %d pairs)",
		runID, len(scenarioIDs), len(providerIDs), totalPairs)

	// Resume frontier: a present row means the pair is done, whatever its
	// outcome, and is never redone.
	done, alreadyFailed, err := o.loadFrontier(runID)
	if err != nil {
		return err
	}

	if err := o.runs.UpdateEvalRunStatus(runID, datastore.RunStatusRunning); err != nil {
		return fmt.Errorf("failed to mark run %d running: %w", runID, err)
	}
	if err := o.runs.UpdateEvalRunTimestamps(runID, sql.NullTime{Time: time.Now(), Valid: true}, sql.NullTime{}); err != nil {
		log.Printf("evaluationengine: failed to stamp started_at for run %d: %v", runID, err)
	}

	// Completed pairs from a previous attempt count toward progress but are
	// not re-executed.
	tracker := &progressTracker{
		runs:      o.runs,
		runID:     runID,
		total:     totalPairs,
		completed: len(done),
		failed:    alreadyFailed,
	}

	for _, scenarioID := range scenarioIDs {
		var g errgroup.Group
		launched := 0
		for _, providerID := range providerIDs {
			if done[pairKey{scenarioID, providerID}] {
				continue
			}
			launched++
			scenarioID, providerID := scenarioID, providerID
			g.Go(func() error {
				outcome, execErr := o.executor.Execute(ctx, run, scenarioID, providerID)
				if execErr != nil {
					// The result row could not be inserted; the pair is left
					// for the next resume. Count it as failed for visibility
					// but do not abort the sibling pairs.
					log.Printf("evaluationengine: %v", execErr)
					tracker.pairSettled(true)
					return nil
				}
				tracker.pairSettled(outcome.failed)
				return nil
			})
		}
		// Join every spawned provider before moving to the next scenario.
		_ = g.Wait()
		if launched > 0 {
			log.Printf("evaluationengine: run %d scenario %d settled (%d providers)", runID, scenarioID, launched)
		}
	}

	if err := o.finalize(runID); err != nil {
		return err
	}
	log.Printf("evaluationengine: run %d completed", runID)
	return nil
}

// loadFrontier builds the set of already-completed pairs and counts how many
// of them were error rows.
func (o *Orchestrator) loadFrontier(runID int) (map[pairKey]bool, int, error) {
	existing, err := o.results.ListEvalResultsForRun(runID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load existing results for run %d: %w", runID, err)
	}
	done := make(map[pairKey]bool, len(existing))
	failed := 0
	for _, res := range existing {
		done[pairKey{res.ScenarioID, res.ProviderConfigID}] = true
		if res.JudgeReasoning.Valid && strings.HasPrefix(res.JudgeReasoning.String, "ERROR:") {
			failed++
		}
	}
	return done, failed, nil
}

// finalize marks the run completed with full progress and a completion
// timestamp. This happens even when some pairs failed; failures are visible
// through the failed-pair count and the error rows, not through run status.
func (o *Orchestrator) finalize(runID int) error {
	if err := o.runs.UpdateEvalRunStatus(runID, datastore.RunStatusCompleted); err != nil {
		return fmt.Errorf("failed to mark run %d completed: %w", runID, err)
	}
	failed := 0
	if _, f, err := o.loadFrontier(runID); err == nil {
		failed = f
	}
	if err := o.runs.UpdateEvalRunProgress(runID, 100, failed); err != nil {
		log.Printf("evaluationengine: failed to set final progress for run %d: %v", runID, err)
	}
	if err := o.runs.UpdateEvalRunTimestamps(runID, sql.NullTime{}, sql.NullTime{Time: time.Now(), Valid: true}); err != nil {
		log.Printf("evaluationengine: failed to stamp completed_at for run %d: %v", runID, err)
	}
	return nil
}
