// Package evaluationengine runs benchmark evaluations: for each run it walks
// the scenarios in order, fans the providers out per scenario, scores every
// response objectively (WER) and subjectively (LLM judge), and persists one
// immutable result row per (scenario, provider) pair. A present row marks the
// pair done, which is what makes interrupted runs resumable.
package evaluationengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voice-agent-eval-platform/backend/internal/coreengine/judgescorer"
	"voice-agent-eval-platform/backend/internal/coreengine/metricscalculator"
	"voice-agent-eval-platform/backend/internal/coreengine/provideradapters"
	"voice-agent-eval-platform/backend/internal/datastore"
	"voice-agent-eval-platform/backend/internal/retrypolicy"
	"voice-agent-eval-platform/backend/internal/transcription"
)

// RunStore is the run persistence the orchestrator mutates.
type RunStore interface {
	GetEvalRun(id int) (*datastore.EvalRun, error)
	UpdateEvalRunStatus(id int, status string) error
	UpdateEvalRunProgress(id int, progress float64, failedPairs int) error
	UpdateEvalRunTimestamps(id int, startTime, endTime sql.NullTime) error
}

// ScenarioStore loads scenario records.
type ScenarioStore interface {
	GetScenario(id int) (*datastore.Scenario, error)
}

// ProviderStore loads provider configs.
type ProviderStore interface {
	GetProviderConfig(id int) (*datastore.ProviderConfig, error)
}

// ResultStore is the append-only result log; CreateEvalResult must return
// datastore.ErrDuplicateResult for a second insert of the same pair.
type ResultStore interface {
	CreateEvalResult(result *datastore.EvalResult) (int, error)
	ListEvalResultsForRun(runID int) ([]*datastore.EvalResult, error)
}

// AudioStore persists response audio and serves prompt audio. Optional; a
// nil store disables audio persistence.
type AudioStore interface {
	SaveResponseAudio(ctx context.Context, runID, scenarioID, providerID int, audio []byte, mimeType string) (string, error)
	GetAudioBytes(ctx context.Context, objectName string) ([]byte, error)
}

// JudgeScorer grades one transcript against a scenario.
type JudgeScorer interface {
	Score(ctx context.Context, input judgescorer.ScoreInput) (*judgescorer.Scores, error)
}

// Config wires the engine's collaborators. All dependencies are injected;
// the engine holds no global state.
type Config struct {
	Runs      RunStore
	Scenarios ScenarioStore
	Providers ProviderStore
	Results   ResultStore
	Audio     AudioStore // optional
	Registry  *provideradapters.Registry
	Judge     JudgeScorer
	// Transcriber is used when a provider returns audio without a transcript.
	Transcriber transcription.Transcriber
	// ProviderCallTimeout bounds each provider call. Default 30s.
	ProviderCallTimeout time.Duration
	// ProviderMaxAttempts is the total attempts per provider call, counting
	// the first. Default 2 (one extra attempt on retryable errors).
	ProviderMaxAttempts int
	// NormalizeOptions used for WER scoring. Nil selects the default
	// normalization.
	NormalizeOptions *metricscalculator.NormalizeOptions
}

const (
	defaultProviderCallTimeout = 30000 * time.Millisecond
	defaultProviderMaxAttempts = 2
)

// classifyProviderError routes retryable provider errors to a backoff class.
func classifyProviderError(err error) retrypolicy.Class {
	var pe *provideradapters.ProviderError
	if !errors.As(err, &pe) || !pe.Retryable {
		return retrypolicy.ClassNone
	}
	if pe.Code == provideradapters.CodeRateLimited {
		return retrypolicy.ClassRateLimited
	}
	return retrypolicy.ClassTransient
}
