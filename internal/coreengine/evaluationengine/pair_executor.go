package evaluationengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"voice-agent-eval-platform/backend/internal/coreengine/judgescorer"
	"voice-agent-eval-platform/backend/internal/coreengine/metricscalculator"
	"voice-agent-eval-platform/backend/internal/coreengine/provideradapters"
	"voice-agent-eval-platform/backend/internal/datastore"
	"voice-agent-eval-platform/backend/internal/retrypolicy"
	"voice-agent-eval-platform/backend/internal/transcription"
)

// PairExecutor runs one (scenario, provider) unit of work end to end and
// persists exactly one result row for it, success or failure. Collaborator
// errors never escape: anything that goes wrong inside a pair becomes an
// error row with null metrics and an "ERROR: " reasoning.
type PairExecutor struct {
	scenarios     ScenarioStore
	providers     ProviderStore
	results       ResultStore
	audio         AudioStore
	registry      *provideradapters.Registry
	judge         JudgeScorer
	transcriber   transcription.Transcriber
	callTimeout   time.Duration
	providerRetry retrypolicy.Policy
	normOpts      metricscalculator.NormalizeOptions
}

// pairOutcome reports how one pair settled.
type pairOutcome struct {
	// failed is true when the persisted row is an error row.
	failed bool
	// duplicate is true when another attempt already persisted this pair.
	duplicate bool
}

// Execute performs all steps for one pair and always leaves exactly one row
// behind. The returned error is only non-nil when the row itself could not
// be inserted, which is the one failure resume cannot paper over.
func (p *PairExecutor) Execute(ctx context.Context, run *datastore.EvalRun, scenarioID, providerID int) (pairOutcome, error) {
	result := &datastore.EvalResult{
		RunID:            run.ID,
		ScenarioID:       scenarioID,
		ProviderConfigID: providerID,
	}

	scores, failErr := p.evaluate(ctx, run, scenarioID, providerID, result)
	if failErr != nil {
		log.Printf("evaluationengine: pair run=%d scenario=%d provider=%d failed: %v",
			run.ID, scenarioID, providerID, failErr)
		// Error row: metric fields stay null, the failure is recorded in the
		// reasoning so the dashboard can surface it.
		result.WER = sql.NullFloat64{}
		result.AccuracyScore = sql.NullFloat64{}
		result.HelpfulnessScore = sql.NullFloat64{}
		result.NaturalnessScore = sql.NullFloat64{}
		result.EfficiencyScore = sql.NullFloat64{}
		result.TaskCompleted = sql.NullBool{Bool: false, Valid: true}
		result.JudgeReasoning = sql.NullString{String: "ERROR: " + failErr.Error(), Valid: true}
	} else if scores != nil {
		result.AccuracyScore = sql.NullFloat64{Float64: scores.Accuracy, Valid: true}
		result.HelpfulnessScore = sql.NullFloat64{Float64: scores.Helpfulness, Valid: true}
		result.NaturalnessScore = sql.NullFloat64{Float64: scores.Naturalness, Valid: true}
		result.EfficiencyScore = sql.NullFloat64{Float64: scores.Efficiency, Valid: true}
		result.TaskCompleted = sql.NullBool{Bool: scores.TaskCompleted, Valid: true}
		result.JudgeReasoning = sql.NullString{String: scores.Reasoning, Valid: true}
	}

	if _, err := p.results.CreateEvalResult(result); err != nil {
		if errors.Is(err, datastore.ErrDuplicateResult) {
			// Another orchestrator attempt got here first; the pair is done.
			log.Printf("evaluationengine: pair run=%d scenario=%d provider=%d already recorded, skipping",
				run.ID, scenarioID, providerID)
			return pairOutcome{duplicate: true}, nil
		}
		return pairOutcome{failed: failErr != nil}, fmt.Errorf("failed to persist result for run %d scenario %d provider %d: %w",
			run.ID, scenarioID, providerID, err)
	}
	return pairOutcome{failed: failErr != nil}, nil
}

// evaluate performs the fallible pipeline steps, filling result fields as
// they become available. A non-nil return means the pair is an error row;
// fields populated before the failure (audio path, transcript, latency) are
// kept for diagnosis.
func (p *PairExecutor) evaluate(ctx context.Context, run *datastore.EvalRun, scenarioID, providerID int, result *datastore.EvalResult) (*judgescorer.Scores, error) {
	scenario, err := p.scenarios.GetScenario(scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario %d: %w", scenarioID, err)
	}
	providerCfg, err := p.providers.GetProviderConfig(providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider config %d: %w", providerID, err)
	}
	adapter, err := p.registry.Get(providerCfg)
	if err != nil {
		return nil, err
	}

	req := provideradapters.AgentRequest{PromptText: scenario.PromptText}
	if scenario.PromptAudioPath.Valid && scenario.PromptAudioPath.String != "" && p.audio != nil {
		promptAudio, audioErr := p.audio.GetAudioBytes(ctx, scenario.PromptAudioPath.String)
		if audioErr != nil {
			// The text prompt is always available; a missing spoken prompt
			// degrades the input, it does not fail the pair.
			log.Printf("evaluationengine: could not fetch prompt audio '%s' for scenario %d: %v",
				scenario.PromptAudioPath.String, scenarioID, audioErr)
		} else {
			req.PromptAudio = promptAudio
		}
	}

	resp, err := p.callProvider(ctx, adapter, req, providerCfg)
	if err != nil {
		return nil, err
	}
	result.TTFBMs = sql.NullInt64{Int64: resp.Latency.TTFBMs, Valid: true}
	result.TotalLatencyMs = sql.NullInt64{Int64: resp.Latency.TotalMs, Valid: true}

	if p.audio != nil && len(resp.Audio) > 0 {
		audioPath, saveErr := p.audio.SaveResponseAudio(ctx, run.ID, scenarioID, providerID, resp.Audio, resp.MimeType)
		if saveErr != nil {
			// The transcript still carries the evaluation; losing the audio
			// artifact is logged, not fatal.
			log.Printf("evaluationengine: failed to persist response audio for run=%d scenario=%d provider=%d: %v",
				run.ID, scenarioID, providerID, saveErr)
		} else {
			result.AudioPath = sql.NullString{String: audioPath, Valid: true}
		}
	}

	transcript := resp.Transcript
	if transcript == "" {
		if p.transcriber == nil {
			return nil, fmt.Errorf("provider returned no transcript and no transcriber is configured")
		}
		transcript, err = p.transcriber.Transcribe(ctx, resp.Audio, resp.MimeType)
		if err != nil {
			return nil, fmt.Errorf("transcription failed: %w", err)
		}
	}
	result.Transcript = sql.NullString{String: transcript, Valid: true}

	wer := metricscalculator.CalculateWER(scenario.ExpectedOutcome, transcript, p.normOpts)
	result.WER = sql.NullFloat64{Float64: wer.WER, Valid: true}

	scores, err := p.judge.Score(ctx, judgescorer.ScoreInput{
		ScenarioType:       scenario.ScenarioType,
		ScenarioName:       scenario.Name,
		UserPrompt:         scenario.PromptText,
		ExpectedOutcome:    scenario.ExpectedOutcome,
		ResponseTranscript: transcript,
	})
	if err != nil {
		return nil, fmt.Errorf("judge scoring failed: %w", err)
	}
	return scores, nil
}

// callProvider bounds the provider call with the configured timeout and
// retries once on retryable provider errors.
func (p *PairExecutor) callProvider(ctx context.Context, adapter provideradapters.VoiceAgentAdapter, req provideradapters.AgentRequest, cfg *datastore.ProviderConfig) (*provideradapters.AgentResponse, error) {
	var resp *provideradapters.AgentResponse
	err := p.providerRetry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
		defer cancel()

		var callErr error
		resp, callErr = adapter.GenerateResponse(callCtx, req, cfg)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("provider call failed: %w", err)
	}
	return resp, nil
}
