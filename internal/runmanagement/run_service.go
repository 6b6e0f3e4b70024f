package runmanagement

import (
	"context"
	"fmt"
	"log"
	"sync"

	"voice-agent-eval-platform/backend/internal/coreengine/evaluationengine"
	"voice-agent-eval-platform/backend/internal/datastore"
)

// RunService manages the lifecycle of evaluation runs: creating them in the
// pending state and launching (or resuming) their execution in the background.
type RunService struct {
	store        *datastore.Store
	orchestrator *evaluationengine.Orchestrator

	mu     sync.Mutex
	active map[int]bool
}

// NewRunService creates a RunService around the given datastore and engine.
func NewRunService(store *datastore.Store, orchestrator *evaluationengine.Orchestrator) *RunService {
	return &RunService{
		store:        store,
		orchestrator: orchestrator,
		active:       map[int]bool{},
	}
}

// CreateRun stores a new run in the pending state. Execution is a separate,
// explicit step so a run can be inspected (or its inputs fixed) before launch.
func (s *RunService) CreateRun(name string, scenarioIDs, providerIDs []int) (*datastore.EvalRun, error) {
	scenarioJSON, err := datastore.MarshalIntSliceToJSON(scenarioIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scenario_ids: %w", err)
	}
	providerJSON, err := datastore.MarshalIntSliceToJSON(providerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal provider_ids: %w", err)
	}

	run := &datastore.EvalRun{
		Name:        name,
		ScenarioIDs: scenarioJSON,
		ProviderIDs: providerJSON,
		Status:      datastore.RunStatusPending,
	}
	id, err := s.store.CreateEvalRun(run)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	created, err := s.store.GetEvalRun(id)
	if err != nil {
		log.Printf("runmanagement: created run %d but failed to reload it: %v", id, err)
		run.ID = id
		return run, nil
	}
	return created, nil
}

// Execute launches the run in a background goroutine. Calling it again for a
// run that is already executing in this process is a no-op; calling it for a
// run that previously stopped partway resumes from the completed pairs.
func (s *RunService) Execute(runID int) (*datastore.EvalRun, error) {
	run, err := s.store.GetEvalRun(runID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.active[runID] {
		s.mu.Unlock()
		return run, nil
	}
	s.active[runID] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.active, runID)
			s.mu.Unlock()
		}()
		if err := s.orchestrator.Execute(context.Background(), runID); err != nil {
			log.Printf("runmanagement: run %d execution error: %v", runID, err)
		}
	}()

	return run, nil
}
