package runmanagement

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voice-agent-eval-platform/backend/internal/datastore"
)

// CreateRunRequest defines the expected payload for creating an evaluation run.
type CreateRunRequest struct {
	Name        string `json:"name"` // Optional, can be empty
	ScenarioIDs []int  `json:"scenario_ids" binding:"required,min=1"`
	ProviderIDs []int  `json:"provider_ids" binding:"required,min=1"`
}

// Handlers exposes the run endpoints over a RunService and datastore.
type Handlers struct {
	service *RunService
	store   *datastore.Store
}

// NewHandlers creates the run HTTP handlers.
func NewHandlers(service *RunService, store *datastore.Store) *Handlers {
	return &Handlers{service: service, store: store}
}

// CreateRun handles requests to create a new evaluation run in the pending state.
func (h *Handlers) CreateRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	run, err := h.service.CreateRun(req.Name, req.ScenarioIDs, req.ProviderIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create run: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, run)
}

// ExecuteRun handles requests to start (or resume) executing a run.
func (h *Handlers) ExecuteRun(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID format"})
		return
	}

	run, err := h.service.Execute(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Run with ID %d not found", id)})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to execute run: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Run execution started.",
		"run":     run,
	})
}

// GetRun handles requests to retrieve a specific run by its ID.
func (h *Handlers) GetRun(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID format"})
		return
	}

	run, err := h.store.GetEvalRun(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve run: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListRuns handles requests to list evaluation runs.
func (h *Handlers) ListRuns(c *gin.Context) {
	runs, err := h.store.ListEvalRuns()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs: " + err.Error()})
		return
	}

	if runs == nil {
		runs = []*datastore.EvalRun{} // Return empty array instead of null
	}

	c.JSON(http.StatusOK, runs)
}

// GetRunResults handles requests to retrieve all evaluation results for a run.
func (h *Handlers) GetRunResults(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID format"})
		return
	}

	// Check the run itself first to give a clear 404 for unknown IDs.
	if _, err := h.store.GetEvalRun(id); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Run with ID %d not found", id)})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify run existence: " + err.Error()})
		}
		return
	}

	results, err := h.store.ListEvalResultsForRun(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve results for run: " + err.Error()})
		return
	}

	if results == nil {
		results = []*datastore.EvalResult{} // Return empty array
	}

	c.JSON(http.StatusOK, results)
}
