package configmanagement

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voice-agent-eval-platform/backend/internal/datastore"
)

// ScenarioHandlers exposes CRUD endpoints for benchmark scenarios.
type ScenarioHandlers struct {
	store *datastore.Store
}

// NewScenarioHandlers creates the scenario HTTP handlers.
func NewScenarioHandlers(store *datastore.Store) *ScenarioHandlers {
	return &ScenarioHandlers{store: store}
}

// Create handles the creation of a new scenario.
func (h *ScenarioHandlers) Create(c *gin.Context) {
	var sc datastore.Scenario
	if err := c.ShouldBindJSON(&sc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	// Basic validation
	if sc.Name == "" || sc.PromptText == "" || sc.ExpectedOutcome == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, prompt text and expected outcome are required fields"})
		return
	}
	if !datastore.ValidScenarioType(sc.ScenarioType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown scenario_type: " + sc.ScenarioType})
		return
	}

	id, err := h.store.CreateScenario(&sc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create scenario: " + err.Error()})
		return
	}

	sc.ID = id // Set the ID in the response object
	c.JSON(http.StatusCreated, sc)
}

// Get retrieves a specific scenario by its ID.
func (h *ScenarioHandlers) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scenario ID format"})
		return
	}

	sc, err := h.store.GetScenario(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve scenario: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, sc)
}

// List lists all scenarios.
func (h *ScenarioHandlers) List(c *gin.Context) {
	scenarios, err := h.store.ListScenarios()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list scenarios: " + err.Error()})
		return
	}

	if scenarios == nil {
		scenarios = []*datastore.Scenario{} // Return empty array instead of null
	}

	c.JSON(http.StatusOK, scenarios)
}

// Update updates an existing scenario.
func (h *ScenarioHandlers) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scenario ID format"})
		return
	}

	var sc datastore.Scenario
	if err := c.ShouldBindJSON(&sc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	sc.ID = id // Ensure the ID from the path is used

	if sc.Name == "" || sc.PromptText == "" || sc.ExpectedOutcome == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, prompt text and expected outcome are required fields"})
		return
	}
	if !datastore.ValidScenarioType(sc.ScenarioType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown scenario_type: " + sc.ScenarioType})
		return
	}

	if err := h.store.UpdateScenario(&sc); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update scenario: " + err.Error()})
		}
		return
	}

	// Fetch the updated record to return it with fresh timestamps.
	updated, err := h.store.GetScenario(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve updated scenario: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete deletes a scenario by its ID.
func (h *ScenarioHandlers) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scenario ID format"})
		return
	}

	if err := h.store.DeleteScenario(id); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete scenario: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Scenario deleted successfully"})
}
