package configmanagement

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voice-agent-eval-platform/backend/internal/datastore"
)

// ProviderHandlers exposes CRUD endpoints for voice agent provider configs.
type ProviderHandlers struct {
	store *datastore.Store
}

// NewProviderHandlers creates the provider HTTP handlers.
func NewProviderHandlers(store *datastore.Store) *ProviderHandlers {
	return &ProviderHandlers{store: store}
}

func validateProviderConfig(pc *datastore.ProviderConfig) (int, string) {
	if pc.Name == "" || pc.ProviderType == "" {
		return http.StatusBadRequest, "Name and provider type are required fields"
	}
	if pc.OtherConfigs != nil && len(pc.OtherConfigs) > 0 {
		if !json.Valid(pc.OtherConfigs) {
			return http.StatusBadRequest, "other_configs is not valid JSON"
		}
	} else {
		pc.OtherConfigs = json.RawMessage("null")
	}
	return 0, ""
}

// Create handles the creation of a new provider configuration.
func (h *ProviderHandlers) Create(c *gin.Context) {
	var pc datastore.ProviderConfig
	if err := c.ShouldBindJSON(&pc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	if code, msg := validateProviderConfig(&pc); code != 0 {
		c.JSON(code, gin.H{"error": msg})
		return
	}

	id, err := h.store.CreateProviderConfig(&pc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create provider config: " + err.Error()})
		return
	}

	pc.ID = id // Set the ID in the response object
	c.JSON(http.StatusCreated, pc)
}

// Get retrieves a specific provider configuration by its ID.
func (h *ProviderHandlers) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid provider config ID format"})
		return
	}

	pc, err := h.store.GetProviderConfig(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve provider config: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, pc)
}

// List lists all provider configurations.
func (h *ProviderHandlers) List(c *gin.Context) {
	configs, err := h.store.ListProviderConfigs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list provider configs: " + err.Error()})
		return
	}

	if configs == nil {
		configs = []*datastore.ProviderConfig{} // Return empty array instead of null
	}

	c.JSON(http.StatusOK, configs)
}

// Update updates an existing provider configuration.
func (h *ProviderHandlers) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid provider config ID format"})
		return
	}

	var pc datastore.ProviderConfig
	if err := c.ShouldBindJSON(&pc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	pc.ID = id // Ensure the ID from the path is used

	if code, msg := validateProviderConfig(&pc); code != 0 {
		c.JSON(code, gin.H{"error": msg})
		return
	}

	if err := h.store.UpdateProviderConfig(&pc); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update provider config: " + err.Error()})
		}
		return
	}

	updated, err := h.store.GetProviderConfig(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve updated provider config: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete deletes a provider configuration by its ID.
func (h *ProviderHandlers) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid provider config ID format"})
		return
	}

	if err := h.store.DeleteProviderConfig(id); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete provider config: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Provider config deleted successfully"})
}
