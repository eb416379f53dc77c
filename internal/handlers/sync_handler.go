package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "grana/internal/errors"
	"grana/internal/models"
	"grana/internal/services"
)

// SyncHandler exposes the remote sync endpoint: one state bundle per user,
// replaced entirely on every push.
type SyncHandler struct {
	syncService services.SyncServicer
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(syncService services.SyncServicer) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// GetState returns the caller's stored state bundle. Users who never pushed
// receive an empty bundle.
func (h *SyncHandler) GetState(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	bundle, err := h.syncService.GetState(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, bundle)
}

// SaveState replaces the caller's stored state bundle with the request body.
func (h *SyncHandler) SaveState(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var bundle models.Bundle
	if err := c.ShouldBindJSON(&bundle); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidBundle, err))
		return
	}

	if err := h.syncService.SaveState(userID, &bundle); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
