package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xenon007/tasktracker/internal/apperr"
)

type statusRequest struct {
	Name string `json:"name" binding:"required"`
}

// handleListStatuses returns the board columns of a project.
func (s *Server) handleListStatuses(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	statuses, err := s.store.ListStatuses(c.Request.Context(), caller, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"statuses": statuses})
}

// handleCreateStatus adds a board column to a project.
func (s *Server) handleCreateStatus(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	status, err := s.store.CreateStatus(c.Request.Context(), caller, id, req.Name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"status": status})
}

// handleDeleteStatus removes a board column.
func (s *Server) handleDeleteStatus(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	deleted, err := s.store.DeleteStatus(c.Request.Context(), caller, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !deleted {
		s.respondError(c, apperr.New(apperr.KindNotFound, "status %d not found", id))
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
