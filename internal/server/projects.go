package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type projectRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
}

type linkUserRequest struct {
	UserID int64 `json:"user_id" binding:"required,gt=0"`
}

// handleListProjects returns the projects the caller belongs to.
func (s *Server) handleListProjects(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}

	projects, err := s.store.ListProjectsForUser(c.Request.Context(), caller)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleCreateProject creates a project owned by the caller.
func (s *Server) handleCreateProject(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	project, err := s.store.CreateProject(c.Request.Context(), caller, req.Title, req.Description)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleGetProject returns a single project.
func (s *Server) handleGetProject(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	project, err := s.store.GetProject(c.Request.Context(), caller, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleListMembers lists the users linked to a project.
func (s *Server) handleListMembers(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	users, err := s.store.ListMembers(c.Request.Context(), caller, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"users": users})
}

// handleLinkUser invites a user into a project.
func (s *Server) handleLinkUser(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req linkUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	if err := s.store.LinkUser(c.Request.Context(), caller, req.UserID, id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"status": "linked"})
}
