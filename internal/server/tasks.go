package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xenon007/tasktracker/internal/models"
)

type createTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	ProjectID   int64      `json:"project_id" binding:"required,gt=0"`
	StatusID    int64      `json:"status_id" binding:"required,gt=0"`
	Deadline    *time.Time `json:"deadline"`
	Assignees   []int64    `json:"assignees"`
}

type updateTaskRequest struct {
	StatusID  int64      `json:"status_id" binding:"required,gt=0"`
	Deadline  *time.Time `json:"deadline"`
	Assignees []int64    `json:"assignees"`
}

// handleCreateTask inserts a new task into a project column.
func (s *Server) handleCreateTask(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	id, err := s.store.CreateTask(c.Request.Context(), caller, models.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		StatusID:    req.StatusID,
		Deadline:    req.Deadline,
		Assignees:   req.Assignees,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task_id": id})
}

// handleGetTask returns a task with its status and assignees.
func (s *Server) handleGetTask(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := s.store.GetTask(c.Request.Context(), caller, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleListMyTasks returns the tasks assigned to the caller.
func (s *Server) handleListMyTasks(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}

	tasks, err := s.store.ListTasksForUser(c.Request.Context(), caller)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleListProjectTasks fetches the tasks of a project in board order.
func (s *Server) handleListProjectTasks(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	tasks, err := s.store.ListTasksForProject(c.Request.Context(), caller, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleUpdateTask moves a task, changes its deadline and replaces its assignees.
func (s *Server) handleUpdateTask(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	err := s.store.UpdateTask(c.Request.Context(), caller, id, models.TaskUpdate{
		StatusID:  req.StatusID,
		Deadline:  req.Deadline,
		Assignees: req.Assignees,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "updated"})
}
