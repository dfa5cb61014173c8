package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"task-tracker/internal/model"
	"task-tracker/internal/service"
)

type taskResponse struct {
	ID               uint    `json:"id"`
	Title            string  `json:"title"`
	Description      *string `json:"description"`
	Deadline         *string `json:"deadline"`
	AssignedUserID   *uint   `json:"assignedUserId"`
	AssignedUserName *string `json:"assignedUserName"`
	Status           string  `json:"status"`
}

func newTaskResponse(task model.TaskWithAssignee) taskResponse {
	return taskResponse{
		ID:               task.ID,
		Title:            task.Title,
		Description:      task.Description,
		Deadline:         model.FormatDate(task.Deadline),
		AssignedUserID:   task.AssignedUserID,
		AssignedUserName: task.AssignedUserName,
		Status:           task.Status,
	}
}

type overdueResponse struct {
	ID           uint    `json:"id"`
	Title        string  `json:"title"`
	AssignedUser *string `json:"assignedUser"`
	Deadline     string  `json:"deadline"`
}

func newOverdueResponse(task model.TaskWithAssignee) overdueResponse {
	resp := overdueResponse{
		ID:           task.ID,
		Title:        task.Title,
		AssignedUser: task.AssignedUserName,
	}
	if d := model.FormatDate(task.Deadline); d != nil {
		resp.Deadline = *d
	}
	return resp
}

// createTaskRequest also accepts the snake_case assignment key sent by older
// clients. Deadline stays raw so that a non-string value degrades to no
// deadline instead of failing the request.
type createTaskRequest struct {
	Title                string          `json:"title"`
	Description          *string         `json:"description"`
	Status               *string         `json:"status"`
	Deadline             json.RawMessage `json:"deadline"`
	AssignedUserID       *int64          `json:"assignedUserId"`
	LegacyAssignedUserID *int64          `json:"assigned_user_id"`
}

func (r createTaskRequest) toInput() service.TaskInput {
	assignee := r.AssignedUserID
	if assignee == nil {
		assignee = r.LegacyAssignedUserID
	}
	return service.TaskInput{
		Title:          r.Title,
		Description:    r.Description,
		Status:         r.Status,
		Deadline:       deadlineText(r.Deadline),
		AssignedUserID: assigneeID(assignee),
	}
}

type updateTaskRequest struct {
	Title                model.Optional[string]          `json:"title"`
	Description          model.Optional[string]          `json:"description"`
	Status               model.Optional[string]          `json:"status"`
	Deadline             model.Optional[json.RawMessage] `json:"deadline"`
	AssignedUserID       model.Optional[int64]           `json:"assignedUserId"`
	LegacyAssignedUserID model.Optional[int64]           `json:"assigned_user_id"`
}

func (r updateTaskRequest) toPatch() service.TaskPatch {
	assignee := r.AssignedUserID
	if !assignee.Set {
		assignee = r.LegacyAssignedUserID
	}
	return service.TaskPatch{
		Title:          r.Title,
		Description:    r.Description,
		Status:         r.Status,
		Deadline:       deadlinePatch(r.Deadline),
		AssignedUserID: assigneePatch(assignee),
	}
}

// deadlineText returns the string form of a raw deadline, or nil when the
// value is not a JSON string.
func deadlineText(raw json.RawMessage) *string {
	var text string
	if len(raw) == 0 || json.Unmarshal(raw, &text) != nil {
		return nil
	}
	return &text
}

// deadlinePatch clears the deadline for any value that is not a string.
func deadlinePatch(raw model.Optional[json.RawMessage]) model.Optional[string] {
	if !raw.Set {
		return model.Optional[string]{}
	}
	if text := deadlineText(raw.Value); raw.Valid && text != nil {
		return model.Some(*text)
	}
	return model.Null[string]()
}

// assigneeID maps ids of zero or below to unassigned.
func assigneeID(id *int64) *uint {
	if id == nil || *id <= 0 {
		return nil
	}
	v := uint(*id)
	return &v
}

func assigneePatch(id model.Optional[int64]) model.Optional[uint] {
	if !id.Set {
		return model.Optional[uint]{}
	}
	if v := assigneeID(id.Ptr()); v != nil {
		return model.Some(*v)
	}
	return model.Null[uint]()
}

func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.tasks.ListTasks(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, newTaskResponse(task))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		s.log.Debugw("failed to bind json", "error", err)
		abort(c, newBadRequestError(errInvalidRequestBody))
		return
	}

	task, err := s.tasks.CreateTask(c.Request.Context(), req.toInput())
	if err != nil {
		s.fail(c, err)
		return
	}

	s.log.Infow("created task", "id", task.ID, "requestID", c.GetString(requestIDKey))
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": task.ID})
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		abort(c, newNotFoundError("task not found"))
		return
	}

	var req updateTaskRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		// An unknown task is reported as such even when the body is broken.
		if _, findErr := s.tasks.GetTask(c.Request.Context(), id); findErr != nil {
			s.fail(c, findErr)
			return
		}
		s.log.Debugw("failed to bind json", "error", err)
		abort(c, newBadRequestError(errInvalidRequestBody))
		return
	}

	if err := s.tasks.UpdateTask(c.Request.Context(), id, req.toPatch()); err != nil {
		s.fail(c, err)
		return
	}

	s.log.Infow("updated task", "id", id, "requestID", c.GetString(requestIDKey))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		abort(c, newNotFoundError("task not found"))
		return
	}

	if err := s.tasks.DeleteTask(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	s.log.Infow("deleted task", "id", id, "requestID", c.GetString(requestIDKey))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleOverdue(c *gin.Context) {
	tasks, err := s.tasks.OverdueTasks(c.Request.Context(), s.now())
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]overdueResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, newOverdueResponse(task))
	}
	c.JSON(http.StatusOK, out)
}

// parseTaskID reads the :id path parameter. Non-numeric and zero ids cannot
// name a task.
func parseTaskID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, strconv.IntSize)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// bindOptionalJSON decodes the body into obj, treating an empty body as {}.
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
