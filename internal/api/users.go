package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"task-tracker/internal/model"
)

const defaultRole = "user"

type userResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func newUserResponses(users []model.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID, Name: u.Name})
	}
	return out
}

type loginRequest struct {
	Username *string `json:"username"`
	Role     *string `json:"role"`
}

// handleLogin echoes the submitted identity with the user roster. No
// credentials are checked and any body is accepted.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		s.log.Debugw("login body ignored", "error", err)
		req = loginRequest{}
	}

	name, role := "", defaultRole
	if req.Username != nil {
		name = *req.Username
	}
	if req.Role != nil {
		role = *req.Role
	}

	users, err := s.users.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"user":  gin.H{"name": name, "role": role},
		"users": newUserResponses(users),
	})
}

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.users.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponses(users))
}
