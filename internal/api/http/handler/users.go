package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dtroode/starter-api/internal/api/http/response"
	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/model"
)

// UserService administers accounts.
type UserService interface {
	List(ctx context.Context, limit, offset int) ([]model.User, error)
	Update(ctx context.Context, id uuid.UUID, params model.UpdateUserParams) (model.User, error)
}

type updateUserRequest struct {
	Roles    *[]model.Role `json:"roles"`
	IsActive *bool         `json:"isActive"`
}

// Users serves the profile and user administration endpoints.
type Users struct {
	users          UserService
	contextManager model.ContextManager
}

// NewUsers creates a new Users handler.
func NewUsers(users UserService, contextManager model.ContextManager) *Users {
	return &Users{users: users, contextManager: contextManager}
}

// Profile returns the authenticated user.
func (h *Users) Profile(c *gin.Context) {
	user, ok := h.contextManager.GetUserFromContext(c.Request.Context())
	if !ok {
		_ = c.Error(apierror.NewErrMissingAuthorizationToken())
		return
	}
	response.OK(c, http.StatusOK, "Profile retrieved successfully", user.Public())
}

// List returns a page of users.
func (h *Users) List(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		_ = c.Error(err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		_ = c.Error(err)
		return
	}

	users, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	response.OK(c, http.StatusOK, "Users retrieved successfully", out)
}

// Update changes a user's roles or active flag.
func (h *Users) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apierror.NewErrValidation("Invalid user id", err))
		return
	}

	var req updateUserRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	params := model.UpdateUserParams{IsActive: req.IsActive}
	if req.Roles != nil {
		params.Roles = *req.Roles
		if params.Roles == nil {
			params.Roles = []model.Role{}
		}
	}

	user, err := h.users.Update(c.Request.Context(), id, params)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, "User updated successfully", user.Public())
}

// queryInt parses an optional integer query parameter; absent yields 0.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierror.NewErrValidation(name+" must be an integer", err)
	}
	return n, nil
}
