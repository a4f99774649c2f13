package handler

import (
	"net/http"

	"smart-check/internal/model"
	"smart-check/internal/service"
	"smart-check/internal/validate"

	"github.com/gin-gonic/gin"
)

type UserHandler struct{ users *service.UserService }

func NewUserHandler(users *service.UserService) *UserHandler { return &UserHandler{users: users} }

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	success(c, http.StatusOK, users)
}

func (h *UserHandler) Data(c *gin.Context) {
	userID := c.Param("userId")
	if err := validate.ID("userId", userID); err != nil {
		fail(c, err, defaultStatus)
		return
	}
	data, err := h.users.UserData(c.Request.Context(), userID)
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	success(c, http.StatusOK, data)
}

// Update answers 201 when a new assignment was inserted and 200 otherwise.
func (h *UserHandler) Update(c *gin.Context) {
	userID := c.Param("userId")
	if err := validate.ID("userId", userID); err != nil {
		fail(c, err, defaultStatus)
		return
	}
	var req model.UpdateUserRequest
	if !bind(c, &req) {
		return
	}
	if err := validate.UpdateUser(userID, req); err != nil {
		fail(c, err, defaultStatus)
		return
	}
	res, err := h.users.UpdateUserData(c.Request.Context(), req)
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	if res.User == nil && res.Assignment == nil {
		success(c, code, gin.H{"message": "OK"})
		return
	}
	success(c, code, res)
}

func (h *UserHandler) Me(c *gin.Context) {
	userID := c.Param("userId")
	if err := validate.ID("userId", userID); err != nil {
		fail(c, err, defaultStatus)
		return
	}
	me, err := h.users.Me(c.Request.Context(), userID)
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	success(c, http.StatusOK, me)
}
