package handler

import (
	"errors"
	"net/http"
	"time"

	"smart-check/internal/apperr"
	"smart-check/internal/logger"
	"smart-check/internal/middleware"
	"smart-check/internal/model"
	"smart-check/internal/service"
	"smart-check/internal/validate"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users    *service.UserService
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthHandler(users *service.UserService, secret []byte, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{users: users, secret: secret, tokenTTL: tokenTTL}
}

var registerStatus = defaultStatus.with(statusMap{apperr.KindConflict: http.StatusConflict})

// sign-in answers 404 for every failure past validation.
var signInStatus = statusMap{
	apperr.KindValidation:     http.StatusBadRequest,
	apperr.KindNotFound:       http.StatusNotFound,
	apperr.KindAuthentication: http.StatusNotFound,
	apperr.KindInternal:       http.StatusNotFound,
	apperr.KindUnknown:        http.StatusNotFound,
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !bind(c, &req) {
		return
	}
	if err := validate.Register(req); err != nil {
		fail(c, err, registerStatus)
		return
	}
	if _, err := h.users.Register(c.Request.Context(), req); err != nil {
		fail(c, err, registerStatus)
		return
	}
	success(c, http.StatusCreated, gin.H{
		"message": "Usuário registrado com sucesso! Verifique seu e-mail para o código de confirmação.",
	})
}

func (h *AuthHandler) ValidateEmail(c *gin.Context) {
	var req model.ValidateEmailRequest
	if !bind(c, &req) {
		return
	}
	if err := validate.ValidateEmail(req); err != nil {
		fail(c, err, defaultStatus)
		return
	}
	u, err := h.users.ValidateEmail(c.Request.Context(), req)
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	success(c, http.StatusOK, u)
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req model.LoginRequest
	if !bind(c, &req) {
		return
	}
	if err := validate.Login(req); err != nil {
		fail(c, err, signInStatus)
		return
	}

	u, err := h.users.Login(c.Request.Context(), req)
	if errors.Is(err, service.ErrNotVerified) {
		failWith(c, http.StatusUnauthorized, "not_verified", err.Error())
		return
	}
	if err != nil {
		logger.Warn("login.failed", "email", req.Email, "err", err)
		fail(c, err, signInStatus)
		return
	}

	token, err := middleware.IssueToken(h.secret, u.ID, u.Name, u.Role, h.tokenTTL)
	if err != nil {
		fail(c, apperr.Internal("Erro ao gerar token", err), signInStatus)
		return
	}
	logger.Info("login.ok", "uid", u.ID, "name", u.Name)
	success(c, http.StatusOK, model.LoginResponse{User: *u, Token: token})
}
