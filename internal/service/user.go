package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"smart-check/internal/apperr"
	"smart-check/internal/logger"
	"smart-check/internal/model"
	"smart-check/internal/pkg/metrics"
	"smart-check/internal/pkg/notify"
	"smart-check/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// ErrNotVerified is returned by Login when the credentials are right but the
// e-mail was never confirmed. A fresh delivery of the code has been attempted.
const msgEmailTaken = "Este e-mail já está cadastrado."

var ErrNotVerified = apperr.Authentication("Email não verificado. Enviando novo código de confirmação.")

// CodeSender delivers a confirmation code. notify.EmailNotifier implements it.
type CodeSender interface {
	SendConfirmationCode(ctx context.Context, email, code string) error
}

// ResendLimiter throttles code deliveries triggered by sign-in attempts.
type ResendLimiter interface {
	Allow(ctx context.Context, email string) (bool, error)
	Reset(ctx context.Context, email string) error
}

type noLimit struct{}

func (noLimit) Allow(context.Context, string) (bool, error) { return true, nil }
func (noLimit) Reset(context.Context, string) error         { return nil }

type UserService struct {
	store   UserStore
	sender  CodeSender
	limiter ResendLimiter
	cost    int
}

func NewUserService(st UserStore, sender CodeSender, limiter ResendLimiter) *UserService {
	if limiter == nil {
		limiter = noLimit{}
	}
	return &UserService{store: st, sender: sender, limiter: limiter, cost: 10}
}

// Register stores an unverified user and mails the confirmation code.
// The user is kept when delivery fails; signing in re-sends the code.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	_, err := s.store.UserByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, apperr.Conflict(msgEmailTaken)
	case !isNotFound(err):
		return nil, apperr.Internal("Erro ao cadastrar usuário", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, apperr.Internal("Erro ao cadastrar usuário", err)
	}
	code, err := generateCode()
	if err != nil {
		return nil, apperr.Internal("Erro ao gerar código de confirmação", err)
	}

	u := &model.User{
		Name:             req.Name,
		Email:            req.Email,
		Password:         string(hash),
		Role:             model.RoleUser,
		ConfirmationCode: &code,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict(msgEmailTaken)
		}
		return nil, apperr.Internal("Erro ao cadastrar usuário", err)
	}
	logger.Info("user.register.ok", "user_id", u.ID)

	if err := s.send(ctx, u.Email, code); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) ValidateEmail(ctx context.Context, req model.ValidateEmailRequest) (*model.UserSummary, error) {
	u, err := s.store.VerifyUser(ctx, req.Email, req.Code)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.Validation("Código de confirmação inválido ou e-mail não encontrado.")
		}
		return nil, apperr.Internal("Erro ao validar e-mail", err)
	}
	logger.Info("user.verify.ok", "user_id", u.ID)
	return summarize(u), nil
}

// Login checks the credentials. An unverified user gets ErrNotVerified after
// the code is re-sent, unless the resend cooldown is still running.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (*model.UserSummary, error) {
	u, err := s.store.UserByEmail(ctx, req.Email)
	if err != nil {
		return nil, lookup(err, "Usuário não encontrado.", "Erro ao buscar usuário")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)) != nil {
		logger.Warn("login.failed", "email", req.Email)
		return nil, apperr.Authentication("Email ou senha incorretos.")
	}
	if !u.IsVerified {
		if err := s.resend(ctx, u); err != nil {
			return nil, err
		}
		return nil, ErrNotVerified
	}
	logger.Info("login.ok", "user_id", u.ID)
	return summarize(u), nil
}

func (s *UserService) resend(ctx context.Context, u *model.User) error {
	allowed, err := s.limiter.Allow(ctx, u.Email)
	if err != nil {
		logger.Warn("email.cooldown.unavailable", "err", err)
		allowed = true
	}
	if !allowed {
		metrics.EmailsSent.WithLabelValues(metrics.Throttled).Inc()
		return nil
	}
	code := ""
	if u.ConfirmationCode != nil {
		code = *u.ConfirmationCode
	}
	if code == "" {
		if code, err = generateCode(); err != nil {
			return apperr.Internal("Erro ao gerar código de confirmação", err)
		}
		if err := s.store.SetConfirmationCode(ctx, u.ID, code); err != nil {
			return apperr.Internal("Erro ao atualizar código de confirmação", err)
		}
	}
	if err := s.send(ctx, u.Email, code); err != nil {
		_ = s.limiter.Reset(ctx, u.Email)
		return err
	}
	return nil
}

func (s *UserService) send(ctx context.Context, email, code string) error {
	if err := s.sender.SendConfirmationCode(ctx, email, code); err != nil {
		metrics.EmailsSent.WithLabelValues(metrics.Failed).Inc()
		logger.Error("email.code.failed", "email", email, "err", err)
		if errors.Is(err, notify.ErrMissingCredentials) {
			return &apperr.Error{Kind: apperr.KindInternal, Message: err.Error(), Err: err}
		}
		return apperr.Internal("Erro ao enviar e-mail", err)
	}
	metrics.EmailsSent.WithLabelValues(metrics.OK).Inc()
	return nil
}

// Me reports the caller's active progress log, if any.
func (s *UserService) Me(ctx context.Context, userID string) (*model.MeResponse, error) {
	l, err := s.store.ActiveLogForUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return &model.MeResponse{}, nil
		}
		return nil, apperr.Internal("Erro ao buscar tarefa em andamento", err)
	}
	return &model.MeResponse{TaskLog: &model.TaskLogRef{ID: l.ID, TaskID: l.TaskID}}, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("Erro ao buscar usuários", err)
	}
	return nonNil(users), nil
}

func (s *UserService) UserData(ctx context.Context, userID string) (*model.UserData, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, lookup(err, "Usuário não encontrado.", "Erro ao buscar usuário")
	}
	out := &model.UserData{User: *u}
	ua, err := s.store.AssignmentForUser(ctx, userID)
	switch {
	case err == nil:
		out.Assignment = ua
	case !isNotFound(err):
		return nil, apperr.Internal("Erro ao buscar vínculo", err)
	}
	return out, nil
}

// UpdateUserData sets the role, then updates the assignment named by
// assignment.id or inserts a new one when no id is given.
func (s *UserService) UpdateUserData(ctx context.Context, req model.UpdateUserRequest) (*model.UpdateUserResult, error) {
	res := &model.UpdateUserResult{}
	if req.User.Role != "" {
		u, err := s.store.UpdateUserRole(ctx, req.User.ID, req.User.Role)
		if err != nil {
			return nil, lookup(err, "Usuário não encontrado.", "Erro ao atualizar usuário")
		}
		res.User = u
	}

	if req.Assignment.ID != "" {
		ua, err := s.store.UpdateAssignment(ctx, req.Assignment.ID, req.Assignment.Activity)
		if err != nil {
			return nil, lookup(err, "Vínculo (assignment) não encontrado.", "Erro ao atualizar vínculo")
		}
		res.Assignment = ua
		return res, nil
	}

	ua := &model.UserActivity{UserID: req.User.ID, ActivityID: req.Assignment.Activity}
	if err := s.store.CreateAssignment(ctx, ua); err != nil {
		return nil, apperr.Internal("Erro ao criar vínculo", err)
	}
	res.Assignment = ua
	res.Created = true
	logger.Info("user.assignment.created", "user_id", ua.UserID, "activity_id", ua.ActivityID)
	return res, nil
}

func summarize(u *model.User) *model.UserSummary {
	return &model.UserSummary{ID: u.ID, Name: u.Name, Role: u.Role}
}

// generateCode returns a uniformly random six-digit code, zero padded.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
