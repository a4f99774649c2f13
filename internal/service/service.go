package service

import (
	"context"
	"errors"
	"time"

	"smart-check/internal/apperr"
	"smart-check/internal/model"
	"smart-check/internal/store"
)

// UserStore is what UserService needs from the store.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	VerifyUser(ctx context.Context, email, code string) (*model.User, error)
	SetConfirmationCode(ctx context.Context, userID, code string) error
	UpdateUserRole(ctx context.Context, userID, role string) (*model.User, error)
	AssignmentForUser(ctx context.Context, userID string) (*model.UserActivity, error)
	CreateAssignment(ctx context.Context, ua *model.UserActivity) error
	UpdateAssignment(ctx context.Context, id, activityID string) (*model.UserActivity, error)
	ActiveLogForUser(ctx context.Context, userID string) (*model.TaskLog, error)
}

type TaskStore interface {
	ActivityExists(ctx context.Context, id string) (bool, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	IsLinked(ctx context.Context, userID, activityID string) (bool, error)
	LeastLoadedUser(ctx context.Context, activityID string) (string, error)
	CreateTask(ctx context.Context, t *model.Task) error
	TaskByID(ctx context.Context, id string) (*model.Task, error)
	TaskWithReports(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context) ([]model.TaskSummary, error)
	ListTasksByUser(ctx context.Context, userID string) ([]model.TaskSummary, error)
	CreateTaskLog(ctx context.Context, l *model.TaskLog) error
	TaskLogByID(ctx context.Context, id string) (*model.TaskLog, error)
	ActiveLogForTask(ctx context.Context, taskID string) (*model.TaskLog, error)
	FinishTaskLog(ctx context.Context, logID, image string, at time.Time) (bool, error)
}

type CatalogStore interface {
	ListActivities(ctx context.Context) ([]model.Activity, error)
	ListProblems(ctx context.Context) ([]model.Problem, error)
}

type ReportStore interface {
	TaskByID(ctx context.Context, id string) (*model.Task, error)
	ProblemExists(ctx context.Context, id string) (bool, error)
	CreateReport(ctx context.Context, r *model.Report) error
}

// Mirror receives every created task and report. CatalogSync implements it.
type Mirror interface {
	MirrorTask(ctx context.Context, t *model.Task)
	MirrorReport(ctx context.Context, r *model.Report)
}

type noMirror struct{}

func (noMirror) MirrorTask(context.Context, *model.Task)     {}
func (noMirror) MirrorReport(context.Context, *model.Report) {}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }

// lookup turns ErrNotFound into a NotFound error carrying msg and any other
// store failure into an Internal one.
func lookup(err error, notFoundMsg, internalMsg string) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return apperr.NotFound(notFoundMsg)
	}
	return apperr.Internal(internalMsg, err)
}
