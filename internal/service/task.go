package service

import (
	"context"
	"time"

	"smart-check/internal/apperr"
	"smart-check/internal/logger"
	"smart-check/internal/model"
	"smart-check/internal/pkg/metrics"
)

type TaskService struct {
	store  TaskStore
	mirror Mirror
	now    func() time.Time
}

func NewTaskService(st TaskStore, mirror Mirror) *TaskService {
	if mirror == nil {
		mirror = noMirror{}
	}
	return &TaskService{store: st, mirror: mirror, now: time.Now}
}

// CreateTask checks the activity, resolves the owner and stores the task open.
func (s *TaskService) CreateTask(ctx context.Context, in model.NewTask) (*model.Task, error) {
	ok, err := s.store.ActivityExists(ctx, in.ActivityID)
	if err != nil {
		return nil, apperr.Internal("Erro ao buscar a atividade", err)
	}
	if !ok {
		return nil, apperr.NotFound("Atividade (activity_id) não encontrada.")
	}

	owner := in.UserID
	if owner != "" {
		if _, err := s.store.UserByID(ctx, owner); err != nil {
			return nil, lookup(err, "Usuário (user_id) não encontrado.", "Erro ao buscar o usuário")
		}
		linked, err := s.store.IsLinked(ctx, owner, in.ActivityID)
		if err != nil {
			return nil, apperr.Internal("Erro ao verificar vínculo", err)
		}
		if !linked {
			return nil, apperr.Conflict("O usuário não está vinculado a essa atividade.")
		}
	} else {
		owner, err = s.store.LeastLoadedUser(ctx, in.ActivityID)
		if err != nil {
			return nil, lookup(err, "Nenhum usuário vinculado a essa atividade.", "Erro ao buscar usuário com menos tarefas")
		}
	}

	t := &model.Task{
		Title:               in.Title,
		UserID:              owner,
		ActivityID:          in.ActivityID,
		Tag:                 in.Tag,
		DueDate:             in.DueDate,
		Image:               in.Image,
		GeneralDescription:  in.GeneralDescription,
		SecurityDescription: in.SecurityDescription,
		Status:              model.TaskStatusOpen,
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, apperr.Internal("Erro ao criar tarefa", err)
	}
	logger.Info("task.create.ok", "task_id", t.ID, "user_id", owner, "auto_assigned", in.UserID == "")
	s.mirror.MirrorTask(ctx, t)
	return t, nil
}

func (s *TaskService) ListTasks(ctx context.Context) ([]model.TaskSummary, error) {
	out, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, apperr.Internal("Erro ao buscar as tarefas", err)
	}
	return nonNil(out), nil
}

func (s *TaskService) ListTasksForUser(ctx context.Context, userID string) ([]model.TaskSummary, error) {
	out, err := s.store.ListTasksByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Erro ao buscar tarefas do usuário", err)
	}
	return nonNil(out), nil
}

// GetTask returns the task with the reports filed against it.
func (s *TaskService) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	t, err := s.store.TaskWithReports(ctx, taskID)
	if err != nil {
		return nil, lookup(err, "Tarefa não encontrada", "Erro ao buscar a tarefa")
	}
	if t.Reports == nil {
		t.Reports = []model.Report{}
	}
	return t, nil
}

// GetTaskProgress returns the log only while it is in progress.
func (s *TaskService) GetTaskProgress(ctx context.Context, taskLogID string) (*model.TaskLog, error) {
	l, err := s.store.TaskLogByID(ctx, taskLogID)
	if err != nil {
		return nil, lookup(err, msgTaskNotStarted, "Erro ao buscar o progresso da tarefa")
	}
	if !l.InProgress {
		return nil, apperr.Conflict(msgTaskFinished)
	}
	return l, nil
}

// StartTask guards, in order: the task exists, it is neither reported nor
// finished, userID owns it, and no other log is active for it.
func (s *TaskService) StartTask(ctx context.Context, taskID, userID string) (*model.TaskLog, error) {
	t, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return nil, s.reject(EventStart, lookup(err, "Tarefa (task_id) não encontrada.", "Erro ao buscar a tarefa"))
	}
	if _, err := Transition(StateOf(t, nil), EventStart); err != nil {
		return nil, s.reject(EventStart, err)
	}
	if t.UserID != userID {
		return nil, s.reject(EventStart, apperr.Authorization("Esta tarefa não pertence a este usuário."))
	}
	active, err := s.store.ActiveLogForTask(ctx, taskID)
	switch {
	case err == nil:
		if _, err := Transition(StateOf(t, active), EventStart); err != nil {
			return nil, s.reject(EventStart, err)
		}
	case !isNotFound(err):
		return nil, apperr.Internal("Erro ao buscar o progresso da tarefa", err)
	}

	l := &model.TaskLog{TaskID: taskID, UserID: userID, InProgress: true, StartedAt: s.now()}
	if err := s.store.CreateTaskLog(ctx, l); err != nil {
		return nil, apperr.Internal("Erro ao iniciar tarefa", err)
	}
	metrics.TaskTransitions.WithLabelValues(string(EventStart), metrics.OK).Inc()
	logger.Info("task.start.ok", "task_id", taskID, "user_id", userID, "task_log_id", l.ID)
	return l, nil
}

// FinishTask closes an in-progress log and marks its task finished. The
// store update is conditional, so of two concurrent finishers one gets a
// conflict.
func (s *TaskService) FinishTask(ctx context.Context, taskLogID, image string) error {
	l, err := s.store.TaskLogByID(ctx, taskLogID)
	if err != nil {
		return s.reject(EventFinish, lookup(err, msgTaskNotStarted, "Erro ao buscar o progresso da tarefa"))
	}
	state := StateInProgress
	if !l.InProgress {
		state = StateFinished
	}
	if _, err := Transition(state, EventFinish); err != nil {
		return s.reject(EventFinish, err)
	}
	ok, err := s.store.FinishTaskLog(ctx, taskLogID, image, s.now())
	if err != nil {
		return apperr.Internal("Erro ao finalizar tarefa", err)
	}
	if !ok {
		return s.reject(EventFinish, apperr.Conflict(msgTaskFinished))
	}
	metrics.TaskTransitions.WithLabelValues(string(EventFinish), metrics.OK).Inc()
	logger.Info("task.finish.ok", "task_log_id", taskLogID, "task_id", l.TaskID)
	return nil
}

func (s *TaskService) reject(ev Event, err error) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		metrics.TaskTransitions.WithLabelValues(string(ev), metrics.Rejected).Inc()
		logger.Warn("task."+string(ev)+".rejected", "reason", err.Error())
	}
	return err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
