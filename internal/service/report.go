package service

import (
	"context"
	"time"

	"smart-check/internal/apperr"
	"smart-check/internal/logger"
	"smart-check/internal/model"
)

type ReportService struct {
	store  ReportStore
	mirror Mirror
	now    func() time.Time
}

func NewReportService(st ReportStore, mirror Mirror) *ReportService {
	if mirror == nil {
		mirror = noMirror{}
	}
	return &ReportService{store: st, mirror: mirror, now: time.Now}
}

// CreateReport files a problem against a task. Reports are never updated,
// and filing one leaves the task status untouched.
func (s *ReportService) CreateReport(ctx context.Context, in model.NewReport) (*model.Report, error) {
	if _, err := s.store.TaskByID(ctx, in.TaskID); err != nil {
		return nil, lookup(err, "Tarefa (task_id) não encontrada.", "Erro ao buscar a tarefa")
	}
	ok, err := s.store.ProblemExists(ctx, in.ProblemID)
	if err != nil {
		return nil, apperr.Internal("Erro ao buscar os problemas", err)
	}
	if !ok {
		return nil, apperr.NotFound("Problema (problem_id) não encontrado.")
	}

	r := &model.Report{
		TaskID:      in.TaskID,
		ProblemID:   in.ProblemID,
		Description: in.Description,
		CreatedAt:   in.CreatedAt,
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	if err := s.store.CreateReport(ctx, r); err != nil {
		return nil, apperr.Internal("Erro ao reportar a tarefa", err)
	}
	logger.Info("report.create.ok", "report_id", r.ID, "task_id", r.TaskID, "problem_id", r.ProblemID)
	s.mirror.MirrorReport(ctx, r)
	return r, nil
}
