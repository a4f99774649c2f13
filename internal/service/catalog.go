package service

import (
	"context"

	"smart-check/internal/apperr"
	"smart-check/internal/model"
)

// CatalogService serves the read-only activity and problem lists.
type CatalogService struct{ store CatalogStore }

func NewCatalogService(st CatalogStore) *CatalogService { return &CatalogService{store: st} }

func (s *CatalogService) ListActivities(ctx context.Context) ([]model.Activity, error) {
	out, err := s.store.ListActivities(ctx)
	if err != nil {
		return nil, apperr.Internal("Erro ao buscar a lista de atividades", err)
	}
	return nonNil(out), nil
}

func (s *CatalogService) ListProblems(ctx context.Context) ([]model.Problem, error) {
	out, err := s.store.ListProblems(ctx)
	if err != nil {
		return nil, apperr.Internal("Erro ao buscar os problemas", err)
	}
	return nonNil(out), nil
}
