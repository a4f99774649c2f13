package handler

import (
	"net/http"

	"smart-check/internal/model"
	"smart-check/internal/service"
	"smart-check/internal/validate"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalog *service.CatalogService
	reports *service.ReportService
}

func NewCatalogHandler(catalog *service.CatalogService, reports *service.ReportService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, reports: reports}
}

func (h *CatalogHandler) Activities(c *gin.Context) {
	out, err := h.catalog.ListActivities(c.Request.Context())
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	success(c, http.StatusOK, out)
}

func (h *CatalogHandler) Problems(c *gin.Context) {
	out, err := h.catalog.ListProblems(c.Request.Context())
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	success(c, http.StatusOK, out)
}

func (h *CatalogHandler) CreateReport(c *gin.Context) {
	var req model.CreateReportRequest
	if !bind(c, &req) {
		return
	}
	in, err := validate.CreateReport(req)
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	r, err := h.reports.CreateReport(c.Request.Context(), in)
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	successData(c, http.StatusCreated, r)
}
