package handler

import (
	"errors"
	"io"
	"net/http"

	"smart-check/internal/apperr"
	"smart-check/internal/logger"

	"github.com/gin-gonic/gin"
)

// statusMap decides the HTTP status of each error kind for one endpoint.
type statusMap map[apperr.Kind]int

var defaultStatus = statusMap{
	apperr.KindValidation:     http.StatusBadRequest,
	apperr.KindNotFound:       http.StatusBadRequest,
	apperr.KindConflict:       http.StatusBadRequest,
	apperr.KindAuthentication: http.StatusUnauthorized,
	apperr.KindAuthorization:  http.StatusBadRequest,
	apperr.KindInternal:       http.StatusInternalServerError,
}

// with returns the default map overridden by m.
func (m statusMap) with(over statusMap) statusMap {
	out := make(statusMap, len(m)+len(over))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

func statusOf(err error, m statusMap) int {
	if code, ok := m[apperr.KindOf(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func success(c *gin.Context, code int, results any) {
	c.JSON(code, gin.H{"status": "success", "results": results})
}

func successData(c *gin.Context, code int, data any) {
	c.JSON(code, gin.H{"status": "success", "data": data})
}

func failWith(c *gin.Context, code int, status, msg string) {
	c.JSON(code, gin.H{"status": status, "error": gin.H{"message": msg}})
}

func fail(c *gin.Context, err error, m statusMap) {
	code := statusOf(err, m)
	if code >= http.StatusInternalServerError {
		logger.Error("request.failed", "path", c.FullPath(), "err", err)
	}
	msg := err.Error()
	if msg == "" {
		msg = "Ocorreu um erro desconhecido."
	}
	failWith(c, code, "error", msg)
}

// bind decodes the JSON body. An empty body decodes as an empty object so
// field validation reports what is missing.
func bind(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		failWith(c, http.StatusRequestEntityTooLarge, "error", "O corpo da requisição excede o limite permitido.")
		return false
	}
	failWith(c, http.StatusBadRequest, "error", "Corpo da requisição inválido.")
	return false
}
