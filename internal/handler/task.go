package handler

import (
	"net/http"

	"smart-check/internal/apperr"
	"smart-check/internal/model"
	"smart-check/internal/service"
	"smart-check/internal/validate"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct{ tasks *service.TaskService }

func NewTaskHandler(tasks *service.TaskService) *TaskHandler { return &TaskHandler{tasks: tasks} }

var getTaskStatus = defaultStatus.with(statusMap{apperr.KindNotFound: http.StatusNotFound})

func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.tasks.ListTasks(c.Request.Context())
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	success(c, http.StatusOK, tasks)
}

func (h *TaskHandler) ListForUser(c *gin.Context) {
	userID := c.Param("userId")
	if err := validate.ID("userId", userID); err != nil {
		fail(c, err, defaultStatus)
		return
	}
	tasks, err := h.tasks.ListTasksForUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	success(c, http.StatusOK, tasks)
}

// Get serves GET /tasks/:id where id is a task id.
func (h *TaskHandler) Get(c *gin.Context) {
	taskID := c.Param("id")
	if err := validate.ID("taskId", taskID); err != nil {
		fail(c, err, getTaskStatus)
		return
	}
	task, err := h.tasks.GetTask(c.Request.Context(), taskID)
	if err != nil {
		fail(c, err, getTaskStatus)
		return
	}
	success(c, http.StatusOK, task)
}

// Progress serves GET /tasks/:id/progress where id is a task log id.
func (h *TaskHandler) Progress(c *gin.Context) {
	logID := c.Param("id")
	if err := validate.ID("taskLogId", logID); err != nil {
		fail(c, err, defaultStatus)
		return
	}
	l, err := h.tasks.GetTaskProgress(c.Request.Context(), logID)
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	success(c, http.StatusOK, l)
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req model.CreateTaskRequest
	if !bind(c, &req) {
		return
	}
	in, err := validate.CreateTask(req)
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	task, err := h.tasks.CreateTask(c.Request.Context(), in)
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	successData(c, http.StatusCreated, task)
}

func (h *TaskHandler) Start(c *gin.Context) {
	var req model.StartTaskRequest
	if !bind(c, &req) {
		return
	}
	if err := validate.StartTask(req); err != nil {
		fail(c, err, defaultStatus)
		return
	}
	l, err := h.tasks.StartTask(c.Request.Context(), req.TaskID, req.UserID)
	if err != nil {
		fail(c, err, defaultStatus)
		return
	}
	success(c, http.StatusCreated, l)
}

func (h *TaskHandler) Finish(c *gin.Context) {
	var req model.FinishTaskRequest
	if !bind(c, &req) {
		return
	}
	if err := validate.FinishTask(req); err != nil {
		fail(c, err, defaultStatus)
		return
	}
	if err := h.tasks.FinishTask(c.Request.Context(), req.TaskLogID, req.ImageConfirmation); err != nil {
		fail(c, err, defaultStatus)
		return
	}
	success(c, http.StatusCreated, "OK")
}
