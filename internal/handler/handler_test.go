package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smart-check/internal/middleware"
	"smart-check/internal/model"
	"smart-check/internal/service"
	"smart-check/internal/testutil"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("handler-test-secret")

type env struct {
	router *gin.Engine
	store  *testutil.FakeStore
	sender *testutil.FakeSender
}

func newEnv(t *testing.T, requireAuth bool) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := testutil.NewFakeStore()
	sender := &testutil.FakeSender{}

	users := service.NewUserService(st, sender, nil)
	tasks := service.NewTaskService(st, nil)
	catalog := service.NewCatalogService(st)
	reports := service.NewReportService(st, nil)

	r := NewRouter(RouterConfig{
		Auth:         NewAuthHandler(users, testSecret, time.Hour),
		Users:        NewUserHandler(users),
		Tasks:        NewTaskHandler(tasks),
		Catalog:      NewCatalogHandler(catalog, reports),
		MaxBodyBytes: 10 << 20,
		RequireAuth:  requireAuth,
		JWTSecret:    testSecret,
		TokenTTL:     time.Hour,
	})
	return &env{router: r, store: st, sender: sender}
}

type envelope struct {
	Status  string          `json:"status"`
	Results json.RawMessage `json:"results"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (e *env) do(t *testing.T, method, path string, body any, token string) (int, envelope) {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: response is not json: %q", method, path, w.Body.String())
	}
	return w.Code, env
}

func (e *env) addUser(t *testing.T, email, password string, verified bool) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	code := "111111"
	return e.store.AddUser(model.User{Name: "Ana", Email: email, Password: string(hash), IsVerified: verified, ConfirmationCode: &code})
}

func expect(t *testing.T, code int, env envelope, wantCode int, wantStatus string) {
	t.Helper()
	if code != wantCode || env.Status != wantStatus {
		t.Fatalf("got %d/%s (%q), want %d/%s", code, env.Status, env.Error.Message, wantCode, wantStatus)
	}
}

func TestRegisterFlow(t *testing.T) {
	e := newEnv(t, false)
	body := map[string]string{"name": "Ana", "email": "ana@example.com", "password": "segredo"}

	code, env := e.do(t, http.MethodPost, "/api/auth/register", body, "")
	expect(t, code, env, http.StatusCreated, "success")
	if !strings.Contains(string(env.Results), "Usuário registrado com sucesso!") {
		t.Fatalf("results = %s", env.Results)
	}
	sent, ok := e.sender.Last()
	if !ok {
		t.Fatalf("no code sent")
	}

	code, env = e.do(t, http.MethodPost, "/api/auth/register", body, "")
	expect(t, code, env, http.StatusConflict, "error")

	code, env = e.do(t, http.MethodPost, "/api/auth/validate-email", map[string]string{"email": "ana@example.com", "code": "999999"}, "")
	expect(t, code, env, http.StatusBadRequest, "error")

	code, env = e.do(t, http.MethodPost, "/api/auth/validate-email", map[string]string{"email": "ana@example.com", "code": sent.Code}, "")
	expect(t, code, env, http.StatusOK, "success")
	var summary model.UserSummary
	if err := json.Unmarshal(env.Results, &summary); err != nil || summary.Name != "Ana" || summary.Role != model.RoleUser {
		t.Fatalf("summary = %+v %v", summary, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t, false)

	code, env := e.do(t, http.MethodPost, "/api/auth/register", nil, "")
	expect(t, code, env, http.StatusBadRequest, "error")
	if env.Error.Message != "Todos os campos são obrigatórios." {
		t.Fatalf("empty body message = %q", env.Error.Message)
	}

	code, env = e.do(t, http.MethodPost, "/api/auth/register", `{"name":`, "")
	expect(t, code, env, http.StatusBadRequest, "error")

	code, env = e.do(t, http.MethodPost, "/api/auth/register", map[string]string{"name": "Ana", "email": "ana@example.com", "password": "123"}, "")
	expect(t, code, env, http.StatusBadRequest, "error")
	if env.Error.Message != "A senha deve ter pelo menos 6 caracteres." {
		t.Fatalf("message = %q", env.Error.Message)
	}
	if len(e.store.Users) != 0 {
		t.Fatalf("invalid input must not reach the store")
	}
}

func TestSignIn(t *testing.T) {
	e := newEnv(t, false)
	u := e.addUser(t, "ana@example.com", "segredo", true)
	e.addUser(t, "bia@example.com", "segredo", false)

	code, env := e.do(t, http.MethodPost, "/api/sign-in", map[string]string{"email": "ana@example.com", "password": "segredo"}, "")
	expect(t, code, env, http.StatusOK, "success")
	var resp model.LoginResponse
	if err := json.Unmarshal(env.Results, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.User.ID != u.ID || resp.Token == "" {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	code, env = e.do(t, http.MethodPost, "/api/sign-in", map[string]string{"email": "ana@example.com", "password": "errada"}, "")
	expect(t, code, env, http.StatusNotFound, "error")
	if env.Error.Message != "Email ou senha incorretos." {
		t.Fatalf("message = %q", env.Error.Message)
	}

	code, env = e.do(t, http.MethodPost, "/api/sign-in", map[string]string{"email": "zoe@example.com", "password": "segredo"}, "")
	expect(t, code, env, http.StatusNotFound, "error")

	code, env = e.do(t, http.MethodPost, "/api/sign-in", map[string]string{"email": "bia@example.com", "password": "segredo"}, "")
	expect(t, code, env, http.StatusUnauthorized, "not_verified")
	if env.Error.Message != "Email não verificado. Enviando novo código de confirmação." {
		t.Fatalf("message = %q", env.Error.Message)
	}
	if sent, ok := e.sender.Last(); !ok || sent.Email != "bia@example.com" || sent.Code != "111111" {
		t.Fatalf("code not re-sent: %+v", e.sender.Sent)
	}

	code, env = e.do(t, http.MethodPost, "/api/sign-in", map[string]string{"email": "ana"}, "")
	expect(t, code, env, http.StatusBadRequest, "error")
}

type taskWorld struct {
	*env
	owner    *model.User
	activity *model.Activity
	problem  *model.Problem
}

func newTaskWorld(t *testing.T) *taskWorld {
	e := newEnv(t, false)
	w := &taskWorld{env: e}
	w.owner = e.addUser(t, "ana@example.com", "segredo", true)
	w.activity = e.store.AddActivity("Inspeção")
	w.problem = e.store.AddProblem("Vazamento")
	e.store.Link(w.owner.ID, w.activity.ID)
	return w
}

func (w *taskWorld) taskBody() map[string]string {
	return map[string]string{
		"title":               "Verificar extintores",
		"activityId":          w.activity.ID,
		"tag":                 "seguranca",
		"dueDate":             time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"image":               "data:image/png;base64,AAAA",
		"generalDescription":  "Bloco A",
		"securityDescription": "Usar EPI",
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	w := newTaskWorld(t)

	code, env := w.do(t, http.MethodPost, "/api/tasks", w.taskBody(), "")
	expect(t, code, env, http.StatusCreated, "success")
	var task model.Task
	if err := json.Unmarshal(env.Data, &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.UserID != w.owner.ID || task.Status != model.TaskStatusOpen {
		t.Fatalf("auto-assigned task: %+v", task)
	}

	code, env = w.do(t, http.MethodGet, "/api/tasks/user/"+w.owner.ID, nil, "")
	expect(t, code, env, http.StatusOK, "success")
	var list []model.TaskSummary
	if err := json.Unmarshal(env.Results, &list); err != nil || len(list) != 1 || list[0].Description != "Bloco A" {
		t.Fatalf("user tasks: %s %v", env.Results, err)
	}

	code, env = w.do(t, http.MethodPost, "/api/tasks/start", map[string]string{"taskId": task.ID, "userId": w.owner.ID}, "")
	expect(t, code, env, http.StatusCreated, "success")
	var log model.TaskLog
	if err := json.Unmarshal(env.Results, &log); err != nil || !log.InProgress {
		t.Fatalf("start result: %s %v", env.Results, err)
	}

	code, env = w.do(t, http.MethodGet, "/api/me/"+w.owner.ID, nil, "")
	expect(t, code, env, http.StatusOK, "success")
	if !strings.Contains(string(env.Results), log.ID) {
		t.Fatalf("me should report the active log: %s", env.Results)
	}

	code, env = w.do(t, http.MethodGet, "/api/tasks/"+log.ID+"/progress", nil, "")
	expect(t, code, env, http.StatusOK, "success")

	code, env = w.do(t, http.MethodPost, "/api/tasks/start", map[string]string{"taskId": task.ID, "userId": w.owner.ID}, "")
	expect(t, code, env, http.StatusBadRequest, "error")

	code, env = w.do(t, http.MethodPost, "/api/tasks/finish", map[string]string{"taskLogId": log.ID, "imageConfirmation": "img"}, "")
	expect(t, code, env, http.StatusCreated, "success")
	if string(env.Results) != `"OK"` {
		t.Fatalf("finish results = %s", env.Results)
	}

	code, env = w.do(t, http.MethodPost, "/api/tasks/finish", map[string]string{"taskLogId": log.ID, "imageConfirmation": "img"}, "")
	expect(t, code, env, http.StatusBadRequest, "error")

	code, env = w.do(t, http.MethodGet, "/api/tasks/"+log.ID+"/progress", nil, "")
	expect(t, code, env, http.StatusBadRequest, "error")
	if env.Error.Message != "Esta tarefa já foi finalizada." {
		t.Fatalf("message = %q", env.Error.Message)
	}

	code, env = w.do(t, http.MethodGet, "/api/me/"+w.owner.ID, nil, "")
	expect(t, code, env, http.StatusOK, "success")
	if string(env.Results) != `{"taskLog":null}` {
		t.Fatalf("me after finish = %s", env.Results)
	}
}

func TestFinishUnknownLog(t *testing.T) {
	w := newTaskWorld(t)

	code, env := w.do(t, http.MethodPost, "/api/tasks/finish", map[string]string{
		"taskLogId":         "4c1d2e3f-0000-4000-8000-000000000000",
		"imageConfirmation": "img",
	}, "")
	expect(t, code, env, http.StatusBadRequest, "error")
	if env.Error.Message != "Esta tarefa ainda não foi iniciada." {
		t.Fatalf("message = %q", env.Error.Message)
	}
}

func TestStartByAnotherUserIsRejected(t *testing.T) {
	w := newTaskWorld(t)
	task := w.store.AddTask(model.Task{UserID: w.owner.ID, ActivityID: w.activity.ID})
	other := w.addUser(t, "bia@example.com", "segredo", true)

	code, env := w.do(t, http.MethodPost, "/api/tasks/start", map[string]string{"taskId": task.ID, "userId": other.ID}, "")
	expect(t, code, env, http.StatusBadRequest, "error")
	if len(w.store.Logs) != 0 {
		t.Fatalf("no log should be created")
	}
}

func TestGetTask(t *testing.T) {
	w := newTaskWorld(t)
	task := w.store.AddTask(model.Task{UserID: w.owner.ID, ActivityID: w.activity.ID, Title: "T"})

	code, env := w.do(t, http.MethodGet, "/api/tasks/not-a-uuid", nil, "")
	expect(t, code, env, http.StatusBadRequest, "error")
	if env.Error.Message != "O taskId deve ser um UUID válido." {
		t.Fatalf("message = %q", env.Error.Message)
	}

	code, env = w.do(t, http.MethodGet, "/api/tasks/4c1d2e3f-0000-4000-8000-000000000000", nil, "")
	expect(t, code, env, http.StatusNotFound, "error")
	if env.Error.Message != "Tarefa não encontrada" {
		t.Fatalf("message = %q", env.Error.Message)
	}

	code, env = w.do(t, http.MethodPost, "/api/reports", map[string]string{"taskId": task.ID, "problemId": w.problem.ID, "description": "Porta travada"}, "")
	expect(t, code, env, http.StatusCreated, "success")
	if len(env.Data) == 0 {
		t.Fatalf("report should come back under data")
	}

	code, env = w.do(t, http.MethodGet, "/api/tasks/"+task.ID, nil, "")
	expect(t, code, env, http.StatusOK, "success")
	var got model.Task
	if err := json.Unmarshal(env.Results, &got); err != nil || len(got.Reports) != 1 {
		t.Fatalf("task with reports: %s %v", env.Results, err)
	}
	if got.Status != model.TaskStatusOpen {
		t.Fatalf("reporting must not change status, got %s", got.Status)
	}
}

func TestCreateTaskErrors(t *testing.T) {
	w := newTaskWorld(t)
	stranger := w.addUser(t, "bia@example.com", "segredo", true)

	body := w.taskBody()
	body["userId"] = stranger.ID
	code, env := w.do(t, http.MethodPost, "/api/tasks", body, "")
	expect(t, code, env, http.StatusBadRequest, "error")
	if env.Error.Message != "O usuário não está vinculado a essa atividade." {
		t.Fatalf("message = %q", env.Error.Message)
	}

	body = w.taskBody()
	body["dueDate"] = "2001-01-01T00:00:00Z"
	code, env = w.do(t, http.MethodPost, "/api/tasks", body, "")
	expect(t, code, env, http.StatusBadRequest, "error")
	if env.Error.Message != "dueDate não pode ser uma data no passado." {
		t.Fatalf("message = %q", env.Error.Message)
	}
	if len(w.store.Tasks) != 0 {
		t.Fatalf("no task should be stored")
	}
}

func TestUserUpdateStatuses(t *testing.T) {
	w := newTaskWorld(t)
	other := w.store.AddActivity("Limpeza")
	u := w.addUser(t, "bia@example.com", "segredo", true)

	body := map[string]any{
		"user":       map[string]string{"id": u.ID, "role": "admin"},
		"assignment": map[string]string{"activity": other.ID},
	}
	code, env := w.do(t, http.MethodPost, "/api/users/"+u.ID+"/update", body, "")
	expect(t, code, env, http.StatusCreated, "success")
	var res model.UpdateUserResult
	if err := json.Unmarshal(env.Results, &res); err != nil || res.Assignment == nil {
		t.Fatalf("update result: %s %v", env.Results, err)
	}

	body["assignment"] = map[string]string{"id": res.Assignment.ID, "activity": w.activity.ID}
	code, env = w.do(t, http.MethodPost, "/api/users/"+u.ID+"/update", body, "")
	expect(t, code, env, http.StatusOK, "success")

	code, env = w.do(t, http.MethodPost, "/api/users/"+w.owner.ID+"/update", body, "")
	expect(t, code, env, http.StatusBadRequest, "error")

	code, env = w.do(t, http.MethodGet, "/api/users/"+u.ID+"/data", nil, "")
	expect(t, code, env, http.StatusOK, "success")
	var data model.UserData
	if err := json.Unmarshal(env.Results, &data); err != nil || data.User.Role != model.RoleAdmin || data.Assignment.ActivityID != w.activity.ID {
		t.Fatalf("user data: %s %v", env.Results, err)
	}
	if strings.Contains(string(env.Results), "password") {
		t.Fatalf("password leaked: %s", env.Results)
	}

	code, env = w.do(t, http.MethodGet, "/api/users/xyz/data", nil, "")
	expect(t, code, env, http.StatusBadRequest, "error")
}

func TestCatalogLists(t *testing.T) {
	w := newTaskWorld(t)

	code, env := w.do(t, http.MethodGet, "/api/activities", nil, "")
	expect(t, code, env, http.StatusOK, "success")
	code, env = w.do(t, http.MethodGet, "/api/problems", nil, "")
	expect(t, code, env, http.StatusOK, "success")

	code, env = w.do(t, http.MethodGet, "/api/users", nil, "")
	expect(t, code, env, http.StatusOK, "success")
	if strings.Contains(string(env.Results), "confirmation_code") || strings.Contains(string(env.Results), "password") {
		t.Fatalf("secrets leaked: %s", env.Results)
	}

	w.store.FailOn["ListActivities"] = errTest("timeout")
	code, env = w.do(t, http.MethodGet, "/api/activities", nil, "")
	expect(t, code, env, http.StatusInternalServerError, "error")
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestRequireAuth(t *testing.T) {
	e := newEnv(t, true)
	u := e.addUser(t, "ana@example.com", "segredo", true)

	code, env := e.do(t, http.MethodGet, "/api/activities", nil, "")
	expect(t, code, env, http.StatusUnauthorized, "error")

	token, err := middleware.IssueToken(testSecret, u.ID, u.Name, u.Role, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	code, env = e.do(t, http.MethodGet, "/api/activities", nil, token)
	expect(t, code, env, http.StatusOK, "success")

	code, env = e.do(t, http.MethodPost, "/api/sign-in", map[string]string{"email": "ana@example.com", "password": "segredo"}, "")
	expect(t, code, env, http.StatusOK, "success")
}

func TestHealthz(t *testing.T) {
	e := newEnv(t, false)
	code, env := e.do(t, http.MethodGet, "/healthz", nil, "")
	expect(t, code, env, http.StatusOK, "success")
}
