// Package testutil holds an in-memory store shared by service and handler
// tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"smart-check/internal/model"
	"smart-check/internal/store"

	"github.com/google/uuid"
)

// FakeStore mimics store.Store over maps. FailOn injects an error into the
// named method.
type FakeStore struct {
	mu sync.Mutex

	Users      map[string]*model.User
	Activities map[string]*model.Activity
	Problems   map[string]*model.Problem
	Links      map[string]*model.UserActivity
	Tasks      map[string]*model.Task
	Logs       map[string]*model.TaskLog
	Reports    []*model.Report

	FailOn map[string]error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		Users:      map[string]*model.User{},
		Activities: map[string]*model.Activity{},
		Problems:   map[string]*model.Problem{},
		Links:      map[string]*model.UserActivity{},
		Tasks:      map[string]*model.Task{},
		Logs:       map[string]*model.TaskLog{},
		FailOn:     map[string]error{},
	}
}

func (f *FakeStore) fail(method string) error { return f.FailOn[method] }

func idOr(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// ---- seeding ----

func (f *FakeStore) AddActivity(label string) *model.Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &model.Activity{ID: uuid.NewString(), Label: label}
	f.Activities[a.ID] = a
	return a
}

func (f *FakeStore) AddProblem(label string) *model.Problem {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &model.Problem{ID: uuid.NewString(), Label: label}
	f.Problems[p.ID] = p
	return p
}

func (f *FakeStore) AddUser(u model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = idOr(u.ID)
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	f.Users[u.ID] = &u
	return &u
}

func (f *FakeStore) Link(userID, activityID string) *model.UserActivity {
	f.mu.Lock()
	defer f.mu.Unlock()
	ua := &model.UserActivity{ID: uuid.NewString(), UserID: userID, ActivityID: activityID, CreatedAt: time.Now()}
	f.Links[ua.ID] = ua
	return ua
}

func (f *FakeStore) AddTask(t model.Task) *model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = idOr(t.ID)
	if t.Status == "" {
		t.Status = model.TaskStatusOpen
	}
	f.Tasks[t.ID] = &t
	return &t
}

func (f *FakeStore) AddLog(l model.TaskLog) *model.TaskLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = idOr(l.ID)
	f.Logs[l.ID] = &l
	return &l
}

// ---- users ----

func (f *FakeStore) CreateUser(_ context.Context, u *model.User) error {
	if err := f.fail("CreateUser"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.Users {
		if other.Email == u.Email {
			return fmt.Errorf("create user: %w", store.ErrDuplicate)
		}
	}
	u.ID = idOr(u.ID)
	cp := *u
	f.Users[u.ID] = &cp
	return nil
}

func (f *FakeStore) UserByEmail(_ context.Context, email string) (*model.User, error) {
	if err := f.fail("UserByEmail"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.Users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *FakeStore) UserByID(_ context.Context, id string) (*model.User, error) {
	if err := f.fail("UserByID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *FakeStore) ListUsers(context.Context) ([]model.User, error) {
	if err := f.fail("ListUsers"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.User, 0, len(f.Users))
	for _, u := range f.Users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *FakeStore) VerifyUser(_ context.Context, email, code string) (*model.User, error) {
	if err := f.fail("VerifyUser"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.Users {
		if u.Email == email && u.ConfirmationCode != nil && *u.ConfirmationCode == code {
			u.IsVerified = true
			u.ConfirmationCode = nil
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *FakeStore) SetConfirmationCode(_ context.Context, userID, code string) error {
	if err := f.fail("SetConfirmationCode"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.Users[userID]; ok {
		u.ConfirmationCode = &code
	}
	return nil
}

func (f *FakeStore) UpdateUserRole(_ context.Context, userID, role string) (*model.User, error) {
	if err := f.fail("UpdateUserRole"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Role = role
	cp := *u
	return &cp, nil
}

// ---- assignments ----

func (f *FakeStore) AssignmentForUser(_ context.Context, userID string) (*model.UserActivity, error) {
	if err := f.fail("AssignmentForUser"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *model.UserActivity
	for _, ua := range f.Links {
		if ua.UserID == userID && (found == nil || ua.CreatedAt.After(found.CreatedAt)) {
			found = ua
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (f *FakeStore) CreateAssignment(_ context.Context, ua *model.UserActivity) error {
	if err := f.fail("CreateAssignment"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ua.ID = idOr(ua.ID)
	ua.CreatedAt = time.Now()
	cp := *ua
	f.Links[ua.ID] = &cp
	return nil
}

func (f *FakeStore) UpdateAssignment(_ context.Context, id, activityID string) (*model.UserActivity, error) {
	if err := f.fail("UpdateAssignment"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ua, ok := f.Links[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	ua.ActivityID = activityID
	cp := *ua
	return &cp, nil
}

func (f *FakeStore) IsLinked(_ context.Context, userID, activityID string) (bool, error) {
	if err := f.fail("IsLinked"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ua := range f.Links {
		if ua.UserID == userID && ua.ActivityID == activityID {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeStore) LeastLoadedUser(_ context.Context, activityID string) (string, error) {
	if err := f.fail("LeastLoadedUser"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	load := map[string]int{}
	for _, ua := range f.Links {
		if ua.ActivityID == activityID {
			load[ua.UserID] = 0
		}
	}
	if len(load) == 0 {
		return "", store.ErrNotFound
	}
	for _, t := range f.Tasks {
		if _, ok := load[t.UserID]; ok && t.ActivityID == activityID && t.Status != model.TaskStatusFinished {
			load[t.UserID]++
		}
	}
	best := ""
	for id, n := range load {
		if best == "" || n < load[best] || (n == load[best] && id < best) {
			best = id
		}
	}
	return best, nil
}

// ---- catalog ----

func (f *FakeStore) ActivityExists(_ context.Context, id string) (bool, error) {
	if err := f.fail("ActivityExists"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Activities[id]
	return ok, nil
}

func (f *FakeStore) ProblemExists(_ context.Context, id string) (bool, error) {
	if err := f.fail("ProblemExists"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Problems[id]
	return ok, nil
}

func (f *FakeStore) ListActivities(context.Context) ([]model.Activity, error) {
	if err := f.fail("ListActivities"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Activity, 0, len(f.Activities))
	for _, a := range f.Activities {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (f *FakeStore) ListProblems(context.Context) ([]model.Problem, error) {
	if err := f.fail("ListProblems"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Problem, 0, len(f.Problems))
	for _, p := range f.Problems {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// ---- tasks ----

func (f *FakeStore) CreateTask(_ context.Context, t *model.Task) error {
	if err := f.fail("CreateTask"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = idOr(t.ID)
	t.CreatedAt = time.Now()
	cp := *t
	f.Tasks[t.ID] = &cp
	return nil
}

func (f *FakeStore) TaskByID(_ context.Context, id string) (*model.Task, error) {
	if err := f.fail("TaskByID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *FakeStore) TaskWithReports(ctx context.Context, id string) (*model.Task, error) {
	if err := f.fail("TaskWithReports"); err != nil {
		return nil, err
	}
	t, err := f.TaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.Reports {
		if r.TaskID == id {
			t.Reports = append(t.Reports, *r)
		}
	}
	return t, nil
}

func (f *FakeStore) summaries(userID string) []model.TaskSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TaskSummary
	for _, t := range f.Tasks {
		if userID != "" && t.UserID != userID {
			continue
		}
		out = append(out, model.TaskSummary{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.GeneralDescription,
			DueDate:     t.DueDate,
			Status:      t.Status,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out
}

func (f *FakeStore) ListTasks(context.Context) ([]model.TaskSummary, error) {
	if err := f.fail("ListTasks"); err != nil {
		return nil, err
	}
	return f.summaries(""), nil
}

func (f *FakeStore) ListTasksByUser(_ context.Context, userID string) ([]model.TaskSummary, error) {
	if err := f.fail("ListTasksByUser"); err != nil {
		return nil, err
	}
	return f.summaries(userID), nil
}

// ---- task logs ----

func (f *FakeStore) CreateTaskLog(_ context.Context, l *model.TaskLog) error {
	if err := f.fail("CreateTaskLog"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = idOr(l.ID)
	cp := *l
	f.Logs[l.ID] = &cp
	return nil
}

func (f *FakeStore) TaskLogByID(_ context.Context, id string) (*model.TaskLog, error) {
	if err := f.fail("TaskLogByID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.Logs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *FakeStore) activeLog(match func(*model.TaskLog) bool) (*model.TaskLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.Logs {
		if l.InProgress && match(l) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *FakeStore) ActiveLogForTask(_ context.Context, taskID string) (*model.TaskLog, error) {
	if err := f.fail("ActiveLogForTask"); err != nil {
		return nil, err
	}
	return f.activeLog(func(l *model.TaskLog) bool { return l.TaskID == taskID })
}

func (f *FakeStore) ActiveLogForUser(_ context.Context, userID string) (*model.TaskLog, error) {
	if err := f.fail("ActiveLogForUser"); err != nil {
		return nil, err
	}
	return f.activeLog(func(l *model.TaskLog) bool { return l.UserID == userID })
}

func (f *FakeStore) FinishTaskLog(_ context.Context, logID, image string, at time.Time) (bool, error) {
	if err := f.fail("FinishTaskLog"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.Logs[logID]
	if !ok || !l.InProgress {
		return false, nil
	}
	l.InProgress = false
	l.FinishedAt = &at
	l.ImageConfirmation = &image
	if t, ok := f.Tasks[l.TaskID]; ok {
		t.Status = model.TaskStatusFinished
	}
	return true, nil
}

// ---- reports ----

func (f *FakeStore) CreateReport(_ context.Context, r *model.Report) error {
	if err := f.fail("CreateReport"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = idOr(r.ID)
	cp := *r
	f.Reports = append(f.Reports, &cp)
	return nil
}
