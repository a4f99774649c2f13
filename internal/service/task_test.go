package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smart-check/internal/apperr"
	"smart-check/internal/model"
	"smart-check/internal/testutil"
)

type recordingMirror struct {
	mu      sync.Mutex
	tasks   []string
	reports []string
}

func (m *recordingMirror) MirrorTask(_ context.Context, t *model.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, t.ID)
}

func (m *recordingMirror) MirrorReport(_ context.Context, r *model.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r.ID)
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("kind = %s, want %s (err=%v)", got, kind, err)
	}
}

func newTask(activityID, ownerID string) model.NewTask {
	return model.NewTask{
		Title:               "Verificar extintores",
		UserID:              ownerID,
		ActivityID:          activityID,
		Tag:                 "seguranca",
		DueDate:             time.Now().Add(48 * time.Hour),
		Image:               "img",
		GeneralDescription:  "Bloco A",
		SecurityDescription: "Usar EPI",
	}
}

func TestCreateTaskWithOwner(t *testing.T) {
	st := testutil.NewFakeStore()
	mirror := &recordingMirror{}
	svc := NewTaskService(st, mirror)
	act := st.AddActivity("Inspeção")
	ana := st.AddUser(model.User{Name: "Ana", Email: "ana@example.com"})
	st.Link(ana.ID, act.ID)

	task, err := svc.CreateTask(context.Background(), newTask(act.ID, ana.ID))
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.UserID != ana.ID || task.Status != model.TaskStatusOpen {
		t.Fatalf("unexpected task: %+v", task)
	}
	if len(mirror.tasks) != 1 || mirror.tasks[0] != task.ID {
		t.Fatalf("task not mirrored: %v", mirror.tasks)
	}
}

func TestCreateTaskRejections(t *testing.T) {
	st := testutil.NewFakeStore()
	svc := NewTaskService(st, nil)
	act := st.AddActivity("Inspeção")
	ana := st.AddUser(model.User{Name: "Ana", Email: "ana@example.com"})
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, newTask("4c1d2e3f-0000-4000-8000-000000000000", ana.ID))
	wantKind(t, err, apperr.KindNotFound)
	if err.Error() != "Atividade (activity_id) não encontrada." {
		t.Fatalf("message = %q", err.Error())
	}

	_, err = svc.CreateTask(ctx, newTask(act.ID, "4c1d2e3f-0000-4000-8000-000000000000"))
	wantKind(t, err, apperr.KindNotFound)
	if err.Error() != "Usuário (user_id) não encontrado." {
		t.Fatalf("message = %q", err.Error())
	}

	_, err = svc.CreateTask(ctx, newTask(act.ID, ana.ID))
	wantKind(t, err, apperr.KindConflict)

	_, err = svc.CreateTask(ctx, newTask(act.ID, ""))
	wantKind(t, err, apperr.KindNotFound)

	st.FailOn["ActivityExists"] = errors.New("connection reset")
	_, err = svc.CreateTask(ctx, newTask(act.ID, ana.ID))
	wantKind(t, err, apperr.KindInternal)

	if len(st.Tasks) != 0 {
		t.Fatalf("no task should be stored, got %d", len(st.Tasks))
	}
}

func TestCreateTaskAutoAssignsLeastLoaded(t *testing.T) {
	st := testutil.NewFakeStore()
	svc := NewTaskService(st, nil)
	act := st.AddActivity("Inspeção")
	busy := st.AddUser(model.User{Name: "Busy", Email: "busy@example.com"})
	free := st.AddUser(model.User{Name: "Free", Email: "free@example.com"})
	outsider := st.AddUser(model.User{Name: "Out", Email: "out@example.com"})
	st.Link(busy.ID, act.ID)
	st.Link(free.ID, act.ID)
	st.AddTask(model.Task{UserID: busy.ID, ActivityID: act.ID})
	st.AddTask(model.Task{UserID: free.ID, ActivityID: act.ID, Status: model.TaskStatusFinished})

	task, err := svc.CreateTask(context.Background(), newTask(act.ID, ""))
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.UserID != free.ID {
		t.Fatalf("owner = %s, want least loaded %s", task.UserID, free.ID)
	}
	if task.UserID == outsider.ID {
		t.Fatalf("owner must be linked to the activity")
	}
}

type lifecycleFixture struct {
	st    *testutil.FakeStore
	svc   *TaskService
	owner *model.User
	task  *model.Task
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	st := testutil.NewFakeStore()
	act := st.AddActivity("Inspeção")
	owner := st.AddUser(model.User{Name: "Ana", Email: "ana@example.com"})
	task := st.AddTask(model.Task{UserID: owner.ID, ActivityID: act.ID, Title: "T"})
	return &lifecycleFixture{st: st, svc: NewTaskService(st, nil), owner: owner, task: task}
}

func TestStartTaskGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("missing task", func(t *testing.T) {
		f := newLifecycleFixture(t)
		_, err := f.svc.StartTask(ctx, "4c1d2e3f-0000-4000-8000-000000000000", f.owner.ID)
		wantKind(t, err, apperr.KindNotFound)
	})

	t.Run("reported", func(t *testing.T) {
		f := newLifecycleFixture(t)
		f.st.Tasks[f.task.ID].Status = model.TaskStatusReported
		_, err := f.svc.StartTask(ctx, f.task.ID, f.owner.ID)
		wantKind(t, err, apperr.KindConflict)
	})

	t.Run("finished before owner check", func(t *testing.T) {
		f := newLifecycleFixture(t)
		f.st.Tasks[f.task.ID].Status = model.TaskStatusFinished
		_, err := f.svc.StartTask(ctx, f.task.ID, "4c1d2e3f-0000-4000-8000-000000000000")
		wantKind(t, err, apperr.KindConflict)
	})

	t.Run("wrong owner", func(t *testing.T) {
		f := newLifecycleFixture(t)
		_, err := f.svc.StartTask(ctx, f.task.ID, "4c1d2e3f-0000-4000-8000-000000000000")
		wantKind(t, err, apperr.KindAuthorization)
	})

	t.Run("already active", func(t *testing.T) {
		f := newLifecycleFixture(t)
		if _, err := f.svc.StartTask(ctx, f.task.ID, f.owner.ID); err != nil {
			t.Fatalf("first start: %v", err)
		}
		_, err := f.svc.StartTask(ctx, f.task.ID, f.owner.ID)
		wantKind(t, err, apperr.KindConflict)
		if err.Error() != msgTaskInProgress {
			t.Fatalf("message = %q", err.Error())
		}
	})
}

func TestStartFinishRoundTrip(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	log, err := f.svc.StartTask(ctx, f.task.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	if !log.InProgress || log.TaskID != f.task.ID || log.UserID != f.owner.ID {
		t.Fatalf("unexpected log: %+v", log)
	}

	progress, err := f.svc.GetTaskProgress(ctx, log.ID)
	if err != nil || progress.ID != log.ID {
		t.Fatalf("GetTaskProgress: %v %v", progress, err)
	}

	if err := f.svc.FinishTask(ctx, log.ID, "data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("FinishTask: %v", err)
	}
	stored := f.st.Logs[log.ID]
	if stored.InProgress || stored.FinishedAt == nil || *stored.ImageConfirmation != "data:image/png;base64,AAAA" {
		t.Fatalf("log not closed: %+v", stored)
	}
	if f.st.Tasks[f.task.ID].Status != model.TaskStatusFinished {
		t.Fatalf("task status = %s", f.st.Tasks[f.task.ID].Status)
	}

	err = f.svc.FinishTask(ctx, log.ID, "again")
	wantKind(t, err, apperr.KindConflict)

	_, err = f.svc.GetTaskProgress(ctx, log.ID)
	wantKind(t, err, apperr.KindConflict)
	if err.Error() != "Esta tarefa já foi finalizada." {
		t.Fatalf("message = %q", err.Error())
	}

	_, err = f.svc.StartTask(ctx, f.task.ID, f.owner.ID)
	wantKind(t, err, apperr.KindConflict)
}

func TestFinishUnknownLog(t *testing.T) {
	f := newLifecycleFixture(t)
	err := f.svc.FinishTask(context.Background(), "4c1d2e3f-0000-4000-8000-000000000000", "img")
	wantKind(t, err, apperr.KindNotFound)
	if err.Error() != "Esta tarefa ainda não foi iniciada." {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestFinishLosesRace(t *testing.T) {
	f := newLifecycleFixture(t)
	l := f.st.AddLog(model.TaskLog{TaskID: f.task.ID, UserID: f.owner.ID, InProgress: true})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.FinishTask(ctx, l.ID, "img")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch apperr.KindOf(err) {
		case apperr.KindUnknown:
			if err == nil {
				wins++
			}
		case apperr.KindConflict:
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one finisher must win, got %d", wins)
	}
}

func TestGetTaskIncludesReports(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	got, err := f.svc.GetTask(ctx, f.task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Reports == nil || len(got.Reports) != 0 {
		t.Fatalf("reports should be an empty list, got %#v", got.Reports)
	}

	f.st.Reports = append(f.st.Reports, &model.Report{ID: "r1", TaskID: f.task.ID, Description: "x"})
	got, err = f.svc.GetTask(ctx, f.task.ID)
	if err != nil || len(got.Reports) != 1 {
		t.Fatalf("GetTask with report: %v %v", got, err)
	}

	_, err = f.svc.GetTask(ctx, "4c1d2e3f-0000-4000-8000-000000000000")
	wantKind(t, err, apperr.KindNotFound)
	if err.Error() != "Tarefa não encontrada" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestListTasks(t *testing.T) {
	f := newLifecycleFixture(t)
	f.st.AddTask(model.Task{UserID: "someone-else", GeneralDescription: "outra"})
	ctx := context.Background()

	all, err := f.svc.ListTasks(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListTasks: %d %v", len(all), err)
	}
	mine, err := f.svc.ListTasksForUser(ctx, f.owner.ID)
	if err != nil || len(mine) != 1 || mine[0].ID != f.task.ID {
		t.Fatalf("ListTasksForUser: %v %v", mine, err)
	}
	none, err := f.svc.ListTasksForUser(ctx, "4c1d2e3f-0000-4000-8000-000000000000")
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("unknown user should get an empty list: %#v %v", none, err)
	}

	f.st.FailOn["ListTasks"] = errors.New("boom")
	_, err = f.svc.ListTasks(ctx)
	wantKind(t, err, apperr.KindInternal)
}
