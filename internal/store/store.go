// Package store is the relational store adapter. It owns every SQL statement
// the API issues; services only see typed methods, ErrNotFound and
// ErrDuplicate.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart-check/internal/model"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

type Store struct {
	db        *gorm.DB
	procedure string
}

type Option func(*Store)

// WithProcedure makes LeastLoadedUser call the named stored procedure
// instead of running the ranking query itself.
func WithProcedure(name string) Option {
	return func(s *Store) { s.procedure = name }
}

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create user: %w", ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).Order("name").Find(&users).Error
	return users, err
}

// VerifyUser marks the user verified when both email and code match, and
// clears the code. ErrNotFound means nothing matched.
func (s *Store) VerifyUser(ctx context.Context, email, code string) (*model.User, error) {
	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ? AND confirmation_code = ?", email, code).
		Updates(map[string]any{"is_verified": true, "confirmation_code": nil})
	if res.Error != nil {
		return nil, fmt.Errorf("verify user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.UserByEmail(ctx, email)
}

func (s *Store) SetConfirmationCode(ctx context.Context, userID, code string) error {
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("confirmation_code", code).Error
}

func (s *Store) UpdateUserRole(ctx context.Context, userID, role string) (*model.User, error) {
	res := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("role", role)
	if res.Error != nil {
		return nil, fmt.Errorf("update role: %w", res.Error)
	}
	return s.UserByID(ctx, userID)
}

// ---- assignments ----

func (s *Store) AssignmentForUser(ctx context.Context, userID string) (*model.UserActivity, error) {
	var ua model.UserActivity
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").First(&ua).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ua, nil
}

func (s *Store) CreateAssignment(ctx context.Context, ua *model.UserActivity) error {
	if err := s.db.WithContext(ctx).Create(ua).Error; err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// UpdateAssignment points an existing link at another activity.
func (s *Store) UpdateAssignment(ctx context.Context, id, activityID string) (*model.UserActivity, error) {
	// MySQL reports zero affected rows for a no-op update, so look the row up first.
	var ua model.UserActivity
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&ua).Error; err != nil {
		return nil, notFound(err)
	}
	if err := s.db.WithContext(ctx).Model(&ua).Update("activity_id", activityID).Error; err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}
	return &ua, nil
}

func (s *Store) IsLinked(ctx context.Context, userID, activityID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.UserActivity{}).
		Where("user_id = ? AND activity_id = ?", userID, activityID).
		Count(&n).Error
	return n > 0, err
}

const leastLoadedSQL = `SELECT ua.user_id AS user_id
FROM user_activitys ua
LEFT JOIN tasks t ON t.user_id = ua.user_id
	AND t.activity_id = ua.activity_id
	AND COALESCE(t.status, 'open') <> 'finished'
WHERE ua.activity_id = ?
GROUP BY ua.user_id
ORDER BY COUNT(t.id) ASC, ua.user_id ASC
LIMIT 1`

// LeastLoadedUser picks, among users linked to the activity, the one with
// the fewest unfinished tasks in that activity. A NULL status counts as
// open. ErrNotFound when nobody is linked.
func (s *Store) LeastLoadedUser(ctx context.Context, activityID string) (string, error) {
	var rows []struct {
		UserID string `gorm:"column:user_id"`
	}
	q := s.db.WithContext(ctx)
	var err error
	if s.procedure != "" {
		err = q.Raw("CALL "+s.procedure+"(?)", activityID).Scan(&rows).Error
	} else {
		err = q.Raw(leastLoadedSQL, activityID).Scan(&rows).Error
	}
	if err != nil {
		return "", fmt.Errorf("least loaded user: %w", err)
	}
	if len(rows) == 0 || rows[0].UserID == "" {
		return "", ErrNotFound
	}
	return rows[0].UserID, nil
}

// ---- catalog ----

func (s *Store) ActivityExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, &model.Activity{}, id)
}

func (s *Store) ProblemExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, &model.Problem{}, id)
}

func (s *Store) exists(ctx context.Context, m any, id string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(m).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (s *Store) ListActivities(ctx context.Context) ([]model.Activity, error) {
	var out []model.Activity
	err := s.db.WithContext(ctx).Order("label").Find(&out).Error
	return out, err
}

func (s *Store) ListProblems(ctx context.Context) ([]model.Problem, error) {
	var out []model.Problem
	err := s.db.WithContext(ctx).Order("label").Find(&out).Error
	return out, err
}

// ---- tasks ----

func (s *Store) CreateTask(ctx context.Context, t *model.Task) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *Store) TaskByID(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// TaskWithReports loads the task and every report filed against it.
func (s *Store) TaskWithReports(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	err := s.db.WithContext(ctx).
		Preload("Reports", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *Store) summaries(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.Task{}).
		Select("id, title, general_description AS description, due_date, status").
		Order("due_date")
}

func (s *Store) ListTasks(ctx context.Context) ([]model.TaskSummary, error) {
	var out []model.TaskSummary
	err := s.summaries(ctx).Scan(&out).Error
	return out, err
}

func (s *Store) ListTasksByUser(ctx context.Context, userID string) ([]model.TaskSummary, error) {
	var out []model.TaskSummary
	err := s.summaries(ctx).Where("user_id = ?", userID).Scan(&out).Error
	return out, err
}

// ---- task logs ----

func (s *Store) CreateTaskLog(ctx context.Context, l *model.TaskLog) error {
	if err := s.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("create task log: %w", err)
	}
	return nil
}

func (s *Store) TaskLogByID(ctx context.Context, id string) (*model.TaskLog, error) {
	var l model.TaskLog
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (s *Store) ActiveLogForTask(ctx context.Context, taskID string) (*model.TaskLog, error) {
	return s.activeLog(ctx, "task_id = ?", taskID)
}

func (s *Store) ActiveLogForUser(ctx context.Context, userID string) (*model.TaskLog, error) {
	return s.activeLog(ctx, "user_id = ?", userID)
}

func (s *Store) activeLog(ctx context.Context, cond string, arg string) (*model.TaskLog, error) {
	var l model.TaskLog
	err := s.db.WithContext(ctx).Where(cond, arg).Where("in_progress = ?", true).
		Order("started_at DESC").First(&l).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

// FinishTaskLog closes the log only if it is still in progress and marks
// its task finished, in one transaction. It reports false when another
// caller closed the log first.
func (s *Store) FinishTaskLog(ctx context.Context, logID, image string, at time.Time) (bool, error) {
	finished := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.TaskLog{}).
			Where("id = ? AND in_progress = ?", logID, true).
			Updates(map[string]any{
				"in_progress":        false,
				"finished_at":        at,
				"image_confirmation": image,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		var l model.TaskLog
		if err := tx.Where("id = ?", logID).First(&l).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Task{}).Where("id = ?", l.TaskID).
			Update("status", model.TaskStatusFinished).Error; err != nil {
			return err
		}
		finished = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("finish task log: %w", err)
	}
	return finished, nil
}

// ---- reports ----

func (s *Store) CreateReport(ctx context.Context, r *model.Report) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}
