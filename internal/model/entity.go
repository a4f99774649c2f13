package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	TaskStatusOpen     = "open"
	TaskStatusReported = "reported"
	TaskStatusFinished = "finished"
)

type User struct {
	ID               string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name             string    `gorm:"type:varchar(50);not null" json:"name"`
	Email            string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`
	Password         string    `gorm:"not null" json:"-"`
	Role             string    `gorm:"type:varchar(16);not null" json:"role"`
	IsVerified       bool      `gorm:"not null" json:"is_verified"`
	ConfirmationCode *string   `gorm:"type:varchar(6)" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}

// Activity is read-only reference data. The table name is owned by the store.
type Activity struct {
	ID    string `gorm:"type:char(36);primaryKey" json:"id"`
	Label string `gorm:"type:varchar(100);not null" json:"label"`
}

type Problem struct {
	ID    string `gorm:"type:char(36);primaryKey" json:"id"`
	Label string `gorm:"type:varchar(100);not null" json:"label"`
}

// UserActivity authorizes a user to receive and start tasks of an activity.
type UserActivity struct {
	ID         string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     string    `gorm:"type:char(36);index;not null" json:"user_id"`
	ActivityID string    `gorm:"type:char(36);index;not null" json:"activity_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type Task struct {
	ID                  string    `gorm:"type:char(36);primaryKey" json:"id"`
	Title               string    `gorm:"type:varchar(50);not null" json:"title"`
	UserID              string    `gorm:"type:char(36);index;not null" json:"user_id"`
	ActivityID          string    `gorm:"type:char(36);index;not null" json:"activity_id"`
	Tag                 string    `gorm:"type:varchar(30)" json:"tag"`
	DueDate             time.Time `json:"due_date"`
	Image               string    `gorm:"type:text" json:"image"`
	GeneralDescription  string    `gorm:"type:text" json:"general_description"`
	SecurityDescription string    `gorm:"type:text" json:"security_description"`
	Status              string    `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt           time.Time `json:"created_at"`

	Reports []Report `gorm:"foreignKey:TaskID" json:"reports,omitempty"`
}

// TaskLog is one start-to-finish attempt at a task.
type TaskLog struct {
	ID                string     `gorm:"type:char(36);primaryKey" json:"id"`
	TaskID            string     `gorm:"type:char(36);index;not null" json:"task_id"`
	UserID            string     `gorm:"type:char(36);index;not null" json:"user_id"`
	StartedAt         time.Time  `gorm:"autoCreateTime" json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at"`
	InProgress        bool       `gorm:"not null" json:"in_progress"`
	ImageConfirmation *string    `gorm:"type:text" json:"image_confirmation"`
}

// Report is immutable once created.
type Report struct {
	ID          string    `gorm:"type:char(36);primaryKey" json:"id"`
	TaskID      string    `gorm:"type:char(36);index;not null" json:"task_id"`
	ProblemID   string    `gorm:"type:char(36);index;not null" json:"problem_id"`
	Description string    `gorm:"type:varchar(500);not null" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (User) TableName() string         { return "users" }
func (Activity) TableName() string     { return "activitys" }
func (Problem) TableName() string      { return "problems" }
func (UserActivity) TableName() string { return "user_activitys" }
func (Task) TableName() string         { return "tasks" }
func (TaskLog) TableName() string      { return "task_logs" }
func (Report) TableName() string       { return "reports" }

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error         { assignID(&u.ID); return nil }
func (a *Activity) BeforeCreate(*gorm.DB) error     { assignID(&a.ID); return nil }
func (p *Problem) BeforeCreate(*gorm.DB) error      { assignID(&p.ID); return nil }
func (l *UserActivity) BeforeCreate(*gorm.DB) error { assignID(&l.ID); return nil }
func (t *Task) BeforeCreate(*gorm.DB) error         { assignID(&t.ID); return nil }
func (l *TaskLog) BeforeCreate(*gorm.DB) error      { assignID(&l.ID); return nil }
func (r *Report) BeforeCreate(*gorm.DB) error       { assignID(&r.ID); return nil }
