package model

import "time"

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ValidateEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  UserSummary `json:"user"`
	Token string      `json:"token,omitempty"`
}

type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type UserUpdate struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type AssignmentUpdate struct {
	ID       string `json:"id,omitempty"`
	Activity string `json:"activity"`
}

type UpdateUserRequest struct {
	User       *UserUpdate       `json:"user"`
	Assignment *AssignmentUpdate `json:"assignment"`
}

// UpdateUserResult is empty when the store returned no row for the assignment.
type UpdateUserResult struct {
	User       *User         `json:"user,omitempty"`
	Assignment *UserActivity `json:"assignment,omitempty"`
	Created    bool          `json:"-"`
}

type UserData struct {
	User       User          `json:"user"`
	Assignment *UserActivity `json:"assignment"`
}

type TaskLogRef struct {
	ID     string `json:"id"`
	TaskID string `json:"task_id"`
}

type MeResponse struct {
	TaskLog *TaskLogRef `json:"taskLog"`
}

type CreateTaskRequest struct {
	Title               string `json:"title"`
	UserID              string `json:"userId"`
	ActivityID          string `json:"activityId"`
	Tag                 string `json:"tag"`
	DueDate             string `json:"dueDate"`
	Image               string `json:"image"`
	GeneralDescription  string `json:"generalDescription"`
	SecurityDescription string `json:"securityDescription"`
}

// NewTask is a validated CreateTaskRequest.
type NewTask struct {
	Title               string
	UserID              string
	ActivityID          string
	Tag                 string
	DueDate             time.Time
	Image               string
	GeneralDescription  string
	SecurityDescription string
}

type TaskSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	Status      string    `json:"status"`
}

type StartTaskRequest struct {
	TaskID string `json:"taskId"`
	UserID string `json:"userId"`
}

type FinishTaskRequest struct {
	TaskLogID         string `json:"taskLogId"`
	ImageConfirmation string `json:"imageConfirmation"`
}

type CreateReportRequest struct {
	TaskID      string `json:"taskId"`
	ProblemID   string `json:"problemId"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// NewReport is a validated CreateReportRequest. A zero CreatedAt means now.
type NewReport struct {
	TaskID      string
	ProblemID   string
	Description string
	CreatedAt   time.Time
}
