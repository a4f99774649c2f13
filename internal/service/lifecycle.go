package service

import (
	"smart-check/internal/apperr"
	"smart-check/internal/model"
)

// State is the lifecycle position of a task. It is derived, never stored:
// the task row keeps open/reported/finished and IN_PROGRESS means an
// active progress log exists.
type State string

const (
	StateOpen       State = "OPEN"
	StateInProgress State = "IN_PROGRESS"
	StateFinished   State = "FINISHED"
	StateReported   State = "REPORTED"
)

type Event string

const (
	EventStart  Event = "start"
	EventFinish Event = "finish"
)

// transitions lists the only legal moves. Anything else is a conflict.
var transitions = map[State]map[Event]State{
	StateOpen:       {EventStart: StateInProgress},
	StateInProgress: {EventFinish: StateFinished},
}

func StateOf(t *model.Task, active *model.TaskLog) State {
	switch t.Status {
	case model.TaskStatusReported:
		return StateReported
	case model.TaskStatusFinished:
		return StateFinished
	}
	if active != nil && active.InProgress {
		return StateInProgress
	}
	return StateOpen
}

const (
	msgTaskReported   = "Esta tarefa foi reportada e não pode ser iniciada."
	msgTaskFinished   = "Esta tarefa já foi finalizada."
	msgTaskInProgress = "Esta tarefa já está em andamento."
	msgTaskNotStarted = "Esta tarefa ainda não foi iniciada."
)

// Transition returns the next state or a conflict explaining why ev is not
// allowed from s.
func Transition(s State, ev Event) (State, error) {
	if next, ok := transitions[s][ev]; ok {
		return next, nil
	}
	switch s {
	case StateReported:
		return s, apperr.Conflict(msgTaskReported)
	case StateFinished:
		return s, apperr.Conflict(msgTaskFinished)
	case StateInProgress:
		return s, apperr.Conflict(msgTaskInProgress)
	default:
		return s, apperr.Conflict(msgTaskNotStarted)
	}
}
