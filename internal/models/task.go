package models

import (
	"strings"
	"time"
)

// Stage adalah posisi task pada board.
type Stage int

const (
	StageBacklog Stage = iota
	StageTodo
	StageOngoing
	StageDone
)

const (
	MinStage = StageBacklog
	MaxStage = StageDone
)

func (s Stage) Valid() bool { return s >= MinStage && s <= MaxStage }

func (s Stage) String() string {
	switch s {
	case StageBacklog:
		return "backlog"
	case StageTodo:
		return "todo"
	case StageOngoing:
		return "ongoing"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Shift returns s moved by delta and whether the result is still on the board.
func (s Stage) Shift(delta int) (Stage, bool) {
	next := s + Stage(delta)
	return next, next.Valid()
}

type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) Valid() bool { return p >= PriorityLow && p <= PriorityHigh }

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(strings.ToLower(s)); d {
	case DirectionForward, DirectionBackward:
		return d, true
	default:
		return "", false
	}
}

func (d Direction) Delta() int {
	if d == DirectionBackward {
		return -1
	}
	return 1
}

type Task struct {
	ID        string     `json:"id" bson:"_id"`
	Name      string     `json:"name" bson:"name"`
	Stage     Stage      `json:"stage" bson:"stage"`
	Priority  Priority   `json:"priority" bson:"priority"`
	Deadline  *time.Time `json:"deadline,omitempty" bson:"deadline,omitempty"`
	UserID    string     `json:"user_id" bson:"user_id"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

type TaskPatch struct {
	Name     *string
	Priority *Priority
	Deadline *time.Time
}

func (p TaskPatch) Empty() bool {
	return p.Name == nil && p.Priority == nil && p.Deadline == nil
}

// TaskFilter membatasi list task berdasarkan rentang deadline (inklusif).
type TaskFilter struct {
	DeadlineFrom *time.Time
	DeadlineTo   *time.Time
}

// Match is the in-process form of the filter, used by stores without a query language.
func (f TaskFilter) Match(t *Task) bool {
	if f.DeadlineFrom == nil && f.DeadlineTo == nil {
		return true
	}
	if t.Deadline == nil {
		return false
	}
	if f.DeadlineFrom != nil && t.Deadline.Before(*f.DeadlineFrom) {
		return false
	}
	if f.DeadlineTo != nil && t.Deadline.After(*f.DeadlineTo) {
		return false
	}
	return true
}

type TaskStats struct {
	Total      int            `json:"total"`
	ByStage    map[string]int `json:"by_stage"`
	ByPriority map[string]int `json:"by_priority"`
	Overdue    int            `json:"overdue"`
}

func NewTaskStats(tasks []Task, now time.Time) TaskStats {
	stats := TaskStats{
		ByStage:    map[string]int{},
		ByPriority: map[string]int{},
	}
	for s := MinStage; s <= MaxStage; s++ {
		stats.ByStage[s.String()] = 0
	}
	for p := PriorityLow; p <= PriorityHigh; p++ {
		stats.ByPriority[p.String()] = 0
	}
	for i := range tasks {
		t := &tasks[i]
		stats.Total++
		stats.ByStage[t.Stage.String()]++
		stats.ByPriority[t.Priority.String()]++
		if t.Stage != StageDone && t.Deadline != nil && t.Deadline.Before(now) {
			stats.Overdue++
		}
	}
	return stats
}

const (
	EventTaskCreated   = "task.created"
	EventTaskUpdated   = "task.updated"
	EventTaskMoved     = "task.moved"
	EventTaskCompleted = "task.completed"
	EventTaskDeleted   = "task.deleted"
)

// TaskEvent dikirim ke koneksi websocket milik owner task.
type TaskEvent struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id"`
	Task   *Task  `json:"task,omitempty"`
}
