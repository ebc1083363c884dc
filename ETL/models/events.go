package models

import (
	"time"
)

// Типы событий запуска
const (
	EventStageStarted   = "stage_started"
	EventStageCompleted = "stage_completed"
	EventStageFailed    = "stage_failed"
)

// RunEvent - событие жизненного цикла этапа, рассылаемое подписчикам
type RunEvent struct {
	Type       string         `json:"type"`
	RunID      string         `json:"run_id"`
	Stage      string         `json:"stage"`
	Time       time.Time      `json:"time"`
	Rows       map[string]int `json:"rows,omitempty"`
	Violations int            `json:"violations,omitempty"`
	Error      string         `json:"error,omitempty"`
}
