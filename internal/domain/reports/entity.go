package reports

import (
	"encoding/json"
	"sort"
	"time"
)

// ID tipe untuk Report
type ReportID string

// Aggregate Root: Report, a persisted analysis result.
// Created by a successful remote write (direct or replayed from the
// queue); never mutated afterwards.
type Report struct {
	ID        ReportID        `json:"id"`
	UserID    string          `json:"user_id"`
	Tool      string          `json:"tool"`
	Result    json.RawMessage `json:"result"`
	Input     string          `json:"input,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Draft is a Report before the remote store assigns id and created_at.
type Draft struct {
	UserID string          `json:"user_id,omitempty"`
	Tool   string          `json:"tool"`
	Result json.RawMessage `json:"result"`
	Input  string          `json:"input,omitempty"`
}

// QueuedWriteItem is a not-yet-confirmed Report waiting in the local
// write queue. RetryCount is owned by the retry driver; the queue only
// stores and removes items.
type QueuedWriteItem struct {
	ClientID   string    `json:"client_id"`
	Payload    Draft     `json:"payload"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount int       `json:"retry_count"`
}

// SortNewestFirst orders reports by created_at descending. Document id
// descending breaks ties so lists stay deterministic while server
// timestamps are pending or collide.
func SortNewestFirst(list []Report) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}
