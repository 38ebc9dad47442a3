package model

import "time"

type Status string

const (
	Sent     Status = "Sent"
	Received Status = "Received"
	Failed   Status = "Failed"
)

// Valid reports whether s is one of the statuses a record may carry.
func (s Status) Valid() bool {
	switch s {
	case Sent, Received, Failed:
		return true
	}
	return false
}

// Record is one sent or received message event. Records are never updated.
type Record struct {
	ID        int64     `db:"id" json:"id"`
	Sender    string    `db:"sender" json:"sender"`
	Receiver  string    `db:"receiver" json:"receiver"`
	Content   string    `db:"content" json:"content"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Status    Status    `db:"status" json:"status"`
}
