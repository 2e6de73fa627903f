package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Activity is one completed interview or test session.
type Activity struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // "interview" or "test"
	Accuracy   float64   `json:"accuracy"`
	Difficulty string    `json:"difficulty,omitempty"` // empty for interviews
	CreatedAt  time.Time `json:"created_at"`
}

type CodingAttempt struct {
	ID        string    `json:"id"`
	Language  string    `json:"language"`
	Code      string    `json:"code"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"timestamp"`
}
