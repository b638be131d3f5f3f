package domain

import (
	"time"

	"github.com/google/uuid"
)

// StageChangeEvent records one stage transition of a cage. It lives only in the notification log.
type StageChangeEvent struct {
	CageCode  string     `json:"cageCode"`
	From      Stage      `json:"from"`
	To        Stage      `json:"to"`
	Timestamp time.Time  `json:"timestamp"`
	UserID    *uuid.UUID `json:"userId,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}
