package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StepKind is a timed laundry processing step.
type StepKind string

const (
	StepSorting StepKind = "separacao"
	StepWashing StepKind = "lavagem"
	StepDrying  StepKind = "secagem"
	StepFolding StepKind = "dobra"
)

// StepKinds lists the processing steps in their usual order.
func StepKinds() []StepKind {
	return []StepKind{StepSorting, StepWashing, StepDrying, StepFolding}
}

// Valid reports whether k is a defined step kind.
func (k StepKind) Valid() bool {
	switch k {
	case StepSorting, StepWashing, StepDrying, StepFolding:
		return true
	}
	return false
}

// ParseStepKind accepts a stored label, case-insensitively.
func ParseStepKind(raw string) (StepKind, error) {
	kind := StepKind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", InvalidInputf("unknown process step %q", raw)
	}
	return kind, nil
}

// ProcessStep is one processing step applied to a cage. A nil EndedAt means in progress.
type ProcessStep struct {
	ID        uuid.UUID  `json:"id"`
	CageID    uuid.UUID  `json:"cageId"`
	Kind      StepKind   `json:"kind"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt"`
	MachineID *string    `json:"machineId,omitempty"`
	UserID    *uuid.UUID `json:"userId,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// Completed reports whether both ends of the step are known.
func (p ProcessStep) Completed() bool {
	return p.EndedAt != nil && !p.StartedAt.IsZero()
}

// Duration returns the elapsed time of a completed step.
func (p ProcessStep) Duration() (time.Duration, bool) {
	if !p.Completed() {
		return 0, false
	}
	return p.EndedAt.Sub(p.StartedAt), true
}

// ProcessStepUpdate carries a step closing update; nil means unchanged.
type ProcessStepUpdate struct {
	EndedAt   *time.Time `json:"endedAt"`
	MachineID *string    `json:"machineId"`
	Notes     *string    `json:"notes"`
}
