package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransportKind is the direction of a transport leg.
type TransportKind string

const (
	TransportOutbound TransportKind = "ida"
	TransportReturn   TransportKind = "volta"
)

// Valid reports whether k is a defined transport kind.
func (k TransportKind) Valid() bool {
	return k == TransportOutbound || k == TransportReturn
}

// ParseTransportKind accepts a stored label, case-insensitively.
func ParseTransportKind(raw string) (TransportKind, error) {
	kind := TransportKind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", InvalidInputf("unknown transport kind %q", raw)
	}
	return kind, nil
}

// TransportStatus tracks whether a leg is still moving.
type TransportStatus string

const (
	TransportInTransit TransportStatus = "em_transporte"
	TransportDelivered TransportStatus = "entregue"
)

// Valid reports whether s is a defined transport status.
func (s TransportStatus) Valid() bool {
	return s == TransportInTransit || s == TransportDelivered
}

// ParseTransportStatus accepts a stored label, case-insensitively.
func ParseTransportStatus(raw string) (TransportStatus, error) {
	status := TransportStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", InvalidInputf("unknown transport status %q", raw)
	}
	return status, nil
}

// Transport is one directional movement of a cage between hospital and laundry.
type Transport struct {
	ID         uuid.UUID       `json:"id"`
	CageID     uuid.UUID       `json:"cageId"`
	Kind       TransportKind   `json:"kind"`
	Driver     *string         `json:"driver,omitempty"`
	Vehicle    *string         `json:"vehicle,omitempty"`
	DepartedAt time.Time       `json:"departedAt"`
	ArrivedAt  *time.Time      `json:"arrivedAt"`
	Status     TransportStatus `json:"status"`
}

// TransportUpdate carries a partial transport update; nil means unchanged.
type TransportUpdate struct {
	Driver    *string          `json:"driver"`
	Vehicle   *string          `json:"vehicle"`
	ArrivedAt *time.Time       `json:"arrivedAt"`
	Status    *TransportStatus `json:"status"`
}
