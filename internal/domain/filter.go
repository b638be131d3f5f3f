package domain

import (
	"time"

	"github.com/google/uuid"
)

// CageFilter narrows cage listings. Zero values mean "any".
type CageFilter struct {
	Stage         *Stage
	HospitalID    *uuid.UUID
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit, Offset int
}

// WeighingFilter narrows weighing listings.
type WeighingFilter struct {
	CageID        *uuid.UUID
	Kind          *WeighingKind
	Limit, Offset int
}

// TransportFilter narrows transport listings.
type TransportFilter struct {
	CageID        *uuid.UUID
	Limit, Offset int
}

// ProcessStepFilter narrows process step listings.
type ProcessStepFilter struct {
	CageID        *uuid.UUID
	StartedFrom   *time.Time
	StartedTo     *time.Time
	Limit, Offset int
}

// Page applies offset and limit to n items, returning the slice bounds. A non-positive limit means no limit.
func Page(n, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
