package domain

import (
	"time"

	"github.com/google/uuid"
)

// Hospital owns cages. TaxID is unique when present, whether the hospital is active or not.
type Hospital struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	TaxID     *string   `json:"taxId,omitempty"`
	Address   *string   `json:"address,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewHospital creates an active hospital with a fresh identity.
func NewHospital(name string, now time.Time) Hospital {
	return Hospital{
		ID:        uuid.New(),
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HospitalUpdate carries the fields of a partial hospital update; nil means unchanged.
type HospitalUpdate struct {
	Name    *string `json:"name"`
	TaxID   *string `json:"taxId"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Active  *bool   `json:"active"`
}

// Apply returns a copy of h with the non-nil fields of u applied.
func (u HospitalUpdate) Apply(h Hospital, now time.Time) Hospital {
	if u.Name != nil {
		h.Name = *u.Name
	}
	if u.TaxID != nil {
		h.TaxID = normalizeOptional(*u.TaxID)
	}
	if u.Address != nil {
		h.Address = normalizeOptional(*u.Address)
	}
	if u.Phone != nil {
		h.Phone = normalizeOptional(*u.Phone)
	}
	if u.Email != nil {
		h.Email = normalizeOptional(*u.Email)
	}
	if u.Active != nil {
		h.Active = *u.Active
	}
	h.UpdatedAt = now
	return h
}
