package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCodePrefix is used for generated cage codes (GAIOL-001, GAIOL-002, ...).
const DefaultCodePrefix = "GAIOL"

// Cage is a physical transport unit of hospital laundry.
type Cage struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	HospitalID  uuid.UUID `json:"hospitalId"`
	Stage       Stage     `json:"stage"`
	QRReference *string   `json:"qrReference,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Notes       *string   `json:"notes,omitempty"`
}

// NewCage creates a cage in the Created stage.
func NewCage(code string, hospitalID uuid.UUID, notes *string, now time.Time) Cage {
	return Cage{
		ID:         uuid.New(),
		Code:       code,
		HospitalID: hospitalID,
		Stage:      StageCreated,
		CreatedAt:  now,
		Notes:      OptionalString(notes),
	}
}

// WithStage returns a copy of the cage moved to stage.
func (c Cage) WithStage(stage Stage) Cage {
	c.Stage = stage
	return c
}

// CageUpdate carries the editable cage fields; nil means unchanged.
type CageUpdate struct {
	HospitalID *uuid.UUID `json:"hospitalId"`
	Notes      *string    `json:"notes"`
}

// Apply returns a copy of c with the non-nil fields of u applied.
func (u CageUpdate) Apply(c Cage) Cage {
	if u.HospitalID != nil {
		c.HospitalID = *u.HospitalID
	}
	if u.Notes != nil {
		c.Notes = normalizeOptional(*u.Notes)
	}
	return c
}

// NextCode returns the code following last for prefix. An empty or unparsable last restarts at 1.
func NextCode(prefix, last string) string {
	next := 1
	if last != "" {
		idx := strings.LastIndex(last, "-")
		if idx >= 0 {
			if n, err := strconv.Atoi(last[idx+1:]); err == nil {
				next = n + 1
			}
		}
	}
	return fmt.Sprintf("%s-%03d", prefix, next)
}

// QRPayload is the content encoded into a cage's identity artifact.
type QRPayload struct {
	Code string `json:"codigo"`
	ID   string `json:"id"`
	URL  string `json:"url"`
}

// NewQRPayload builds the payload for c, resolving to <baseURL>/gaiolas/<id>.
func NewQRPayload(c Cage, baseURL string) QRPayload {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return QRPayload{
		Code: c.Code,
		ID:   c.ID.String(),
		URL:  fmt.Sprintf("%s/gaiolas/%s", base, c.ID),
	}
}

// Encode renders the payload as the JSON document printed on the label.
func (p QRPayload) Encode() ([]byte, error) {
	return json.Marshal(p)
}
