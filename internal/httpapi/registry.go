package httpapi

import (
	"net/http"

	"github.com/rpattn/cagetrack/internal/auth"
	"github.com/rpattn/cagetrack/internal/domain"
	"github.com/rpattn/cagetrack/internal/tracking"
)

type stagePayload struct {
	Stage string  `json:"stage"`
	Notes *string `json:"notes"`
}

func (s *server) createHospital(w http.ResponseWriter, r *http.Request) {
	var input tracking.HospitalInput
	if err := decodeJSON(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	hospital, err := s.tracking.CreateHospital(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, hospital)
}

func (s *server) listHospitals(w http.ResponseWriter, r *http.Request) {
	active, err := queryBool(r, "active")
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit, offset, err := queryPage(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	hospitals, err := s.tracking.ListHospitals(r.Context(), active, limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hospitals)
}

func (s *server) getHospital(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	hospital, err := s.tracking.GetHospital(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hospital)
}

func (s *server) updateHospital(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var update domain.HospitalUpdate
	if err := decodeJSON(r, &update); err != nil {
		s.writeError(w, err)
		return
	}
	hospital, err := s.tracking.UpdateHospital(r.Context(), id, update)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hospital)
}

func (s *server) createCage(w http.ResponseWriter, r *http.Request) {
	var input tracking.CageInput
	if err := decodeJSON(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	cage, err := s.tracking.CreateCage(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cage)
}

func (s *server) listCages(w http.ResponseWriter, r *http.Request) {
	var filter domain.CageFilter
	if raw := r.URL.Query().Get("stage"); raw != "" {
		stage, err := domain.ParseStage(raw)
		if err != nil {
			s.writeError(w, err)
			return
		}
		filter.Stage = &stage
	}

	var err error
	if filter.HospitalID, err = queryUUID(r, "hospitalId"); err != nil {
		s.writeError(w, err)
		return
	}
	if filter.Limit, filter.Offset, err = queryPage(r); err != nil {
		s.writeError(w, err)
		return
	}

	cages, err := s.tracking.ListCages(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cages)
}

func (s *server) getCage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cage, err := s.tracking.GetCage(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cage)
}

func (s *server) getCageByCode(w http.ResponseWriter, r *http.Request) {
	cage, err := s.tracking.GetCageByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cage)
}

func (s *server) updateCage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var update domain.CageUpdate
	if err := decodeJSON(r, &update); err != nil {
		s.writeError(w, err)
		return
	}
	cage, err := s.tracking.UpdateCage(r.Context(), id, update)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cage)
}

func (s *server) setStage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var payload stagePayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}
	stage, err := domain.ParseStage(payload.Stage)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cage, err := s.tracking.SetStage(r.Context(), id, stage, auth.UserRef(r.Context()), payload.Notes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cage)
}

func (s *server) qrPayload(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	payload, err := s.tracking.QRPayload(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
