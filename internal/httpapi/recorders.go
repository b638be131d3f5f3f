package httpapi

import (
	"net/http"

	"github.com/rpattn/cagetrack/internal/auth"
	"github.com/rpattn/cagetrack/internal/domain"
	"github.com/rpattn/cagetrack/internal/tracking"
)

func (s *server) recordWeighing(w http.ResponseWriter, r *http.Request) {
	var input tracking.WeighingInput
	if err := decodeJSON(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	input.UserID = auth.UserRef(r.Context())

	weighing, err := s.tracking.RecordWeighing(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, weighing)
}

func (s *server) recordScaleWeighing(w http.ResponseWriter, r *http.Request) {
	var reading tracking.ScaleReading
	if err := decodeJSON(r, &reading); err != nil {
		s.writeError(w, err)
		return
	}
	weighing, err := s.tracking.RecordScaleWeighing(r.Context(), reading)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, weighing)
}

func (s *server) listWeighings(w http.ResponseWriter, r *http.Request) {
	var (
		filter domain.WeighingFilter
		err    error
	)
	if filter.CageID, err = queryUUID(r, "cageId"); err != nil {
		s.writeError(w, err)
		return
	}
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, err := domain.ParseWeighingKind(raw)
		if err != nil {
			s.writeError(w, err)
			return
		}
		filter.Kind = &kind
	}
	if filter.Limit, filter.Offset, err = queryPage(r); err != nil {
		s.writeError(w, err)
		return
	}

	weighings, err := s.tracking.ListWeighings(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weighings)
}

func (s *server) getWeighing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	weighing, err := s.tracking.GetWeighing(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weighing)
}

func (s *server) recordTransport(w http.ResponseWriter, r *http.Request) {
	var input tracking.TransportInput
	if err := decodeJSON(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	input.UserID = auth.UserRef(r.Context())

	transport, err := s.tracking.RecordTransport(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transport)
}

func (s *server) listTransports(w http.ResponseWriter, r *http.Request) {
	var (
		filter domain.TransportFilter
		err    error
	)
	if filter.CageID, err = queryUUID(r, "cageId"); err != nil {
		s.writeError(w, err)
		return
	}
	if filter.Limit, filter.Offset, err = queryPage(r); err != nil {
		s.writeError(w, err)
		return
	}

	transports, err := s.tracking.ListTransports(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transports)
}

func (s *server) getTransport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	transport, err := s.tracking.GetTransport(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transport)
}

func (s *server) updateTransport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var update domain.TransportUpdate
	if err := decodeJSON(r, &update); err != nil {
		s.writeError(w, err)
		return
	}
	transport, err := s.tracking.UpdateTransport(r.Context(), id, update, auth.UserRef(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transport)
}

func (s *server) recordProcessStep(w http.ResponseWriter, r *http.Request) {
	var input tracking.ProcessStepInput
	if err := decodeJSON(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	input.UserID = auth.UserRef(r.Context())

	step, err := s.tracking.RecordProcessStep(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, step)
}

func (s *server) listProcessSteps(w http.ResponseWriter, r *http.Request) {
	var (
		filter domain.ProcessStepFilter
		err    error
	)
	if filter.CageID, err = queryUUID(r, "cageId"); err != nil {
		s.writeError(w, err)
		return
	}
	if filter.Limit, filter.Offset, err = queryPage(r); err != nil {
		s.writeError(w, err)
		return
	}

	steps, err := s.tracking.ListProcessSteps(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, steps)
}

func (s *server) getProcessStep(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	step, err := s.tracking.GetProcessStep(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, step)
}

func (s *server) closeProcessStep(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var update domain.ProcessStepUpdate
	if err := decodeJSON(r, &update); err != nil {
		s.writeError(w, err)
		return
	}
	step, err := s.tracking.CloseProcessStep(r.Context(), id, update)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, step)
}
