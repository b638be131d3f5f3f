package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/cagetrack/internal/domain"
	"github.com/rpattn/cagetrack/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *server) expeditionReport(w http.ResponseWriter, r *http.Request) {
	var (
		filter report.ExpeditionFilter
		err    error
	)
	if filter.HospitalID, err = queryUUID(r, "hospitalId"); err != nil {
		s.writeError(w, err)
		return
	}
	if filter.From, err = queryDate(r, "from"); err != nil {
		s.writeError(w, err)
		return
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		s.writeError(w, err)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" && format != "xlsx" {
		s.writeError(w, domain.InvalidInputf("unsupported format %q", format))
		return
	}

	rows, err := s.reports.ExpeditionRows(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if format == "json" {
		writeJSON(w, http.StatusOK, rows)
		return
	}

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case "csv":
		err = report.WriteCSV(&buf, rows)
		contentType = "text/csv; charset=utf-8"
	case "xlsx":
		err = report.WriteXLSX(&buf, rows)
		contentType = xlsxContentType
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="expedition.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *server) divergenceReport(w http.ResponseWriter, r *http.Request) {
	threshold := s.tracking.Threshold()
	if raw := strings.TrimSpace(r.URL.Query().Get("threshold")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, domain.InvalidInputf("invalid threshold %q", raw))
			return
		}
		threshold = parsed
	}

	rows, err := s.reports.DivergenceReport(r.Context(), threshold)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *server) productivityReport(w http.ResponseWriter, r *http.Request) {
	var (
		filter report.PeriodFilter
		err    error
	)
	if filter.From, err = queryDate(r, "from"); err != nil {
		s.writeError(w, err)
		return
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		s.writeError(w, err)
		return
	}

	summary, err := s.reports.Productivity(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
