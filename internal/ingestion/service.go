package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpattn/cagetrack/internal/domain"
	"github.com/rpattn/cagetrack/internal/tracking"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = fmt.Errorf("unsupported file format: %w", domain.ErrInvalidInput)

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

	timeLayouts = []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"02/01/2006 15:04:05",
		"02/01/2006 15:04",
		"02/01/2006",
	}
)

// Column names recognised in the header row.
const (
	ColumnCageCode  = "cage_code"
	ColumnKind      = "kind"
	ColumnWeight    = "weight"
	ColumnScaleID   = "scale_id"
	ColumnTimestamp = "timestamp"
)

var requiredColumns = []string{ColumnCageCode, ColumnKind, ColumnWeight}

// Recorder stores one scale reading.
type Recorder interface {
	RecordScaleWeighing(ctx context.Context, reading tracking.ScaleReading) (domain.Weighing, error)
}

// Service imports batches of scale readings exported as CSV or XLSX.
type Service struct {
	recorder Recorder
	logger   *zap.Logger
}

// NewService creates a new ingestion service.
func NewService(recorder Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{recorder: recorder, logger: logger}
}

// Request describes the ingestion input.
type Request struct {
	FileName string
	Data     io.Reader
}

// RowError reports why a single row was not recorded.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Summary reports the outcome of an import.
type Summary struct {
	FileName  string      `json:"fileName"`
	TotalRows int         `json:"totalRows"`
	Recorded  int         `json:"recorded"`
	Failed    int         `json:"failed"`
	Weighings []uuid.UUID `json:"weighings"`
	Errors    []RowError  `json:"errors"`
}

type tableRow struct {
	line   int
	values []string
}

type tableData struct {
	headers []string
	rows    []tableRow
}

// Ingest records every data row independently; a failing row never stops the batch.
func (s *Service) Ingest(ctx context.Context, req Request) (Summary, error) {
	if req.Data == nil {
		return Summary{}, domain.InvalidInputf("file is empty")
	}
	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read upload: %w", err)
	}

	table, err := parseTable(req.FileName, payload)
	if err != nil {
		return Summary{}, err
	}

	index := make(map[string]int, len(table.headers))
	for i, h := range table.headers {
		if _, exists := index[h]; !exists {
			index[h] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return Summary{}, domain.InvalidInputf("missing required column %q", col)
		}
	}

	summary := Summary{
		FileName:  req.FileName,
		TotalRows: len(table.rows),
		Weighings: []uuid.UUID{},
		Errors:    []RowError{},
	}
	for _, row := range table.rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		reading, err := readingFromRow(row.values, index)
		if err == nil {
			var w domain.Weighing
			if w, err = s.recorder.RecordScaleWeighing(ctx, reading); err == nil {
				summary.Recorded++
				summary.Weighings = append(summary.Weighings, w.ID)
				continue
			}
		}

		summary.Failed++
		summary.Errors = append(summary.Errors, RowError{Row: row.line, Message: err.Error()})
		s.logger.Warn("scale import row rejected",
			zap.String("file", req.FileName),
			zap.Int("row", row.line),
			zap.Error(err),
		)
	}

	s.logger.Info("scale import finished",
		zap.String("file", req.FileName),
		zap.Int("total", summary.TotalRows),
		zap.Int("recorded", summary.Recorded),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func cell(values []string, index map[string]int, column string) string {
	i, ok := index[column]
	if !ok || i >= len(values) {
		return ""
	}
	return strings.TrimSpace(values[i])
}

func readingFromRow(values []string, index map[string]int) (tracking.ScaleReading, error) {
	code := cell(values, index, ColumnCageCode)
	if code == "" {
		return tracking.ScaleReading{}, domain.InvalidInputf("%s is required", ColumnCageCode)
	}

	kind, err := domain.ParseWeighingKind(cell(values, index, ColumnKind))
	if err != nil {
		return tracking.ScaleReading{}, err
	}

	weight, err := parseWeight(cell(values, index, ColumnWeight))
	if err != nil {
		return tracking.ScaleReading{}, err
	}

	reading := tracking.ScaleReading{CageCode: code, Kind: kind, Weight: &weight}
	if scale := cell(values, index, ColumnScaleID); scale != "" {
		reading.ScaleID = &scale
	}
	if raw := cell(values, index, ColumnTimestamp); raw != "" {
		ts, err := parseTimestamp(raw)
		if err != nil {
			return tracking.ScaleReading{}, domain.InvalidInputf("invalid %s %q", ColumnTimestamp, raw)
		}
		reading.Timestamp = &ts
	}
	return reading, nil
}

// parseWeight accepts a decimal comma as written by pt-BR spreadsheets.
func parseWeight(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, domain.InvalidInputf("%s is required", ColumnWeight)
	}
	normalized := raw
	if strings.Contains(raw, ",") && !strings.Contains(raw, ".") {
		normalized = strings.ReplaceAll(raw, ",", ".")
	}
	weight, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, domain.InvalidInputf("invalid %s %q", ColumnWeight, raw)
	}
	return weight, nil
}

func parseTable(fileName string, payload []byte) (tableData, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return tableData{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) (tableData, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	var records []tableRow
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return tableData{}, domain.InvalidInputf("failed to read csv: %v", err)
		}
		line, _ := csvReader.FieldPos(0)
		records = append(records, tableRow{line: line, values: record})
	}
	return normalizeTable(records)
}

func parseExcel(payload []byte) (tableData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return tableData{}, domain.InvalidInputf("failed to open xlsx: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return tableData{}, domain.InvalidInputf("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	records := make([]tableRow, 0, len(rows))
	for idx, row := range rows {
		records = append(records, tableRow{line: idx + 1, values: row})
	}
	return normalizeTable(records)
}

// normalizeTable treats the first non-empty record as the header row.
func normalizeTable(records []tableRow) (tableData, error) {
	var table tableData
	for _, record := range records {
		if isEmptyRow(record.values) {
			continue
		}
		if table.headers == nil {
			table.headers = sanitizeHeaders(record.values)
			continue
		}
		table.rows = append(table.rows, record)
	}
	if table.headers == nil {
		return tableData{}, domain.InvalidInputf("no rows found in file")
	}
	return table, nil
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func sanitizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for idx, value := range raw {
		name := strings.ToLower(strings.TrimSpace(value))
		name = strings.ReplaceAll(name, " ", "_")
		name = strings.ReplaceAll(name, "-", "_")
		name = strings.Trim(name, "_")
		if name == "" {
			name = fmt.Sprintf("column_%d", idx+1)
		}
		headers[idx] = name
	}
	return headers
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unrecognized timestamp format")
}
