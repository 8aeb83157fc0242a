// Package importer loads equipment master data from .xlsx workbooks.
// Imported equipment is created unplaced; slots are assigned only through
// placement moves.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tealeg/xlsx/v3"
	"go.uber.org/zap"

	"rdw-inventory-api/internal/models"
	"rdw-inventory-api/internal/storage/postgres"
)

// Options defines the configuration for one import run.
type Options struct {
	MappingPath string // empty uses DefaultMapping
	DryRun      bool
	MaxErrors   int // default 50
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Summary contains the import statistics
type Summary struct {
	Sheet    string     `json:"sheet"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
	DryRun   bool       `json:"dry_run"`
}

const maxSamples = 20

func (s *Summary) fail(sheet string, row int, err error) {
	s.Errors++
	if len(s.Samples) < maxSamples {
		s.Samples = append(s.Samples, RowError{Sheet: sheet, Row: row, Message: err.Error()})
	}
}

// ErrTooManyErrors stops an import once MaxErrors rows have failed.
var ErrTooManyErrors = errors.New("too many errors, stopping import")

type Importer struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func New(pool *pgxpool.Pool, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{pool: pool, logger: logger.Named("importer")}
}

// Import reads the workbook and upserts one equipment row per data row,
// keyed by equipment_code. The whole run is one transaction; each row runs
// in a savepoint so a bad row does not abort the others. A dry run executes
// every statement and then rolls back.
func (im *Importer) Import(ctx context.Context, r io.Reader, opts Options) (Summary, error) {
	summary := Summary{DryRun: opts.DryRun}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 50
	}

	mapping, err := LoadMapping(opts.MappingPath)
	if err != nil {
		return summary, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("read workbook: %w", err)
	}
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return summary, fmt.Errorf("open workbook: %w", err)
	}
	sheet, err := pickSheet(wb, mapping.Sheet)
	if err != nil {
		return summary, err
	}
	summary.Sheet = sheet.Name

	rows, err := ReadRows(sheet, mapping, &summary)
	if err != nil {
		return summary, err
	}

	errRollback := errors.New("dry run")
	err = postgres.WithTx(ctx, im.pool, func(tx pgx.Tx) error {
		classes := map[string]int64{}
		for _, row := range rows {
			if summary.Errors >= opts.MaxErrors {
				return ErrTooManyErrors
			}
			inserted, err := im.upsertRow(ctx, tx, row, mapping, classes)
			if err != nil {
				summary.fail(sheet.Name, row.Line, err)
				continue
			}
			if inserted {
				summary.Inserted++
			} else {
				summary.Updated++
			}
		}
		if summary.Errors >= opts.MaxErrors {
			return ErrTooManyErrors
		}
		if opts.DryRun {
			return errRollback
		}
		return nil
	})
	if errors.Is(err, errRollback) {
		err = nil
	}

	im.logger.Info("equipment import finished",
		zap.String("sheet", summary.Sheet),
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("inserted", summary.Inserted),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
		zap.Error(err))
	return summary, err
}

func pickSheet(wb *xlsx.File, name string) (*xlsx.Sheet, error) {
	if len(wb.Sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	if name == "" {
		return wb.Sheets[0], nil
	}
	for _, sh := range wb.Sheets {
		if strings.EqualFold(strings.TrimSpace(sh.Name), name) {
			return sh, nil
		}
	}
	return nil, fmt.Errorf("sheet %q not found", name)
}

// upsertRow writes one row inside a savepoint and reports whether it
// created a new equipment.
func (im *Importer) upsertRow(ctx context.Context, tx pgx.Tx, row Row, m *Mapping, classes map[string]int64) (inserted bool, err error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = sp.Rollback(ctx)
		}
	}()

	classID, err := resolveClass(ctx, sp, row.ClassCode, m.CreateMissingClasses, classes)
	if err != nil {
		return false, err
	}

	err = sp.QueryRow(ctx, `
		INSERT INTO equipment (equipment_code, equipment_name, class_id, serial_number,
		                       brand, model, condition_note, readiness_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (equipment_code) DO UPDATE SET
			equipment_name   = EXCLUDED.equipment_name,
			class_id         = EXCLUDED.class_id,
			serial_number    = EXCLUDED.serial_number,
			brand            = EXCLUDED.brand,
			model            = EXCLUDED.model,
			condition_note   = EXCLUDED.condition_note,
			updated_at       = now()
		RETURNING (xmax = 0)`,
		row.Code, row.Name, classID, row.SerialNumber, row.Brand, row.Model,
		row.ConditionNote, string(row.Status),
	).Scan(&inserted)
	if err != nil {
		return false, describeDBError(err)
	}
	return inserted, sp.Commit(ctx)
}

func resolveClass(ctx context.Context, tx pgx.Tx, code string, create bool, cache map[string]int64) (int64, error) {
	key := strings.ToUpper(code)
	if id, ok := cache[key]; ok {
		return id, nil
	}
	var id int64
	err := tx.QueryRow(ctx, `SELECT class_id FROM classes WHERE upper(class_code) = $1`, key).Scan(&id)
	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows) && create:
		if err := tx.QueryRow(ctx,
			`INSERT INTO classes (class_code, class_name) VALUES ($1, $1) RETURNING class_id`, code,
		).Scan(&id); err != nil {
			return 0, describeDBError(err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		return 0, fmt.Errorf("unknown class_code %q", code)
	default:
		return 0, err
	}
	cache[key] = id
	return id, nil
}

// describeDBError keeps constraint failures readable in error samples.
func describeDBError(err error) error {
	switch {
	case postgres.IsUniqueViolation(err, ""):
		return errors.New("duplicate value violates a unique constraint")
	case postgres.IsCheckViolation(err):
		return errors.New("value rejected by a check constraint")
	}
	return err
}

// Row is one parsed data row. Line is the 1-based spreadsheet row.
type Row struct {
	Line          int
	Code          string
	Name          string
	ClassCode     string
	SerialNumber  *string
	Brand         *string
	Model         *string
	ConditionNote *string
	Status        models.ReadinessStatus
}

// ReadRows maps the header row through m and parses every data row. Blank
// rows are counted as skipped; rows missing required fields are recorded as
// errors in summary and left out.
func ReadRows(sheet *xlsx.Sheet, m *Mapping, summary *Summary) ([]Row, error) {
	if sheet.MaxRow < 1 {
		return nil, errors.New("sheet is empty")
	}

	header := make([]string, sheet.MaxCol)
	for c := 0; c < sheet.MaxCol; c++ {
		header[c] = cellText(sheet, 0, c)
	}
	columns := m.resolve(header)
	for _, req := range requiredFields {
		if _, ok := columns[req]; !ok {
			return nil, fmt.Errorf("missing required column for %s", req)
		}
	}

	var rows []Row
	for r := 1; r < sheet.MaxRow; r++ {
		values := map[string]string{}
		for field, c := range columns {
			if v := cellText(sheet, r, c); v != "" {
				values[field] = v
			}
		}
		if len(values) == 0 {
			summary.Skipped++
			continue
		}

		row, err := m.buildRow(values)
		if err != nil {
			summary.fail(sheet.Name, r+1, err)
			continue
		}
		row.Line = r + 1
		rows = append(rows, row)
	}
	return rows, nil
}

func cellText(sheet *xlsx.Sheet, row, col int) string {
	cell, err := sheet.Cell(row, col)
	if err != nil || cell == nil {
		return ""
	}
	return strings.TrimSpace(cell.String())
}

func optional(values map[string]string, field string) *string {
	if v, ok := values[field]; ok && v != "" {
		return &v
	}
	return nil
}
