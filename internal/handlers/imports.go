package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"rdw-inventory-api/internal/auth"
	"rdw-inventory-api/pkg/importer"
)

// EquipmentImporter is satisfied by *importer.Importer.
type EquipmentImporter interface {
	Import(ctx context.Context, r io.Reader, opts importer.Options) (importer.Summary, error)
}

// ImportsHandler handles Excel import operations
type ImportsHandler struct {
	Importer EquipmentImporter
	Logger   *zap.Logger
	MaxBytes int64
	// MappingPath is the server-side YAML header mapping; empty uses the
	// built-in one. Clients cannot choose a path.
	MappingPath string
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(imp EquipmentImporter, logger *zap.Logger) *ImportsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportsHandler{
		Importer: imp,
		Logger:   logger,
		MaxBytes: 20 << 20, // 20 MB
	}
}

// UploadExcel handles POST /imports/equipment: a multipart form with the
// workbook in "file" and optional dry_run and max_errors fields.
func (h *ImportsHandler) UploadExcel(w http.ResponseWriter, r *http.Request) {
	// Limit body size
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	// Require multipart
	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeError(w, http.StatusBadRequest, "content-type must be multipart/form-data")
		return
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	dryRun := r.FormValue("dry_run") == "true"
	maxErrors := 50
	if v := r.FormValue("max_errors"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "max_errors must be a positive integer")
			return
		}
		maxErrors = n
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if !isXLSX(header) {
		writeError(w, http.StatusBadRequest, "only .xlsx files are accepted")
		return
	}

	sum, impErr := h.Importer.Import(r.Context(), file, importer.Options{
		MappingPath: h.MappingPath,
		DryRun:      dryRun,
		MaxErrors:   maxErrors,
	})
	if impErr != nil {
		h.Logger.Warn("equipment import failed",
			zap.Int64("user_id", auth.UserIDFromContext(r.Context())),
			zap.String("file", header.Filename),
			zap.Error(impErr))
		details := "import failed"
		if errors.Is(impErr, importer.ErrTooManyErrors) {
			details = impErr.Error()
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": details,
			"code":  "import_failed",
			"data":  sum,
		})
		return
	}

	h.Logger.Info("equipment import",
		zap.Int64("user_id", auth.UserIDFromContext(r.Context())),
		zap.String("file", header.Filename),
		zap.Bool("dry_run", dryRun))
	writeJSON(w, http.StatusOK, map[string]any{
		"data": sum,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// isXLSX checks if the uploaded file is an Excel .xlsx file
func isXLSX(h *multipart.FileHeader) bool {
	return strings.HasSuffix(strings.ToLower(h.Filename), ".xlsx")
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, auth.ErrorResponse{Error: message, Code: "invalid_argument"})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
