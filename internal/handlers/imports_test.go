package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rdw-inventory-api/pkg/importer"
)

type fakeImporter struct {
	calls   int
	gotOpts importer.Options
	gotBody []byte
	summary importer.Summary
	err     error
}

func (f *fakeImporter) Import(_ context.Context, r io.Reader, opts importer.Options) (importer.Summary, error) {
	f.calls++
	f.gotOpts = opts
	f.gotBody, _ = io.ReadAll(r)
	return f.summary, f.err
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		fw, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/imports/equipment", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestImportsHandler_UploadExcel(t *testing.T) {
	t.Run("Rejects non-multipart content type", func(t *testing.T) {
		fake := &fakeImporter{}
		handler := NewImportsHandler(fake, nil)

		req := httptest.NewRequest(http.MethodPost, "/imports/equipment", nil)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.UploadExcel(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "content-type must be multipart/form-data")
		assert.Zero(t, fake.calls)
	})

	t.Run("Rejects missing file", func(t *testing.T) {
		fake := &fakeImporter{}
		handler := NewImportsHandler(fake, nil)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, multipartRequest(t, map[string]string{"dry_run": "true"}, "", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "file is required")
	})

	t.Run("Rejects non-xlsx file", func(t *testing.T) {
		fake := &fakeImporter{}
		handler := NewImportsHandler(fake, nil)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, multipartRequest(t, nil, "equipment.xls", []byte("fake excel content")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "only .xlsx files are accepted")
		assert.Zero(t, fake.calls)
	})

	t.Run("Rejects invalid max_errors", func(t *testing.T) {
		fake := &fakeImporter{}
		handler := NewImportsHandler(fake, nil)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, multipartRequest(t, map[string]string{"max_errors": "-3"}, "equipment.xlsx", []byte("x")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "max_errors")
	})

	t.Run("Passes options and returns summary", func(t *testing.T) {
		fake := &fakeImporter{summary: importer.Summary{Sheet: "Equipment", Inserted: 3, Updated: 1, DryRun: true}}
		handler := NewImportsHandler(fake, nil)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, multipartRequest(t,
			map[string]string{"dry_run": "true", "max_errors": "5"},
			"Equipment.XLSX", []byte("workbook-bytes")))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, fake.calls)
		assert.True(t, fake.gotOpts.DryRun)
		assert.Equal(t, 5, fake.gotOpts.MaxErrors)
		assert.Equal(t, []byte("workbook-bytes"), fake.gotBody)

		var resp struct {
			Data importer.Summary `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.Data.Inserted)
		assert.Equal(t, 1, resp.Data.Updated)
		assert.True(t, resp.Data.DryRun)
	})

	t.Run("Import failure returns 422 without internals", func(t *testing.T) {
		fake := &fakeImporter{err: errors.New("pq: connection reset by peer")}
		handler := NewImportsHandler(fake, nil)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, multipartRequest(t, nil, "equipment.xlsx", []byte("x")))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
		assert.Contains(t, w.Body.String(), "import_failed")
	})

	t.Run("Too many errors is reported", func(t *testing.T) {
		fake := &fakeImporter{
			summary: importer.Summary{Errors: 5},
			err:     importer.ErrTooManyErrors,
		}
		handler := NewImportsHandler(fake, nil)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, multipartRequest(t, nil, "equipment.xlsx", []byte("x")))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "too many errors")
	})
}

func TestIsXLSX(t *testing.T) {
	tests := []struct {
		filename string
		expected bool
	}{
		{"test.xlsx", true},
		{"TEST.XLSX", true},
		{"test.xls", false},
		{"test.csv", false},
		{"test", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, isXLSX(&multipart.FileHeader{Filename: tt.filename}))
		})
	}
}
