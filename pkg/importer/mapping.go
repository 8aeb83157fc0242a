package importer

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"rdw-inventory-api/internal/models"
)

// Mapping describes how workbook headers map onto equipment fields.
type Mapping struct {
	Version int `yaml:"version"`
	// Sheet names the worksheet to read; empty means the first one.
	Sheet                string              `yaml:"sheet"`
	DefaultStatus        string              `yaml:"default_status"`
	CreateMissingClasses bool                `yaml:"create_missing_classes"`
	Columns              map[string][]string `yaml:"columns"`
}

const (
	fieldCode          = "equipment_code"
	fieldName          = "equipment_name"
	fieldClassCode     = "class_code"
	fieldSerialNumber  = "serial_number"
	fieldBrand         = "brand"
	fieldModel         = "model"
	fieldConditionNote = "condition_note"
	fieldStatus        = "readiness_status"
)

var requiredFields = []string{fieldCode, fieldName, fieldClassCode}

var knownFields = map[string]bool{
	fieldCode: true, fieldName: true, fieldClassCode: true, fieldSerialNumber: true,
	fieldBrand: true, fieldModel: true, fieldConditionNote: true, fieldStatus: true,
}

// DefaultMapping accepts the field names themselves plus the headers used
// by the warehouse team's spreadsheets.
func DefaultMapping() *Mapping {
	return &Mapping{
		Version:       1,
		DefaultStatus: string(models.StatusReady),
		Columns: map[string][]string{
			fieldCode:          {"Code", "Equipment Code", "Kode", "Kode Alat"},
			fieldName:          {"Name", "Equipment Name", "Nama", "Nama Alat"},
			fieldClassCode:     {"Class", "Class Code", "Kelas", "Kode Kelas"},
			fieldSerialNumber:  {"Serial", "Serial Number", "S/N", "SN"},
			fieldBrand:         {"Brand", "Merk"},
			fieldModel:         {"Model", "Tipe"},
			fieldConditionNote: {"Condition", "Notes", "Kondisi", "Catatan"},
			fieldStatus:        {"Status", "Readiness", "Status Kesiapan"},
		},
	}
}

// LoadMapping reads a YAML mapping file, or returns DefaultMapping when
// path is empty.
func LoadMapping(path string) (*Mapping, error) {
	if path == "" {
		return DefaultMapping(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	return ParseMapping(data)
}

func ParseMapping(data []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	for field := range m.Columns {
		if !knownFields[field] {
			return nil, fmt.Errorf("mapping: unknown field %q", field)
		}
	}
	if m.DefaultStatus == "" {
		m.DefaultStatus = string(models.StatusReady)
	}
	if _, err := models.ParseReadinessStatus(m.DefaultStatus); err != nil {
		return nil, fmt.Errorf("mapping: default_status: %w", err)
	}
	return &m, nil
}

// resolve returns the column index of every field found in header. A
// header equal to the field name always matches.
func (m *Mapping) resolve(header []string) map[string]int {
	out := map[string]int{}
	for c, h := range header {
		if h == "" {
			continue
		}
		for field := range knownFields {
			if _, taken := out[field]; taken {
				continue
			}
			if strings.EqualFold(h, field) || matchesAny(h, m.Columns[field]) {
				out[field] = c
				break
			}
		}
	}
	return out
}

func matchesAny(h string, aliases []string) bool {
	for _, a := range aliases {
		if strings.EqualFold(h, strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}

func (m *Mapping) buildRow(values map[string]string) (Row, error) {
	row := Row{
		Code:          values[fieldCode],
		Name:          values[fieldName],
		ClassCode:     values[fieldClassCode],
		SerialNumber:  optional(values, fieldSerialNumber),
		Brand:         optional(values, fieldBrand),
		Model:         optional(values, fieldModel),
		ConditionNote: optional(values, fieldConditionNote),
	}
	for _, f := range requiredFields {
		if values[f] == "" {
			return row, fmt.Errorf("%s is required", f)
		}
	}

	status := m.DefaultStatus
	if v := values[fieldStatus]; v != "" {
		status = v
	}
	st, err := models.ParseReadinessStatus(status)
	if err != nil {
		return row, err
	}
	row.Status = st
	return row, nil
}
