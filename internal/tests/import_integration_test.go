//go:build integration

package tests

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"rdw-inventory-api/pkg/importer"
)

func workbook(t *testing.T, rows [][]string) *bytes.Reader {
	t.Helper()
	f := xlsx.NewFile()
	sh, err := f.AddSheet("Equipment")
	require.NoError(t, err)
	for _, values := range rows {
		row := sh.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

func TestImportEquipment(t *testing.T) {
	srv := setup(t)
	ctx := context.Background()

	_, err := testDB.Exec(`INSERT INTO classes (class_code, class_name) VALUES ('SURV', 'Survey')`)
	require.NoError(t, err)

	rows := [][]string{
		{"Kode Alat", "Nama Alat", "Kelas", "S/N"},
		{"EQ-001", "Theodolite", "surv", "SN-1"},
		{"EQ-002", "Total Station", "SURV", ""},
		{"EQ-003", "Sonar", "MARINE", ""},
	}

	sum, err := srv.Importer.Import(ctx, workbook(t, rows), importer.Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Inserted)
	assert.Equal(t, 1, sum.Errors)
	var n int
	require.NoError(t, testDB.QueryRow(`SELECT count(*) FROM equipment`).Scan(&n))
	assert.Equal(t, 0, n, "dry run rolls back")

	sum, err = srv.Importer.Import(ctx, workbook(t, rows), importer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Inserted)
	require.Len(t, sum.Samples, 1)
	assert.Equal(t, 4, sum.Samples[0].Row)
	assert.Contains(t, sum.Samples[0].Message, "MARINE")

	rows[1][1] = "Theodolite (recalibrated)"
	sum, err = srv.Importer.Import(ctx, workbook(t, rows[:3]), importer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Inserted)
	assert.Equal(t, 2, sum.Updated)

	var name string
	var slot *int64
	require.NoError(t, testDB.QueryRow(
		`SELECT equipment_name, current_slot_id FROM equipment WHERE equipment_code = 'EQ-001'`,
	).Scan(&name, &slot))
	assert.Equal(t, "Theodolite (recalibrated)", name)
	assert.Nil(t, slot, "imported equipment stays unplaced")
}

func TestImportEquipment_TooManyErrors(t *testing.T) {
	srv := setup(t)

	rows := [][]string{{"Code", "Name", "Class"}}
	for i := 0; i < 5; i++ {
		rows = append(rows, []string{"EQ", "Name", "NOPE"})
	}
	sum, err := srv.Importer.Import(context.Background(), workbook(t, rows), importer.Options{MaxErrors: 3})
	assert.ErrorIs(t, err, importer.ErrTooManyErrors)
	assert.Equal(t, 3, sum.Errors)

	var n int
	require.NoError(t, testDB.QueryRow(`SELECT count(*) FROM equipment`).Scan(&n))
	assert.Equal(t, 0, n)
}
