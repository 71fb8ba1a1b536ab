package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableFromJSON(t *testing.T) {
	data := []byte(`{
		"columns": ["image", "diagnosis", "age"],
		"rows": [
			{"image": "img_001", "diagnosis": "mild npdr", "age": 55},
			{"image": "img_002", "diagnosis": "cataract", "age": null}
		]
	}`)

	table, err := TableFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"image", "diagnosis", "age"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "mild npdr", table.Rows[0].Get("diagnosis").AsString())
	assert.True(t, table.Rows[1].Get("age").IsNull())
}

func TestTableFromJSONRejectsMissingColumns(t *testing.T) {
	_, err := TableFromJSON([]byte(`{"rows": []}`))
	assert.Error(t, err)

	_, err = TableFromJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestFileDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aptos.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"columns": ["id_code", "diagnosis"],
		"rows": [{"id_code": "img_1", "diagnosis": "no dr"}]
	}`), 0o644))

	table, err := FileDataset(path)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	_, err = FileDataset(filepath.Join(t.TempDir(), "missing.json"))(context.Background())
	assert.Error(t, err)
}
