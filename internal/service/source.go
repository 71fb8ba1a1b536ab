package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ophtha-harmonizer/internal/domain"
)

// tableDocument is the on-disk JSON shape for a raw dataset table.
type tableDocument struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

// TableFromJSON decodes a JSON table document into a domain table.
func TableFromJSON(data []byte) (*domain.Table, error) {
	var doc tableDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding table document: %w", err)
	}
	if len(doc.Columns) == 0 {
		return nil, fmt.Errorf("table document has no columns")
	}

	table := domain.NewTable(doc.Columns...)
	for _, raw := range doc.Rows {
		row := make(domain.Row, len(raw))
		for column, cell := range raw {
			row[column] = domain.ValueOf(cell)
		}
		table.Append(row)
	}
	return table, nil
}

// FileDataset returns a dataset func that reads a JSON table document from
// disk on each pipeline run.
func FileDataset(path string) domain.DatasetFunc {
	return func(ctx context.Context) (*domain.Table, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading dataset file %s: %w", path, err)
		}
		return TableFromJSON(data)
	}
}
