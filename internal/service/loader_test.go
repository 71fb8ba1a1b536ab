package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ophtha-harmonizer/internal/domain"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	return NewLoader(newTestHarmonizer(t), testLogger())
}

func sampleTable() *domain.Table {
	tbl := domain.NewTable("image_id", "diagnosis", "eye", "age", "camera")
	tbl.Append(domain.Row{
		"image_id":  domain.StringValue("img_1"),
		"diagnosis": domain.StringValue("mild npdr"),
		"eye":       domain.StringValue("OD"),
		"age":       domain.StringValue("55"),
		"camera":    domain.StringValue("topcon"),
	})
	tbl.Append(domain.Row{
		"image_id":  domain.StringValue("img_2"),
		"diagnosis": domain.StringValue("no dr"),
		"eye":       domain.StringValue("gauche"),
		"age":       domain.StringValue("200"),
		"camera":    domain.Null(),
	})
	return tbl
}

func TestLoadAndHarmonize(t *testing.T) {
	loader := newTestLoader(t)

	out, report, err := loader.LoadAndHarmonize(context.Background(), "aptos", sampleTable(), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.CanonicalColumns, out.Columns)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, 2, report.RowsIn)
	assert.Equal(t, 2, report.RowsOut)
	assert.Zero(t, report.RowsSkipped)

	first := out.Rows[0]
	assert.Equal(t, "img_1", first.Get("image_id").AsString())
	assert.Equal(t, "Diabetic Retinopathy", first.Get("diagnosis_category").AsString())
	assert.Equal(t, "Mild", first.Get("severity").AsString())
	assert.Equal(t, "OD", first.Get("laterality").AsString())

	second := out.Rows[1]
	assert.Equal(t, "Normal", second.Get("diagnosis_category").AsString())
	assert.Equal(t, "OS", second.Get("laterality").AsString())
	// out-of-range age is dropped, row survives
	assert.True(t, second.Get("patient_age").IsNull())
}

func TestLoadAndHarmonizeAbbreviatedColumns(t *testing.T) {
	loader := newTestLoader(t)

	tbl := domain.NewTable("dx", "eye", "age")
	tbl.Append(domain.Row{
		"dx":  domain.StringValue("mild npdr"),
		"eye": domain.StringValue("OD"),
		"age": domain.StringValue("55"),
	})
	tbl.Append(domain.Row{
		"dx":  domain.StringValue("no dr"),
		"eye": domain.Null(),
		"age": domain.Null(),
	})

	out, report, err := loader.LoadAndHarmonize(context.Background(), "clinic", tbl, nil)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "dx", report.Mapping[0].Column)

	first := out.Rows[0]
	assert.Equal(t, "Diabetic Retinopathy", first.Get("diagnosis_category").AsString())
	assert.Equal(t, "Mild", first.Get("severity").AsString())
	assert.Equal(t, "OD", first.Get("laterality").AsString())
	age, err := first.Get("patient_age").AsInt()
	require.NoError(t, err)
	assert.Equal(t, int64(55), age)

	second := out.Rows[1]
	assert.Equal(t, "Normal", second.Get("diagnosis_category").AsString())
	assert.True(t, second.Get("severity").IsNull())
}

func TestLoadAndHarmonizeAutoDetectConfidence(t *testing.T) {
	loader := newTestLoader(t)

	_, report, err := loader.LoadAndHarmonize(context.Background(), "ds", sampleTable(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, report.Mapping)

	for _, entry := range report.Mapping {
		assert.GreaterOrEqual(t, entry.Confidence, 0.0)
		assert.LessOrEqual(t, entry.Confidence, 1.0)
	}
}

func TestLoadAndHarmonizeEmptyTable(t *testing.T) {
	loader := newTestLoader(t)

	out, report, err := loader.LoadAndHarmonize(context.Background(), "empty", domain.NewTable("a"), nil)
	require.NoError(t, err)
	assert.Zero(t, out.Len())
	assert.Zero(t, report.RowsIn)
	assert.Equal(t, domain.CanonicalColumns, out.Columns)
}

func TestLoadAndHarmonizeSkipsBadRows(t *testing.T) {
	loader := newTestLoader(t)

	tbl := domain.NewTable("image_id", "diagnosis")
	tbl.Append(domain.Row{"image_id": domain.StringValue("good")})
	tbl.Append(domain.Row{}) // unharmonizable
	tbl.Append(domain.Row{"image_id": domain.StringValue("also_good")})

	out, report, err := loader.LoadAndHarmonize(context.Background(), "ds", tbl, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Len())
	assert.Equal(t, 1, report.RowsSkipped)
	assert.Equal(t, 1, report.ErrorCount)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 1, report.Errors[0].RowIndex)
}

func TestLoadAndHarmonizeErrorDetailBounded(t *testing.T) {
	loader := newTestLoader(t)

	tbl := domain.NewTable("image_id")
	for i := 0; i < 25; i++ {
		tbl.Append(domain.Row{})
	}
	_, report, err := loader.LoadAndHarmonize(context.Background(), "ds", tbl, nil)
	require.NoError(t, err)

	assert.Equal(t, 25, report.ErrorCount)
	assert.Len(t, report.Errors, domain.MaxReportErrors)
}

func TestLoadAndHarmonizeExplicitMapping(t *testing.T) {
	loader := newTestLoader(t)

	tbl := domain.NewTable("col_a", "col_b")
	tbl.Append(domain.Row{
		"col_a": domain.StringValue("x9"),
		"col_b": domain.StringValue("glaucoma"),
	})
	mapping := domain.ColumnMapping{
		domain.FieldImageID:   "col_a",
		domain.FieldDiagnosis: "col_b",
	}

	out, report, err := loader.LoadAndHarmonize(context.Background(), "ds", tbl, mapping)
	require.NoError(t, err)

	assert.Equal(t, "x9", out.Rows[0].Get("image_id").AsString())
	assert.Equal(t, "Glaucoma", out.Rows[0].Get("diagnosis_category").AsString())
	assert.Len(t, report.Mapping, 2)
}

func TestLoadAndHarmonizeContextCancelled(t *testing.T) {
	loader := newTestLoader(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := loader.LoadAndHarmonize(ctx, "ds", sampleTable(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
