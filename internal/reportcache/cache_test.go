package reportcache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ophtha-harmonizer/internal/domain"
)

// Tests in this file need a live Redis. They are skipped unless TEST_REDIS_URL
// is set, for example:
//
//	TEST_REDIS_URL=redis://localhost:6379/1 go test ./internal/reportcache/
func newTestPublisher(t *testing.T) *Publisher {
	t.Helper()

	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis integration test")
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	publisher, err := NewPublisher(domain.CacheConfig{
		Enabled:    true,
		RedisURL:   redisURL,
		DefaultTTL: time.Minute,
		PoolSize:   5,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { publisher.Close() })
	return publisher
}

func TestPublisherReportRoundTrip(t *testing.T) {
	publisher := newTestPublisher(t)
	ctx := context.Background()

	report := &domain.LoadReport{
		Dataset: "cache_test_aptos",
		RunID:   "run-1",
		RowsIn:  100,
		RowsOut: 98,
	}
	report.AddError(domain.RowIssue{RowIndex: 3, Message: "empty row"})

	require.NoError(t, publisher.PublishReport(ctx, report))
	t.Cleanup(func() { publisher.Invalidate(ctx, report.Dataset) })

	got, err := publisher.GetReport(ctx, "cache_test_aptos")
	require.NoError(t, err)
	assert.Equal(t, 98, got.RowsOut)
	assert.Equal(t, 1, got.ErrorCount)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, 3, got.Errors[0].RowIndex)
}

func TestPublisherMissingReport(t *testing.T) {
	publisher := newTestPublisher(t)

	_, err := publisher.GetReport(context.Background(), "cache_test_never_published")
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)
}

func TestPublisherStatisticsRoundTrip(t *testing.T) {
	publisher := newTestPublisher(t)
	ctx := context.Background()

	stats := &domain.PipelineStatistics{
		RunID:        "run-2",
		GeneratedAt:  time.Now().UTC().Truncate(time.Second),
		TotalRecords: 250,
		ValidRecords: 240,
		ModalityCounts: map[string]int{
			"Fundus": 200,
			"OCT":    50,
		},
	}
	require.NoError(t, publisher.PublishStatistics(ctx, stats))

	got, err := publisher.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, 250, got.TotalRecords)
	assert.Equal(t, 200, got.ModalityCounts["Fundus"])
}

func TestPublisherRejectsBadURL(t *testing.T) {
	_, err := NewPublisher(domain.CacheConfig{RedisURL: "not-a-url"}, logrus.New())
	assert.Error(t, err)
}
