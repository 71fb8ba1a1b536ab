// Package reportcache publishes load reports and pipeline statistics to Redis
// so dashboards can read the latest run without hitting the archive.
package reportcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ophtha-harmonizer/internal/domain"
)

const statisticsKey = "harmonizer:statistics"

// Publisher implements domain.ReportPublisher on top of Redis.
type Publisher struct {
	redis      *redis.Client
	defaultTTL time.Duration
	log        *logrus.Logger
}

// NewPublisher creates a Redis-backed report publisher and verifies the
// connection.
func NewPublisher(config domain.CacheConfig, logger *logrus.Logger) (*Publisher, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing Redis URL: %w", err)
	}

	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Publisher{redis: client, defaultTTL: ttl, log: logger}, nil
}

// cachedReport wraps a report with cache metadata.
type cachedReport struct {
	Report    *domain.LoadReport `json:"report"`
	CachedAt  time.Time          `json:"cached_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// cachedStatistics wraps pipeline statistics with cache metadata.
type cachedStatistics struct {
	Statistics *domain.PipelineStatistics `json:"statistics"`
	CachedAt   time.Time                  `json:"cached_at"`
	ExpiresAt  time.Time                  `json:"expires_at"`
}

func reportKey(dataset string) string {
	return "harmonizer:report:" + dataset
}

// PublishReport stores the latest load report for a dataset.
func (p *Publisher) PublishReport(ctx context.Context, report *domain.LoadReport) error {
	cached := cachedReport{
		Report:    report,
		CachedAt:  time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(p.defaultTTL),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshaling report for %s: %w", report.Dataset, err)
	}

	if err := p.redis.Set(ctx, reportKey(report.Dataset), data, p.defaultTTL).Err(); err != nil {
		return fmt.Errorf("publishing report for %s: %w", report.Dataset, err)
	}

	p.log.WithFields(logrus.Fields{
		"dataset": report.Dataset,
		"rows":    report.RowsOut,
	}).Debug("Report published")
	return nil
}

// GetReport retrieves the latest load report for a dataset. Returns
// domain.ErrDatasetNotFound when no report is cached.
func (p *Publisher) GetReport(ctx context.Context, dataset string) (*domain.LoadReport, error) {
	val, err := p.redis.Get(ctx, reportKey(dataset)).Result()
	if err == redis.Nil {
		return nil, domain.ErrDatasetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading report for %s: %w", dataset, err)
	}

	var cached cachedReport
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		p.redis.Del(ctx, reportKey(dataset))
		return nil, domain.ErrDatasetNotFound
	}

	if time.Now().After(cached.ExpiresAt) {
		p.redis.Del(ctx, reportKey(dataset))
		return nil, domain.ErrDatasetNotFound
	}

	return cached.Report, nil
}

// PublishStatistics stores the latest pipeline statistics.
func (p *Publisher) PublishStatistics(ctx context.Context, stats *domain.PipelineStatistics) error {
	cached := cachedStatistics{
		Statistics: stats,
		CachedAt:   time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(p.defaultTTL),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshaling statistics: %w", err)
	}

	if err := p.redis.Set(ctx, statisticsKey, data, p.defaultTTL).Err(); err != nil {
		return fmt.Errorf("publishing statistics: %w", err)
	}
	return nil
}

// GetStatistics retrieves the latest pipeline statistics. Returns
// domain.ErrDatasetNotFound when nothing has been published.
func (p *Publisher) GetStatistics(ctx context.Context) (*domain.PipelineStatistics, error) {
	val, err := p.redis.Get(ctx, statisticsKey).Result()
	if err == redis.Nil {
		return nil, domain.ErrDatasetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading statistics: %w", err)
	}

	var cached cachedStatistics
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		p.redis.Del(ctx, statisticsKey)
		return nil, domain.ErrDatasetNotFound
	}

	if time.Now().After(cached.ExpiresAt) {
		p.redis.Del(ctx, statisticsKey)
		return nil, domain.ErrDatasetNotFound
	}

	return cached.Statistics, nil
}

// Invalidate removes the cached report for a dataset.
func (p *Publisher) Invalidate(ctx context.Context, dataset string) error {
	return p.redis.Del(ctx, reportKey(dataset)).Err()
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.redis.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.redis.Close()
}
