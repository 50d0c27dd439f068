// Package news aggregates legal news headlines from listing pages and feeds.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	newsRepo "courtwise/database/repository/news"
	"courtwise/models"
	"courtwise/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	LatestCacheKey = "news:latest"
	DefaultLimit   = 20
	MaxLimit       = 100
)

var ErrNoSources = errors.New("no news sources configured")

// Fetcher reads one source into news items.
type Fetcher interface {
	ScrapePage(ctx context.Context, pageURL string) ([]models.LegalNews, error)
	ReadFeed(ctx context.Context, feedURL string) ([]models.LegalNews, error)
}

type NewsService interface {
	Latest(ctx context.Context, limit int) ([]models.LegalNews, error)
	Refresh(ctx context.Context) (*RefreshResult, error)
}

// RefreshResult summarises one refresh run.
type RefreshResult struct {
	Fetched int      `json:"fetched"`
	New     int      `json:"new"`
	Failed  []string `json:"failed,omitempty"`
}

type DefaultNewsService struct {
	Repo     newsRepo.NewsRepository
	Cache    *redis.Client
	Fetcher  Fetcher
	Pages    []string
	Feeds    []string
	CacheTTL time.Duration
	Metrics  *utils.Metrics
	Logger   *zap.Logger
	now      func() time.Time
}

func NewNewsService(repo newsRepo.NewsRepository, cache *redis.Client, fetcher Fetcher, pages, feeds []string, logger *zap.Logger) *DefaultNewsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultNewsService{
		Repo:     repo,
		Cache:    cache,
		Fetcher:  fetcher,
		Pages:    pages,
		Feeds:    feeds,
		CacheTTL: 15 * time.Minute,
		Logger:   logger,
		now:      time.Now,
	}
}

// Latest returns up to limit of the most recent headlines. The newest
// MaxLimit entries are cached as one list; cache failures fall through to Mongo.
func (s *DefaultNewsService) Latest(ctx context.Context, limit int) ([]models.LegalNews, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if items, ok := s.cached(ctx); ok {
		return head(items, limit), nil
	}
	items, err := s.Repo.ListLatest(ctx, MaxLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list news: %w", err)
	}
	s.store(ctx, items)
	return head(items, limit), nil
}

// Refresh fetches every configured source, stores the results and drops the
// cached list. A run fails only when every source failed.
func (s *DefaultNewsService) Refresh(ctx context.Context) (*RefreshResult, error) {
	total := len(s.Pages) + len(s.Feeds)
	if total == 0 {
		s.count("skipped")
		return &RefreshResult{}, ErrNoSources
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		items  []models.LegalNews
		result = &RefreshResult{}
	)
	run := func(src string, read func(context.Context, string) ([]models.LegalNews, error)) {
		defer wg.Done()
		got, err := read(ctx, src)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			s.Logger.Warn("News source failed", zap.String("source", src), zap.Error(err))
			result.Failed = append(result.Failed, src)
			return
		}
		items = append(items, got...)
	}
	for _, src := range s.Pages {
		wg.Add(1)
		go run(src, s.Fetcher.ScrapePage)
	}
	for _, src := range s.Feeds {
		wg.Add(1)
		go run(src, s.Fetcher.ReadFeed)
	}
	wg.Wait()

	if len(result.Failed) == total {
		s.count("error")
		return result, fmt.Errorf("all %d news sources failed", total)
	}

	fetchedAt := s.now().UTC()
	unique := dedupe(items)
	for i := range unique {
		unique[i].FetchedAt = fetchedAt
	}
	result.Fetched = len(unique)

	created, err := s.Repo.UpsertMany(ctx, unique)
	if err != nil {
		s.count("error")
		return result, err
	}
	result.New = created
	s.invalidate(ctx)

	status := "ok"
	if len(result.Failed) > 0 {
		status = "partial"
	}
	s.count(status)
	s.Logger.Info("News refreshed",
		zap.Int("fetched", result.Fetched),
		zap.Int("new", result.New),
		zap.Int("failedSources", len(result.Failed)),
	)
	return result, nil
}

func (s *DefaultNewsService) cached(ctx context.Context) ([]models.LegalNews, bool) {
	if s.Cache == nil {
		return nil, false
	}
	raw, err := s.Cache.Get(ctx, LatestCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.Logger.Warn("Failed to read news cache", zap.Error(err))
		}
		return nil, false
	}
	var items []models.LegalNews
	if err := json.Unmarshal(raw, &items); err != nil {
		s.Logger.Warn("Dropping corrupt news cache", zap.Error(err))
		s.invalidate(ctx)
		return nil, false
	}
	return items, true
}

func (s *DefaultNewsService) store(ctx context.Context, items []models.LegalNews) {
	if s.Cache == nil {
		return
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, LatestCacheKey, raw, s.CacheTTL).Err(); err != nil {
		s.Logger.Warn("Failed to write news cache", zap.Error(err))
	}
}

func (s *DefaultNewsService) invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, LatestCacheKey).Err(); err != nil {
		s.Logger.Warn("Failed to drop news cache", zap.Error(err))
	}
}

func (s *DefaultNewsService) count(result string) {
	if s.Metrics != nil {
		s.Metrics.NewsRefreshes.WithLabelValues(result).Inc()
	}
}

// dedupe keeps the first item seen for each link.
func dedupe(items []models.LegalNews) []models.LegalNews {
	seen := make(map[string]bool, len(items))
	out := make([]models.LegalNews, 0, len(items))
	for _, it := range items {
		if seen[it.Link] {
			continue
		}
		seen[it.Link] = true
		out = append(out, it)
	}
	return out
}

func head(items []models.LegalNews, n int) []models.LegalNews {
	if len(items) > n {
		return items[:n]
	}
	return items
}
