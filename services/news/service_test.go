package news

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"courtwise/models"
	"courtwise/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	ScrapePageFn func(ctx context.Context, pageURL string) ([]models.LegalNews, error)
	ReadFeedFn   func(ctx context.Context, feedURL string) ([]models.LegalNews, error)
}

func (m *mockFetcher) ScrapePage(ctx context.Context, pageURL string) ([]models.LegalNews, error) {
	return m.ScrapePageFn(ctx, pageURL)
}

func (m *mockFetcher) ReadFeed(ctx context.Context, feedURL string) ([]models.LegalNews, error) {
	return m.ReadFeedFn(ctx, feedURL)
}

type memNewsRepo struct {
	mu        sync.Mutex
	byLink    map[string]models.LegalNews
	listCalls int
	upsertErr error
}

func newMemNewsRepo() *memNewsRepo {
	return &memNewsRepo{byLink: map[string]models.LegalNews{}}
}

func (r *memNewsRepo) UpsertMany(ctx context.Context, items []models.LegalNews) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return 0, r.upsertErr
	}
	created := 0
	for _, it := range items {
		if _, ok := r.byLink[it.Link]; !ok {
			created++
		}
		r.byLink[it.Link] = it
	}
	return created, nil
}

func (r *memNewsRepo) ListLatest(ctx context.Context, limit int) ([]models.LegalNews, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	out := make([]models.LegalNews, 0, len(r.byLink))
	for _, it := range r.byLink {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Link < out[j].Link })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func item(link string) models.LegalNews {
	return models.LegalNews{Title: "t " + link, Link: link}
}

func newTestService(t *testing.T, fetcher Fetcher, pages, feeds []string) (*DefaultNewsService, *memNewsRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemNewsRepo()
	svc := NewNewsService(repo, client, fetcher, pages, feeds, nil)
	svc.Metrics = utils.NewMetrics()
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return svc, repo, mr
}

func TestRefresh_StoresAndDedupes(t *testing.T) {
	fetcher := &mockFetcher{
		ScrapePageFn: func(ctx context.Context, pageURL string) ([]models.LegalNews, error) {
			return []models.LegalNews{item("a"), item("b")}, nil
		},
		ReadFeedFn: func(ctx context.Context, feedURL string) ([]models.LegalNews, error) {
			return []models.LegalNews{item("b"), item("c")}, nil
		},
	}
	svc, repo, mr := newTestService(t, fetcher, []string{"page"}, []string{"feed"})
	mr.Set(LatestCacheKey, "[]")

	result, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 3, result.New)
	assert.Empty(t, result.Failed)
	assert.False(t, mr.Exists(LatestCacheKey), "refresh drops the cached list")
	assert.Equal(t, time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC), repo.byLink["a"].FetchedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.Metrics.NewsRefreshes.WithLabelValues("ok")))

	result, err = svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.New)
}

func TestRefresh_PartialFailure(t *testing.T) {
	fetcher := &mockFetcher{
		ScrapePageFn: func(ctx context.Context, pageURL string) ([]models.LegalNews, error) {
			return nil, errors.New("timeout")
		},
		ReadFeedFn: func(ctx context.Context, feedURL string) ([]models.LegalNews, error) {
			return []models.LegalNews{item("c")}, nil
		},
	}
	svc, _, _ := newTestService(t, fetcher, []string{"page"}, []string{"feed"})

	result, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"page"}, result.Failed)
	assert.Equal(t, 1, result.New)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.Metrics.NewsRefreshes.WithLabelValues("partial")))
}

func TestRefresh_AllFailed(t *testing.T) {
	fail := func(ctx context.Context, src string) ([]models.LegalNews, error) {
		return nil, errors.New("down")
	}
	svc, _, _ := newTestService(t, &mockFetcher{ScrapePageFn: fail, ReadFeedFn: fail}, []string{"p1", "p2"}, nil)

	_, err := svc.Refresh(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.Metrics.NewsRefreshes.WithLabelValues("error")))
}

func TestRefresh_NoSources(t *testing.T) {
	svc, _, _ := newTestService(t, &mockFetcher{}, nil, nil)
	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestRefresh_UpsertError(t *testing.T) {
	fetcher := &mockFetcher{ScrapePageFn: func(ctx context.Context, pageURL string) ([]models.LegalNews, error) {
		return []models.LegalNews{item("a")}, nil
	}}
	svc, repo, _ := newTestService(t, fetcher, []string{"page"}, nil)
	repo.upsertErr = errors.New("mongo down")

	_, err := svc.Refresh(context.Background())
	assert.Error(t, err)
}

func TestLatest_UsesCache(t *testing.T) {
	svc, repo, mr := newTestService(t, &mockFetcher{}, nil, nil)
	_, _ = repo.UpsertMany(context.Background(), []models.LegalNews{item("a"), item("b"), item("c")})

	items, err := svc.Latest(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1, repo.listCalls)
	assert.True(t, mr.Exists(LatestCacheKey))
	assert.Greater(t, mr.TTL(LatestCacheKey), time.Duration(0))

	items, err = svc.Latest(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 1, repo.listCalls, "second read served from cache")
}

func TestLatest_CorruptCache(t *testing.T) {
	svc, repo, mr := newTestService(t, &mockFetcher{}, nil, nil)
	_, _ = repo.UpsertMany(context.Background(), []models.LegalNews{item("a")})
	mr.Set(LatestCacheKey, "{not json")

	items, err := svc.Latest(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	raw, err := mr.Get(LatestCacheKey)
	require.NoError(t, err)
	var cached []models.LegalNews
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Len(t, cached, 1)
}

func TestLatest_NilCache(t *testing.T) {
	repo := newMemNewsRepo()
	_, _ = repo.UpsertMany(context.Background(), []models.LegalNews{item("a")})
	svc := NewNewsService(repo, nil, &mockFetcher{}, nil, nil, nil)

	items, err := svc.Latest(context.Background(), 500)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
