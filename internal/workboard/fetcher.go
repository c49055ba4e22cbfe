package workboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/workboard/internal/core/kv"
	"github.com/colonyops/workboard/internal/core/review"
	"github.com/colonyops/workboard/internal/data/stores"
	"github.com/colonyops/workboard/internal/gateway"
)

// Gateway is the remote side of a refresh cycle. *gateway.Client implements
// it; tests substitute fakes.
type Gateway interface {
	Search(ctx context.Context, role review.Role, user string) ([]review.RemoteFields, error)
	Detail(ctx context.Context, url string) (review.RemoteDetail, error)
}

// Cache TTLs. Detail results age with the item itself: the longer a PR has
// been quiet, the longer its cached snapshot may serve.
const (
	searchTTL = 10 * time.Minute

	// avoidCacheTTL is how long a freshly clicked item bypasses the detail
	// cache, so the next refresh sees changes made right after the click.
	avoidCacheTTL = 5 * time.Minute
)

// detailTTL picks the cache lifetime for a detail result from the time since
// the PR last changed remotely.
func detailTTL(age time.Duration) time.Duration {
	switch {
	case age > 365*24*time.Hour:
		return 4 * time.Hour
	case age > 7*24*time.Hour:
		return time.Hour
	case age > 2*24*time.Hour:
		return 30 * time.Minute
	default:
		return 10 * time.Minute
	}
}

// Fetcher layers the result cache over the gateway. Each lookup is
// get-or-populate under one lock, so concurrent callers never race the same
// remote call.
type Fetcher struct {
	mu         sync.Mutex
	gh         Gateway
	cache      kv.KV
	avoidCache *kv.TypedKV[bool]
	log        zerolog.Logger
	now        func() time.Time
}

// NewFetcher creates a caching fetcher over the given gateway.
func NewFetcher(gh Gateway, cache kv.KV, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		gh:         gh,
		cache:      cache,
		avoidCache: kv.Scoped[bool](cache, "avoid-cache"),
		log:        log,
		now:        time.Now,
	}
}

func searchKey(role review.Role, user string) string {
	return fmt.Sprintf("gh.search.%s.%s.%s", role, user, gateway.SearchFields)
}

func detailKey(url string) string {
	return fmt.Sprintf("gh.pr.%s.%s", url, gateway.DetailFields)
}

// Search returns one role's open-PR search results, served from cache when a
// fresh entry exists.
func (f *Fetcher) Search(ctx context.Context, role review.Role, user string) ([]review.RemoteFields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := searchKey(role, user)

	var cached []review.RemoteFields
	err := f.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !stores.IsNotFoundError(err) {
		f.log.Warn().Err(err).Str("key", key).Msg("search cache read failed")
	}

	results, err := f.gh.Search(ctx, role, user)
	if err != nil {
		return nil, err
	}

	if err := f.cache.SetTTL(ctx, key, results, searchTTL); err != nil {
		f.log.Warn().Err(err).Str("key", key).Msg("search cache write failed")
	}
	return results, nil
}

// Detail returns one item's detail fields, served from cache unless the item
// was recently clicked or the entry expired.
func (f *Fetcher) Detail(ctx context.Context, url string) (review.RemoteDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	avoid, err := f.avoidCache.Has(ctx, url)
	if err != nil {
		f.log.Warn().Err(err).Str("url", url).Msg("avoid-cache read failed")
	}
	return f.detail(ctx, url, avoid)
}

// DetailFresh always asks the gateway, ignoring any cached entry. Used when a
// point-in-time snapshot must not be stale, such as arming an update watch.
func (f *Fetcher) DetailFresh(ctx context.Context, url string) (review.RemoteDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detail(ctx, url, true)
}

func (f *Fetcher) detail(ctx context.Context, url string, skipCache bool) (review.RemoteDetail, error) {
	key := detailKey(url)

	if !skipCache {
		var cached review.RemoteDetail
		err := f.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !stores.IsNotFoundError(err) {
			f.log.Warn().Err(err).Str("key", key).Msg("detail cache read failed")
		}
	}

	d, err := f.gh.Detail(ctx, url)
	if err != nil {
		return review.RemoteDetail{}, err
	}

	age := f.now().Sub(time.Unix(d.UpdatedAt, 0))
	if err := f.cache.SetTTL(ctx, key, d, detailTTL(age)); err != nil {
		f.log.Warn().Err(err).Str("key", key).Msg("detail cache write failed")
	}
	return d, nil
}

// Invalidate drops every cached entry whose key mentions url and arms the
// avoid-cache marker so the next detail lookup goes remote even if a search
// entry re-caches meanwhile.
func (f *Fetcher) Invalidate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.cache.DeleteMatching(ctx, url); err != nil {
		return fmt.Errorf("invalidate %q: %w", url, err)
	}
	if err := f.avoidCache.SetTTL(ctx, url, true, avoidCacheTTL); err != nil {
		return fmt.Errorf("arm avoid-cache for %q: %w", url, err)
	}
	return nil
}
