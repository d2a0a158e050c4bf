// cmd/aozora/feeds.go
package main

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
)

// Article represents a single candidate news item pulled from a feed
type Article struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Summary string `json:"summary"`
}

// FetchResult represents the outcome of fetching one source
type FetchResult struct {
	Source   string
	Articles []Article
	Err      error
}

// Fetcher retrieves candidate articles from the configured RSS sources and
// picks one at random. The random choice over the merged pool (rather than
// "newest first") is deliberate: it spreads posts across feeds over repeated
// runs instead of chasing whichever source updates most often.
type Fetcher struct {
	client    *http.Client
	userAgent string

	mutex   sync.RWMutex
	sources []Source

	rngMutex sync.Mutex
	rng      *rand.Rand
}

// NewFetcher creates a fetcher over the given sources
func NewFetcher(sources []Source, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		userAgent: userAgent,
		sources:   sources,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetSources replaces the source list (used by the sources file watcher)
func (f *Fetcher) SetSources(sources []Source) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.sources = sources
}

// Sources returns a copy of the current source list
func (f *Fetcher) Sources() []Source {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	out := make([]Source, len(f.sources))
	copy(out, f.sources)
	return out
}

// setRandomSource swaps the random source; tests use this for determinism
func (f *Fetcher) setRandomSource(src rand.Source) {
	f.rngMutex.Lock()
	defer f.rngMutex.Unlock()
	f.rng = rand.New(src)
}

// FetchAll queries every active source and merges all entries into one
// candidate pool. A source that errors or returns nothing contributes
// nothing; individual source failures never abort the fetch.
func (f *Fetcher) FetchAll(ctx context.Context) []Article {
	sources := ActiveSources(f.Sources())
	if len(sources) == 0 {
		return nil
	}

	results := make(chan FetchResult, len(sources))
	semaphore := make(chan struct{}, MaxConcurrentFeeds)
	var wg sync.WaitGroup

	for _, source := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			articles, err := f.fetchSource(ctx, src)
			results <- FetchResult{Source: src.Name, Articles: articles, Err: err}
		}(source)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var pool []Article
	for result := range results {
		if result.Err != nil {
			Logger().Warning("Feed %s failed: %v", result.Source, result.Err)
			continue
		}
		pool = append(pool, result.Articles...)
	}
	return pool
}

// SelectCandidate fetches the full candidate pool and picks one article
// uniformly at random. Returns nil when no source produced any entries.
func (f *Fetcher) SelectCandidate(ctx context.Context) *Article {
	pool := f.FetchAll(ctx)
	if len(pool) == 0 {
		return nil
	}

	f.rngMutex.Lock()
	idx := f.rng.Intn(len(pool))
	f.rngMutex.Unlock()

	article := pool[idx]
	return &article
}

// fetchSource retrieves and parses a single feed
func (f *Fetcher) fetchSource(ctx context.Context, src Source) ([]Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, NewFeedError(ErrFeedFetch, "invalid feed URL "+src.URL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, NewFeedError(ErrFeedFetch, "request to "+src.URL+" failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewFeedError(ErrFeedFetch, "feed "+src.URL+" returned "+resp.Status, nil)
	}

	// gofeed parsers are cheap; one per fetch avoids sharing across goroutines
	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, NewFeedError(ErrFeedFetch, "failed to parse feed "+src.URL, err)
	}

	var articles []Article
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		articles = append(articles, Article{
			Title:   item.Title,
			Link:    item.Link,
			Summary: item.Description,
		})
	}
	return articles, nil
}
