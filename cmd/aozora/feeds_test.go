package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Test Feed</title>
<link>https://example.com</link>
<item><title>Alpha</title><link>https://example.com/alpha</link><description>First story</description></item>
<item><title>Beta</title><link>https://example.com/beta</link><description>Second story</description></item>
<item><title>Gamma</title><link>https://example.com/gamma</link></item>
</channel>
</rss>`

func newFeedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSelectCandidateReturnsArticleFields(t *testing.T) {
	srv := newFeedServer(t, testFeed)
	f := NewFetcher([]Source{{Name: "test", URL: srv.URL}}, "test-agent")

	article := f.SelectCandidate(context.Background())
	if article == nil {
		t.Fatal("expected a candidate article")
	}
	if article.Title == "" || article.Link == "" {
		t.Errorf("article missing fields: %+v", article)
	}
	// Summary may legitimately be empty (the Gamma item), never absent.
	if article.Link == "https://example.com/alpha" && article.Summary != "First story" {
		t.Errorf("expected summary for alpha, got %q", article.Summary)
	}
}

func TestFetchAllAbsorbsFailingSource(t *testing.T) {
	good := newFeedServer(t, testFeed)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(bad.Close)

	f := NewFetcher([]Source{
		{Name: "bad", URL: bad.URL},
		{Name: "good", URL: good.URL},
	}, "test-agent")

	pool := f.FetchAll(context.Background())
	if len(pool) != 3 {
		t.Errorf("expected 3 articles from the healthy source, got %d", len(pool))
	}
}

func TestSelectCandidateEmptyFeeds(t *testing.T) {
	empty := newFeedServer(t, `<?xml version="1.0"?><rss version="2.0"><channel><title>Empty</title></channel></rss>`)
	f := NewFetcher([]Source{{Name: "empty", URL: empty.URL}}, "test-agent")

	if article := f.SelectCandidate(context.Background()); article != nil {
		t.Errorf("expected nil for empty pool, got %+v", article)
	}
}

func TestSelectCandidateNoSources(t *testing.T) {
	f := NewFetcher(nil, "test-agent")
	if article := f.SelectCandidate(context.Background()); article != nil {
		t.Errorf("expected nil without sources, got %+v", article)
	}
}

func TestFetchAllSkipsPausedSources(t *testing.T) {
	srv := newFeedServer(t, testFeed)
	f := NewFetcher([]Source{{Name: "paused", URL: srv.URL, Paused: true}}, "test-agent")

	if pool := f.FetchAll(context.Background()); len(pool) != 0 {
		t.Errorf("paused source contributed %d articles", len(pool))
	}
}

func TestSelectCandidateIsNotHardcodedToFirstEntry(t *testing.T) {
	srv := newFeedServer(t, testFeed)
	f := NewFetcher([]Source{{Name: "test", URL: srv.URL}}, "test-agent")
	f.setRandomSource(rand.NewSource(42))

	seen := make(map[string]bool)
	for i := 0; i < 60; i++ {
		article := f.SelectCandidate(context.Background())
		if article == nil {
			t.Fatal("expected a candidate")
		}
		seen[article.Link] = true
	}

	// Uniform choice over 3 entries across 60 trials hits each one.
	if len(seen) != 3 {
		t.Errorf("selection visited %d of 3 entries: %v", len(seen), seen)
	}
}

func TestSetSourcesSwapsList(t *testing.T) {
	first := newFeedServer(t, testFeed)
	f := NewFetcher([]Source{{Name: "first", URL: first.URL}}, "test-agent")

	f.SetSources([]Source{{Name: "gone", URL: first.URL, Paused: true}})
	if pool := f.FetchAll(context.Background()); len(pool) != 0 {
		t.Errorf("expected no articles after swap, got %d", len(pool))
	}
}
