package main

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSelector struct {
	article *Article
}

func (f *fakeSelector) SelectCandidate(ctx context.Context) *Article {
	return f.article
}

type fakeComposer struct {
	text  string
	err   error
	calls int
}

func (f *fakeComposer) Compose(ctx context.Context, article *Article) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeImageResolver struct {
	url   string
	calls int
}

func (f *fakeImageResolver) Resolve(ctx context.Context, query, pageURL string) string {
	f.calls++
	return f.url
}

type publishCall struct {
	text     string
	imageURL string
}

type fakePublisher struct {
	mu     sync.Mutex
	postID string
	err    error
	calls  []publishCall

	delay     time.Duration
	active    int32
	maxActive int32
}

func (f *fakePublisher) Publish(ctx context.Context, text, imageURL string) (string, error) {
	cur := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		max := atomic.LoadInt32(&f.maxActive)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxActive, max, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, publishCall{text: text, imageURL: imageURL})
	if f.err != nil {
		return "", f.err
	}
	return f.postID, nil
}

func (f *fakePublisher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestPipeline(t *testing.T) (*Pipeline, *fakeSelector, *fakeComposer, *fakeImageResolver, *fakePublisher, *Ledger) {
	t.Helper()
	selector := &fakeSelector{article: &Article{
		Title:   "Big News",
		Link:    "https://example.com/big-news",
		Summary: "Something happened",
	}}
	composer := &fakeComposer{text: "BREAKING: Something happened #news"}
	resolver := &fakeImageResolver{url: "https://img.example.com/pic.jpg"}
	publisher := &fakePublisher{postID: "at://did:plc:abc/app.bsky.feed.post/1"}
	ledger := NewLedger(filepath.Join(t.TempDir(), "posted_news.txt"))

	return NewPipeline(selector, composer, resolver, publisher, ledger), selector, composer, resolver, publisher, ledger
}

func TestRunOnceNoNews(t *testing.T) {
	p, selector, composer, _, publisher, ledger := newTestPipeline(t)
	selector.article = nil

	result, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeNoNews {
		t.Errorf("expected %s, got %s", OutcomeNoNews, result.Outcome)
	}
	if composer.calls != 0 || publisher.callCount() != 0 {
		t.Error("no downstream call expected on empty feed")
	}
	posted, _ := ledger.Load()
	if len(posted) != 0 {
		t.Error("ledger must stay unchanged on empty feed")
	}
}

func TestRunOnceAlreadyPosted(t *testing.T) {
	p, selector, composer, resolver, publisher, ledger := newTestPipeline(t)
	if err := ledger.Record(selector.article.Link); err != nil {
		t.Fatal(err)
	}

	result, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeAlreadyPosted {
		t.Errorf("expected %s, got %s", OutcomeAlreadyPosted, result.Outcome)
	}
	if composer.calls != 0 || resolver.calls != 0 || publisher.callCount() != 0 {
		t.Error("no generation, image, or publish calls expected for a known article")
	}
}

func TestRunOnceGenerationFailed(t *testing.T) {
	p, _, composer, _, publisher, ledger := newTestPipeline(t)
	composer.err = NewComposeError(ErrComposeAPI, "model unavailable", errors.New("boom"))

	result, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("generation failure must not surface as run error, got %v", err)
	}
	if result.Outcome != OutcomeGenerationFailed {
		t.Errorf("expected %s, got %s", OutcomeGenerationFailed, result.Outcome)
	}
	if publisher.callCount() != 0 {
		t.Error("publish must not happen without generated text")
	}
	posted, _ := ledger.Load()
	if len(posted) != 0 {
		t.Error("nothing may be recorded on generation failure")
	}
}

func TestRunOncePublishFailureStaysRetryable(t *testing.T) {
	p, selector, _, _, publisher, ledger := newTestPipeline(t)
	publisher.err = NewPublishError(ErrPublishPost, "createRecord failed", errors.New("503"))

	if _, err := p.RunOnce(context.Background()); err == nil {
		t.Fatal("expected publish failure to propagate")
	}
	posted, _ := ledger.Load()
	if len(posted) != 0 {
		t.Fatal("a failed publish must not be recorded")
	}

	// Same article selected again: publish must be attempted again.
	publisher.err = nil
	result, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if result.Outcome != OutcomePublished {
		t.Errorf("expected %s on retry, got %s", OutcomePublished, result.Outcome)
	}
	if publisher.callCount() != 2 {
		t.Errorf("expected 2 publish attempts, got %d", publisher.callCount())
	}
	posted, _ = ledger.Load()
	if _, ok := posted[selector.article.Link]; !ok {
		t.Error("successful retry must record the identifier")
	}
}

func TestRunOnceRecordsAfterPublishExactlyOnce(t *testing.T) {
	p, selector, _, _, publisher, ledger := newTestPipeline(t)

	result, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomePublished {
		t.Fatalf("expected %s, got %s", OutcomePublished, result.Outcome)
	}
	if result.PostID != publisher.postID {
		t.Errorf("expected post id %q, got %q", publisher.postID, result.PostID)
	}

	// Second run over the same feed pool converges to AlreadyPosted.
	result, err = p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeAlreadyPosted {
		t.Errorf("expected %s, got %s", OutcomeAlreadyPosted, result.Outcome)
	}
	if publisher.callCount() != 1 {
		t.Errorf("publisher invoked %d times for one identifier", publisher.callCount())
	}

	ids, _ := ledger.List()
	count := 0
	for _, id := range ids {
		if id == selector.article.Link {
			count++
		}
	}
	if count != 1 {
		t.Errorf("identifier recorded %d times, want 1", count)
	}
}

func TestRunOnceTextOnlyWhenNoImage(t *testing.T) {
	p, _, _, resolver, publisher, _ := newTestPipeline(t)
	resolver.url = ""

	result, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomePublished {
		t.Fatalf("expected %s, got %s", OutcomePublished, result.Outcome)
	}
	if publisher.callCount() != 1 {
		t.Fatalf("expected one publish call, got %d", publisher.callCount())
	}
	if publisher.calls[0].imageURL != "" {
		t.Errorf("expected text-only publish, got image %q", publisher.calls[0].imageURL)
	}
}

func TestRunOnceSerializesInterleavedRuns(t *testing.T) {
	p, selector, _, _, publisher, ledger := newTestPipeline(t)
	publisher.delay = 10 * time.Millisecond

	// Scheduled and manual runs share one pipeline; fire them together.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.RunOnce(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := publisher.callCount(); got != 1 {
		t.Errorf("identifier published %d times across interleaved runs, want 1", got)
	}
	if max := atomic.LoadInt32(&publisher.maxActive); max != 1 {
		t.Errorf("observed %d overlapping publishes, want 1", max)
	}

	ids, _ := ledger.List()
	count := 0
	for _, id := range ids {
		if id == selector.article.Link {
			count++
		}
	}
	if count != 1 {
		t.Errorf("identifier recorded %d times, want 1", count)
	}
}

func TestPreviewNextPublishesNothing(t *testing.T) {
	p, selector, _, _, publisher, ledger := newTestPipeline(t)

	preview, err := p.PreviewNext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preview.Article.Link != selector.article.Link {
		t.Errorf("preview article mismatch: %q", preview.Article.Link)
	}
	if preview.PostText == "" {
		t.Error("preview must carry generated text")
	}
	if publisher.callCount() != 0 {
		t.Error("preview must not publish")
	}
	posted, _ := ledger.Load()
	if len(posted) != 0 {
		t.Error("preview must not record")
	}
}

func TestRunOnceInvokesHook(t *testing.T) {
	p, _, _, _, _, _ := newTestPipeline(t)

	var seen []RunResult
	p.OnRun(func(result RunResult, err error) {
		seen = append(seen, result)
	})

	if _, err := p.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0].Outcome != OutcomePublished {
		t.Errorf("hook saw %v", seen)
	}
}
