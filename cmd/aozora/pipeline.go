// cmd/aozora/pipeline.go
package main

import (
	"context"
	"sync"
)

// RunOutcome classifies one pipeline run
type RunOutcome string

const (
	OutcomeNoNews           RunOutcome = "no_news"
	OutcomeAlreadyPosted    RunOutcome = "already_posted"
	OutcomeGenerationFailed RunOutcome = "generation_failed"
	OutcomePublished        RunOutcome = "published"
)

// RunResult is what one call to RunOnce produced
type RunResult struct {
	Outcome RunOutcome `json:"outcome"`
	PostID  string     `json:"postId,omitempty"`
	Article *Article   `json:"article,omitempty"`
}

// Preview is the operator-facing dry run of the next post
type Preview struct {
	Article  *Article `json:"article"`
	PostText string   `json:"postText"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// Collaborator contracts. The pipeline only sees these, so tests can swap in
// instrumented fakes for every external service.
type articleSelector interface {
	SelectCandidate(ctx context.Context) *Article
}

type postComposer interface {
	Compose(ctx context.Context, article *Article) (string, error)
}

type imageResolver interface {
	Resolve(ctx context.Context, query, pageURL string) string
}

type postPublisher interface {
	Publish(ctx context.Context, text, imageURL string) (string, error)
}

type postLedger interface {
	Load() (map[string]struct{}, error)
	Record(id string) error
}

// Pipeline is the deduplicated publish pipeline: select an unseen article,
// generate post text, resolve an image, publish, record. All invocations are
// serialized by a run lock; the scheduler loop and the dashboard's "run now"
// share one pipeline instance, and two interleaved runs could otherwise both
// pass the ledger check for the same article.
type Pipeline struct {
	runMutex  sync.Mutex
	selector  articleSelector
	composer  postComposer
	images    imageResolver
	publisher postPublisher
	ledger    postLedger

	hookMutex sync.RWMutex
	onRun     func(RunResult, error)
}

// NewPipeline wires the pipeline's collaborators together
func NewPipeline(selector articleSelector, composer postComposer, images imageResolver, publisher postPublisher, ledger postLedger) *Pipeline {
	return &Pipeline{
		selector:  selector,
		composer:  composer,
		images:    images,
		publisher: publisher,
		ledger:    ledger,
	}
}

// OnRun registers a hook invoked after every run, scheduled or manual
func (p *Pipeline) OnRun(hook func(RunResult, error)) {
	p.hookMutex.Lock()
	defer p.hookMutex.Unlock()
	p.onRun = hook
}

// RunOnce executes the full select-compose-resolve-publish-record sequence.
// The article identifier is recorded in the ledger only after the publish has
// succeeded; a failed publish leaves the article retryable on the next run.
func (p *Pipeline) RunOnce(ctx context.Context) (RunResult, error) {
	p.runMutex.Lock()
	defer p.runMutex.Unlock()

	result, err := p.run(ctx)
	p.notify(result, err)
	return result, err
}

func (p *Pipeline) run(ctx context.Context) (RunResult, error) {
	article := p.selector.SelectCandidate(ctx)
	if article == nil {
		Logger().Info("No news found this run")
		return RunResult{Outcome: OutcomeNoNews}, nil
	}

	// The ledger is re-read every run; an in-memory cache could go stale
	// against posts made from the dashboard path.
	posted, err := p.ledger.Load()
	if err != nil {
		return RunResult{}, err
	}
	if _, seen := posted[article.Link]; seen {
		Logger().Info("Already posted, skipping: %s", article.Link)
		return RunResult{Outcome: OutcomeAlreadyPosted, Article: article}, nil
	}

	Logger().Info("New headline detected: %s", article.Title)

	text, err := p.composer.Compose(ctx, article)
	if err != nil {
		Logger().Error("Failed to generate content: %v", err)
		return RunResult{Outcome: OutcomeGenerationFailed, Article: article}, nil
	}

	// Best effort; "" means text-only.
	imageURL := p.images.Resolve(ctx, article.Title, article.Link)

	postID, err := p.publisher.Publish(ctx, text, imageURL)
	if err != nil {
		// Deliberately not recorded: the same article must be retried
		// on the next scheduled or manual run.
		return RunResult{}, err
	}

	if err := p.ledger.Record(article.Link); err != nil {
		Logger().Error("Published %s but failed to record %s: %v", postID, article.Link, err)
		return RunResult{Outcome: OutcomePublished, PostID: postID, Article: article}, err
	}

	return RunResult{Outcome: OutcomePublished, PostID: postID, Article: article}, nil
}

// PreviewNext generates the next post without publishing or recording
func (p *Pipeline) PreviewNext(ctx context.Context) (*Preview, error) {
	article := p.selector.SelectCandidate(ctx)
	if article == nil {
		return nil, NewFeedError(ErrFeedEmpty, "no feed produced any entries", nil)
	}

	text, err := p.composer.Compose(ctx, article)
	if err != nil {
		return nil, err
	}

	return &Preview{
		Article:  article,
		PostText: text,
		ImageURL: p.images.Resolve(ctx, article.Title, article.Link),
	}, nil
}

func (p *Pipeline) notify(result RunResult, err error) {
	p.hookMutex.RLock()
	hook := p.onRun
	p.hookMutex.RUnlock()
	if hook != nil {
		hook(result, err)
	}
}
