// cmd/aozora/publisher.go
package main

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Publisher creates exactly one Bluesky post per successful call. When an
// image URL is supplied it downloads the bytes, uploads them as a blob, and
// embeds the result; otherwise it creates a text-only post.
type Publisher struct {
	bsky    *BlueskyClient
	client  *http.Client
	limiter *rate.Limiter
}

// NewPublisher creates a publisher over an authenticated Bluesky client.
// Posts are spaced out to stay clear of PDS rate limits.
func NewPublisher(bsky *BlueskyClient) *Publisher {
	return &Publisher{
		bsky: bsky,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// Publish posts text with an optional image attachment and returns the post
// URI. Any failure leaves no post behind and must be treated by the caller
// as a retryable run failure.
func (p *Publisher) Publish(ctx context.Context, text, imageURL string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", NewPublishError(ErrPublishRateLimit, "rate limiter interrupted", err)
	}

	if imageURL == "" {
		uri, err := p.bsky.CreatePost(ctx, text, nil, "")
		if err != nil {
			return "", err
		}
		Logger().Info("Posted text-only: %s", uri)
		return uri, nil
	}

	data, contentType, err := p.downloadImage(ctx, imageURL)
	if err != nil {
		return "", err
	}

	blob, err := p.bsky.UploadBlob(ctx, data, contentType)
	if err != nil {
		return "", err
	}

	uri, err := p.bsky.CreatePost(ctx, text, blob, ImageAltText)
	if err != nil {
		return "", err
	}
	Logger().Info("Posted with image: %s", uri)
	return uri, nil
}

// downloadImage fetches the resolved image bytes. A non-success response is
// an ImageFetch error, which fails the run without recording the article.
func (p *Publisher) downloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", NewImageError(ErrImageFetch, "building image request failed", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", NewImageError(ErrImageFetch, "image download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", NewImageError(ErrImageFetch, "image download returned "+resp.Status, nil)
	}

	// Read one byte past the cap so an oversized image is rejected rather
	// than uploaded as a truncated prefix.
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, "", NewImageError(ErrImageFetch, "reading image body failed", err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", NewImageError(ErrImageFetch, "image exceeds size limit", nil)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}
