// cmd/aozora/images.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

const defaultSearchURL = "https://serpapi.com/search.json"

// ImageResolver turns a headline into an optional illustrative image URL.
// Primary lookup is a single safe-search SerpAPI image query; when that
// yields nothing it falls back to the article page's og:image tag.
type ImageResolver struct {
	client    *http.Client
	apiKey    string
	searchURL string
	userAgent string
}

// NewImageResolver creates a resolver using the given SerpAPI key
func NewImageResolver(apiKey, userAgent string) *ImageResolver {
	return &ImageResolver{
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		apiKey:    apiKey,
		searchURL: defaultSearchURL,
		userAgent: userAgent,
	}
}

// Resolve returns a direct image URL for the query, or "" when nothing can
// be found. Lookup failures are logged and absorbed; a missing image must
// never sink the pipeline.
func (r *ImageResolver) Resolve(ctx context.Context, query, pageURL string) string {
	imageURL, err := r.searchImage(ctx, query)
	if err != nil {
		Logger().Warning("Image search for %q failed: %v", query, err)
	}
	if imageURL != "" {
		return imageURL
	}

	if pageURL == "" {
		return ""
	}
	imageURL, err = r.extractOpenGraphImage(ctx, pageURL)
	if err != nil {
		Logger().Warning("og:image lookup on %s failed: %v", pageURL, err)
		return ""
	}
	return imageURL
}

// searchImage issues one safe-search image query and returns the top result
func (r *ImageResolver) searchImage(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("engine", "google_images")
	params.Set("q", query)
	params.Set("api_key", r.apiKey)
	params.Set("num", "1")
	params.Set("safe", "active")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", NewImageError(ErrImageSearch, "building search request failed", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", NewImageError(ErrImageSearch, "image search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", NewImageError(ErrImageSearch, "image search returned "+resp.Status, nil)
	}

	var result struct {
		ImagesResults []struct {
			Original string `json:"original"`
		} `json:"images_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", NewImageError(ErrImageSearch, "failed to decode search response", err)
	}

	if len(result.ImagesResults) == 0 {
		return "", nil
	}
	return result.ImagesResults[0].Original, nil
}

// extractOpenGraphImage scrapes the article page for its og:image meta tag
func (r *ImageResolver) extractOpenGraphImage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", NewImageError(ErrImageSearch, "building page request failed", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", NewImageError(ErrImageSearch, "page request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", NewImageError(ErrImageSearch, "page returned "+resp.Status, nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", NewImageError(ErrImageSearch, "failed to parse page", err)
	}

	content, _ := doc.Find(`meta[property="og:image"]`).First().Attr("content")
	return content, nil
}
