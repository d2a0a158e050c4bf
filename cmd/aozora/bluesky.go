// cmd/aozora/bluesky.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// BlueskyClient is a minimal XRPC client for the three calls the bot needs:
// session creation, blob upload, and record creation. The session is
// established once at startup and reused by every run.
type BlueskyClient struct {
	host     string
	handle   string
	password string
	client   *http.Client

	mutex     sync.RWMutex
	accessJwt string
	did       string
}

// BlobRef mirrors the blob object returned by com.atproto.repo.uploadBlob
// and embedded verbatim into image posts.
type BlobRef struct {
	Type string `json:"$type"`
	Ref  struct {
		Link string `json:"$link"`
	} `json:"ref"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// NewBlueskyClient creates a client for the given PDS host
func NewBlueskyClient(host, handle, password string) *BlueskyClient {
	return &BlueskyClient{
		host:     host,
		handle:   handle,
		password: password,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// CreateSession authenticates with the handle and app password, storing the
// access token and DID for subsequent calls.
func (c *BlueskyClient) CreateSession(ctx context.Context) error {
	payload := map[string]string{
		"identifier": c.handle,
		"password":   c.password,
	}

	var result struct {
		AccessJwt string `json:"accessJwt"`
		Did       string `json:"did"`
	}
	if err := c.postJSON(ctx, "com.atproto.server.createSession", payload, &result, false); err != nil {
		return NewPublishError(ErrPublishSession, "createSession failed", err)
	}
	if result.AccessJwt == "" || result.Did == "" {
		return NewPublishError(ErrPublishSession, "createSession returned no token", nil)
	}

	c.mutex.Lock()
	c.accessJwt = result.AccessJwt
	c.did = result.Did
	c.mutex.Unlock()
	return nil
}

// UploadBlob pushes raw image bytes and returns the resulting blob reference
func (c *BlueskyClient) UploadBlob(ctx context.Context, data []byte, contentType string) (*BlobRef, error) {
	jwt, _ := c.session()
	if jwt == "" {
		return nil, NewPublishError(ErrPublishSession, "no active session", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.host+"/xrpc/com.atproto.repo.uploadBlob", bytes.NewReader(data))
	if err != nil {
		return nil, NewPublishError(ErrPublishUpload, "building upload request failed", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+jwt)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewPublishError(ErrPublishUpload, "uploadBlob request failed", err)
	}
	defer resp.Body.Close()

	if err := checkXRPCStatus(resp); err != nil {
		return nil, NewPublishError(ErrPublishUpload, "uploadBlob rejected", err)
	}

	var result struct {
		Blob BlobRef `json:"blob"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, NewPublishError(ErrPublishUpload, "failed to decode uploadBlob response", err)
	}
	return &result.Blob, nil
}

// CreatePost creates an app.bsky.feed.post record, optionally embedding one
// image with the given accessibility label. Returns the post URI.
func (c *BlueskyClient) CreatePost(ctx context.Context, text string, image *BlobRef, alt string) (string, error) {
	jwt, did := c.session()
	if jwt == "" {
		return "", NewPublishError(ErrPublishSession, "no active session", nil)
	}

	record := map[string]interface{}{
		"$type":     "app.bsky.feed.post",
		"text":      text,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}
	if image != nil {
		record["embed"] = map[string]interface{}{
			"$type": "app.bsky.embed.images",
			"images": []map[string]interface{}{
				{
					"image": image,
					"alt":   alt,
				},
			},
		}
	}

	payload := map[string]interface{}{
		"repo":       did,
		"collection": "app.bsky.feed.post",
		"record":     record,
	}

	var result struct {
		URI string `json:"uri"`
	}
	if err := c.postJSON(ctx, "com.atproto.repo.createRecord", payload, &result, true); err != nil {
		return "", NewPublishError(ErrPublishPost, "createRecord failed", err)
	}
	if result.URI == "" {
		return "", NewPublishError(ErrPublishPost, "createRecord returned no uri", nil)
	}
	return result.URI, nil
}

// session returns the current token and DID
func (c *BlueskyClient) session() (string, string) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.accessJwt, c.did
}

// postJSON performs one authenticated (or anonymous) JSON XRPC call
func (c *BlueskyClient) postJSON(ctx context.Context, method string, payload, result interface{}, auth bool) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.host+"/xrpc/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth {
		jwt, _ := c.session()
		req.Header.Set("Authorization", "Bearer "+jwt)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	if err := checkXRPCStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// checkXRPCStatus turns a non-2xx XRPC response into an error carrying the
// server's error body, which is where atproto puts the useful detail.
func checkXRPCStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("xrpc status %s: %s", resp.Status, bytes.TrimSpace(detail))
}
