// cmd/aozora/constants.go
package main

import "time"

// VERSION is the current bot version
const VERSION = "1.2.0"

const (
	// DefaultTimeout is the timeout applied to outbound HTTP requests
	DefaultTimeout = 30 * time.Second

	// MaxConcurrentFeeds limits parallel feed fetches
	MaxConcurrentFeeds = 5

	// MaxImageBytes caps downloaded attachment size. Bluesky rejects
	// blobs above roughly 1MB, so anything larger is pointless to pull.
	MaxImageBytes = 1000000

	// MaxPostLength is the Bluesky post character limit
	MaxPostLength = 300

	// ImageAltText is the accessibility label attached to image embeds
	ImageAltText = "Relevant news image"
)
