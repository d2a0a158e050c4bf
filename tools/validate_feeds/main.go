// tools/validate_feeds/main.go
//
// Standalone checker for config/sources.yml: fetches every non-paused
// feed concurrently and verifies it parses as RSS/Atom.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v2"
)

type source struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Paused bool   `yaml:"paused"`
}

type result struct {
	source  source
	valid   bool
	skipped bool
	message string
	elapsed time.Duration
}

func main() {
	path := flag.String("sources", "config/sources.yml", "path to the sources file")
	timeout := flag.Duration("timeout", 10*time.Second, "per-feed fetch timeout")
	flag.Parse()

	fmt.Println("RSS Feed Validator")
	fmt.Println("==================")

	data, err := os.ReadFile(*path)
	if err != nil {
		fmt.Printf("Error reading sources file: %v\n", err)
		os.Exit(1)
	}

	var sources []source
	if err := yaml.Unmarshal(data, &sources); err != nil {
		fmt.Printf("Error parsing sources file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d sources to validate\n\n", len(sources))

	client := &http.Client{Timeout: *timeout}
	results := make(chan result, len(sources))

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src source) {
			defer wg.Done()
			results <- checkFeed(client, src)
		}(src)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var valid, invalid int
	var invalidNames []string
	for r := range results {
		switch {
		case r.skipped:
			fmt.Printf("⏭️  %-30s %s\n", r.source.Name, r.message)
		case r.valid:
			fmt.Printf("✅ %-30s [%5dms] %s\n", r.source.Name, r.elapsed.Milliseconds(), r.message)
			valid++
		default:
			fmt.Printf("❌ %-30s [%5dms] %s\n", r.source.Name, r.elapsed.Milliseconds(), r.message)
			invalid++
			invalidNames = append(invalidNames, r.source.Name)
		}
	}

	fmt.Println("\nValidation Summary:")
	fmt.Printf("Valid feeds:   %d\n", valid)
	fmt.Printf("Invalid feeds: %d\n", invalid)

	if invalid > 0 {
		fmt.Println("\nInvalid sources:")
		for _, name := range invalidNames {
			fmt.Printf("- %s\n", name)
		}
		os.Exit(1)
	}
}

func checkFeed(client *http.Client, src source) result {
	if src.Paused {
		return result{source: src, valid: true, skipped: true, message: "SKIPPED (paused)"}
	}

	start := time.Now()
	req, err := http.NewRequest("GET", src.URL, nil)
	if err != nil {
		return result{source: src, message: fmt.Sprintf("Invalid URL: %v", err), elapsed: time.Since(start)}
	}
	req.Header.Set("User-Agent", "Aozora Feed Validator/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return result{source: src, message: fmt.Sprintf("Request failed: %v", err), elapsed: time.Since(start)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return result{source: src, message: fmt.Sprintf("HTTP error: %s", resp.Status), elapsed: time.Since(start)}
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return result{source: src, message: fmt.Sprintf("Not a valid feed: %v", err), elapsed: time.Since(start)}
	}

	return result{
		source:  src,
		valid:   true,
		message: fmt.Sprintf("OK (%d items)", len(feed.Items)),
		elapsed: time.Since(start),
	}
}
