package main

import (
	"sync"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogDebug},
		{"info", LogInfo},
		{"warn", LogWarning},
		{"Warning", LogWarning},
		{"ERROR", LogError},
		{"  error ", LogError},
		{"garbage", LogInfo},
		{"", LogInfo},
	}
	for _, tc := range cases {
		if got := parseLogLevel(tc.in); got != tc.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoggerConcurrentFirstUse(t *testing.T) {
	loggers := make([]*AppLogger, 8)
	var wg sync.WaitGroup
	for i := range loggers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loggers[i] = Logger()
		}(i)
	}
	wg.Wait()

	for i, l := range loggers {
		if l == nil {
			t.Fatalf("goroutine %d got a nil logger", i)
		}
		if l != loggers[0] {
			t.Fatal("concurrent callers received different logger instances")
		}
	}
}
