// cmd/aozora/digest.go
package main

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// DigestScheduler emits a daily operator digest summarizing ledger activity.
// It only logs and broadcasts; it never publishes to Bluesky.
type DigestScheduler struct {
	ledger *Ledger
	state  *StateStore
	notify func(kind, message string)
	cron   *cron.Cron
}

// NewDigestScheduler creates a digest job; notify may be nil
func NewDigestScheduler(ledger *Ledger, state *StateStore, notify func(kind, message string)) *DigestScheduler {
	return &DigestScheduler{
		ledger: ledger,
		state:  state,
		notify: notify,
		cron:   cron.New(),
	}
}

// Start installs the cron schedule (standard 5-field spec)
func (d *DigestScheduler) Start(schedule string) error {
	_, err := d.cron.AddFunc(schedule, func() {
		summary, err := d.Summary(5)
		if err != nil {
			Logger().Error("Failed to build digest: %v", err)
			return
		}
		Logger().Info("Daily digest: %s", summary)
		if d.notify != nil {
			d.notify("digest", summary)
		}
	})
	if err != nil {
		return NewSchedulerError(ErrSchedulerInterval, fmt.Sprintf("invalid digest schedule %q", schedule), err)
	}

	d.cron.Start()
	Logger().Info("Digest scheduled: %s", schedule)
	return nil
}

// Stop halts the digest cron, waiting for a running job to finish
func (d *DigestScheduler) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

// Summary describes total ledger size, lifetime counters, and the most
// recently posted identifiers.
func (d *DigestScheduler) Summary(recent int) (string, error) {
	ids, err := d.ledger.List()
	if err != nil {
		return "", err
	}

	state := d.state.Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "%d articles posted in total (%d runs, %d errors since startup).",
		len(ids), state.RunCount, state.ErrorCount)

	if len(ids) > 0 {
		if recent > len(ids) {
			recent = len(ids)
		}
		b.WriteString(" Most recent: ")
		b.WriteString(strings.Join(ids[len(ids)-recent:], ", "))
	}
	return b.String(), nil
}
