package main

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/janus-sync/janus/sync/core"
)

// consoleProgress renders Scan/Plan/Apply progress to a single status line,
// using humanize for human-friendly byte counts.
type consoleProgress struct {
	printer *statusLinePrinter

	totalBytes  uint64
	copiedBytes uint64

	mu      sync.Mutex
	started map[int]core.PlanAction
}

func newConsoleProgress(printer *statusLinePrinter) *consoleProgress {
	return &consoleProgress{printer: printer, started: make(map[int]core.PlanAction)}
}

func (c *consoleProgress) ScanStarted(root string) {
	c.printer.Print(fmt.Sprintf("Scanning %s...", root))
}

func (c *consoleProgress) ScanFinished(entries, problems int) {
	if problems > 0 {
		c.printer.Print(fmt.Sprintf("Scanned %d entries (%d problems)", entries, problems))
	} else {
		c.printer.Print(fmt.Sprintf("Scanned %d entries", entries))
	}
}

func (c *consoleProgress) PlanReady(summary core.PlanSummary) {
	atomic.StoreUint64(&c.totalBytes, summary.BytesToCopy)
	c.printer.Print(fmt.Sprintf(
		"Plan: %d copies, %d overwrites, %d renames, %d local copies, %d deletes (%s to transfer)",
		summary.Copies, summary.Overwrites, summary.Renames, summary.LocalCopies, summary.Deletes,
		humanize.Bytes(summary.BytesToCopy),
	))
}

func (c *consoleProgress) ActionStarted(index int, action core.PlanAction) {
	c.mu.Lock()
	c.started[index] = action
	c.mu.Unlock()
}

func (c *consoleProgress) ActionBytes(index int, delta uint64) {
	copied := atomic.AddUint64(&c.copiedBytes, delta)
	total := atomic.LoadUint64(&c.totalBytes)
	c.printer.Print(fmt.Sprintf("Copying... %s / %s", humanize.Bytes(copied), humanize.Bytes(total)))
}

func (c *consoleProgress) ActionDone(index int, action core.PlanAction, err error) {
	c.mu.Lock()
	delete(c.started, index)
	c.mu.Unlock()
	if err != nil {
		c.printer.BreakIfNonEmpty()
	}
}
