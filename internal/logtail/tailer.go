// Package logtail streams lines appended to a growing log file as a
// cancellable channel. Attach starts at end-of-file so history is never
// replayed; truncation rewinds the cursor to the start of the new content.
package logtail

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultInterval = 500 * time.Millisecond

// Tailer follows one log file. A Tailer is restartable: each Run call
// attaches fresh.
type Tailer struct {
	path     string
	interval time.Duration
}

func New(path string) *Tailer {
	return NewWithInterval(path, DefaultInterval)
}

func NewWithInterval(path string, interval time.Duration) *Tailer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Tailer{path: path, interval: interval}
}

// Run starts tailing and returns the line channel. The channel is closed
// when ctx is cancelled. A missing file is not an error; the tailer keeps
// retrying each tick and attaches at offset 0 once the file appears.
func (t *Tailer) Run(ctx context.Context) <-chan string {
	lines := make(chan string, 64)
	// Attach at end-of-file so existing content is not replayed. A file
	// that does not exist yet attaches at 0: everything it ever receives
	// was appended after this point. The snapshot happens before the
	// goroutine starts so attach-time is Run-time, not some later instant.
	cur := &cursor{}
	if fi, err := os.Stat(t.path); err == nil {
		cur.offset = fi.Size()
	}
	go t.loop(ctx, cur, lines)
	return lines
}

type cursor struct {
	offset  int64
	partial []byte
}

func (t *Tailer) loop(ctx context.Context, cur *cursor, lines chan<- string) {
	defer close(lines)

	// fsnotify wakes the reader between ticks so appends surface promptly.
	// The ticker remains the source of truth; a failed watcher just means
	// pure polling.
	var events chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(t.path)); err == nil {
			events = make(chan fsnotify.Event)
			go func() {
				defer close(events)
				for {
					select {
					case <-ctx.Done():
						return
					case ev, ok := <-watcher.Events:
						if !ok {
							return
						}
						if ev.Name == t.path && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
							select {
							case events <- ev:
							case <-ctx.Done():
								return
							}
						}
					case _, ok := <-watcher.Errors:
						if !ok {
							return
						}
					}
				}
			}()
		}
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-events:
		}
		if !t.poll(ctx, cur, lines) {
			return
		}
	}
}

// poll reads bytes appended since the cursor and emits complete lines.
// Returns false when ctx was cancelled mid-emit.
func (t *Tailer) poll(ctx context.Context, cur *cursor, lines chan<- string) bool {
	fi, err := os.Stat(t.path)
	if err != nil {
		// Missing or rotated away; resume from the start of whatever
		// appears next.
		cur.offset = 0
		cur.partial = nil
		return true
	}

	if fi.Size() < cur.offset {
		cur.offset = 0
		cur.partial = nil
	}
	if fi.Size() == cur.offset {
		return true
	}

	f, err := os.Open(t.path)
	if err != nil {
		return true
	}
	defer f.Close()

	if _, err := f.Seek(cur.offset, io.SeekStart); err != nil {
		return true
	}
	data, err := io.ReadAll(f)
	if err != nil && len(data) == 0 {
		return true
	}
	cur.offset += int64(len(data))

	cur.partial = append(cur.partial, data...)
	for {
		idx := bytes.IndexByte(cur.partial, '\n')
		if idx < 0 {
			return true
		}
		line := string(bytes.TrimRight(cur.partial[:idx], "\r"))
		cur.partial = cur.partial[idx+1:]
		select {
		case lines <- line:
		case <-ctx.Done():
			return false
		}
	}
}
