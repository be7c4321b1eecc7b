package filesource

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reports which documents changed on disk. Bursts of events for the
// same file are collapsed into one notification.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	onChange func(uid string)
	log      zerolog.Logger
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher watches the directory holding documents of docType and calls
// onChange with the UID of every created, written, renamed or removed file.
func (s *Source) NewWatcher(docType string, onChange func(uid string), log zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filesource: create watcher: %w", err)
	}
	dir, err := filepath.Abs(filepath.Join(s.root, docType))
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("filesource: resolve %s: %w", docType, err)
	}
	return &Watcher{
		dir:      dir,
		watcher:  fw,
		onChange: onChange,
		log:      log,
		debounce: 200 * time.Millisecond,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Start begins watching. It returns once the watch is registered; events are
// processed until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("filesource: watch %s: %w", w.dir, err)
	}
	w.log.Info().Str("dir", w.dir).Msg("watching content")
	go w.loop(ctx)
	return nil
}

// Close stops the watcher and drops pending notifications.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for uid, t := range w.pending {
		t.Stop()
		delete(w.pending, uid)
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, ext) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(strings.TrimSuffix(name, ext))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("content watcher error")
		}
	}
}

func (w *Watcher) schedule(uid string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[uid]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[uid] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, uid)
		w.mu.Unlock()
		w.log.Debug().Str("uid", uid).Msg("content changed")
		w.onChange(uid)
	})
}
