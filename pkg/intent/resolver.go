package intent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrResolverClosed is returned when a resolver stops before supplying an intent
var ErrResolverClosed = errors.New("resolver closed")

// Snapshot is one update from a resolver. Refreshing is raised while a new
// intent is being computed; Intent is then the last known one.
type Snapshot struct {
	Intent     *FundingIntent
	Refreshing bool
}

// Resolver supplies intent snapshots. The channel is closed when the
// resolver stops.
type Resolver interface {
	Updates() <-chan Snapshot
}

// StaticResolver emits a single snapshot and closes
type StaticResolver struct {
	ch chan Snapshot
}

func NewStaticResolver(fi *FundingIntent) *StaticResolver {
	ch := make(chan Snapshot, 1)
	ch <- Snapshot{Intent: fi}
	close(ch)
	return &StaticResolver{ch: ch}
}

func (r *StaticResolver) Updates() <-chan Snapshot {
	return r.ch
}

// FileResolver loads an intent document from disk and reloads it whenever
// the file is rewritten.
type FileResolver struct {
	path string
	log  *zap.SugaredLogger

	updates chan Snapshot
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	last *FundingIntent
}

func NewFileResolver(path string, log *zap.SugaredLogger) (*FileResolver, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &FileResolver{
		path:    abs,
		log:     log,
		updates: make(chan Snapshot, 4),
	}, nil
}

func (r *FileResolver) Updates() <-chan Snapshot {
	return r.updates
}

// Last returns the most recently loaded intent
func (r *FileResolver) Last() *FundingIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Start loads the file and watches it until ctx is done. The initial load
// must succeed.
func (r *FileResolver) Start(ctx context.Context) error {
	fi, err := Load(r.path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", r.path, err)
	}
	r.watcher = watcher

	r.mu.Lock()
	r.last = fi
	r.mu.Unlock()
	r.updates <- Snapshot{Intent: fi}

	go r.run(ctx)
	return nil
}

func (r *FileResolver) run(ctx context.Context) {
	defer close(r.updates)
	defer r.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !r.reload(ctx) {
				return
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warnw("intent watcher error", "path", r.path, "err", err)
		}
	}
}

// reload raises refreshing, re-reads the file and publishes the result. A
// document that fails to load keeps the previous intent.
func (r *FileResolver) reload(ctx context.Context) bool {
	last := r.Last()
	if !r.publish(ctx, Snapshot{Intent: last, Refreshing: true}) {
		return false
	}

	fi, err := Load(r.path)
	if err != nil {
		r.log.Warnw("failed to reload intent", "path", r.path, "err", err)
		fi = last
	} else {
		r.mu.Lock()
		r.last = fi
		r.mu.Unlock()
		r.log.Debugw("intent reloaded", "path", r.path)
	}

	return r.publish(ctx, Snapshot{Intent: fi})
}

func (r *FileResolver) publish(ctx context.Context, s Snapshot) bool {
	select {
	case r.updates <- s:
		return true
	case <-ctx.Done():
		return false
	}
}
