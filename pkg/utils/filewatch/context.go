package filewatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// ErrModified is the cause of a context canceled by a file modification.
var ErrModified = errors.New("filewatch: watched file is modified")

// UntilModifyContext returns a context that is canceled
// when one of target files is written, created, removed, or renamed.
//
// Attribute changes (chmod) are ignored.
// The cause of cancellation (context.Cause) wraps ErrModified.
//
// # Args
//
// - ctx: parent context.
//
// - targetFilePath ...string: files (or directories) to be watched.
//
// # Returns
//
// - context.Context: context that is canceled when one of target files is modified.
//
// - func(): stops watching and cancels the context.
//
// - error: error caused when it fails to start watching files.
// If error is not nil, both of the context and the cancel function are nil.
func UntilModifyContext(ctx context.Context, targetFilePath ...string) (context.Context, func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	for _, f := range targetFilePath {
		if err := w.Add(f); err != nil {
			w.Close()
			return nil, nil, err
		}
	}

	cctx, cancel := context.WithCancelCause(ctx)
	go func() {
		defer w.Close()

		for {
			select {
			case <-cctx.Done():
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cancel(fmt.Errorf("filewatch: watcher stopped: %w", err))
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op == fsnotify.Chmod {
					continue
				}
				cancel(fmt.Errorf("%w: %s (%s)", ErrModified, event.Name, event.Op))
				return
			}
		}
	}()

	return cctx, func() { cancel(nil) }, nil
}
