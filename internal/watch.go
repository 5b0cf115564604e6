package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce is how long a changed file is left alone before it is proved, so
// that editors writing in several steps trigger one run.
const debounce = 100 * time.Millisecond

// ReportHandler receives the outcome of every run triggered by a change.
type ReportHandler func(*Report, error)

// StartWatching re-proves module files under dirs whenever they change,
// until ctx is done or StopWatching is called.
func (e *Engine) StartWatching(ctx context.Context, dirs []string, handle ReportHandler) error {
	if e.isWatching.Load() {
		return fmt.Errorf("already watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			watcher.Close()
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	e.watcher = watcher
	e.isWatching.Store(true)
	go e.watchLoop(ctx, handle)
	return nil
}

func (e *Engine) StopWatching() error {
	if !e.isWatching.Swap(false) {
		e.logger.Info("not watching")
		return nil
	}
	return e.watcher.Close()
}

func (e *Engine) watchLoop(ctx context.Context, handle ReportHandler) {
	for e.isWatching.Load() {
		select {
		case <-ctx.Done():
			_ = e.StopWatching()
			return
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			e.handleFileEvent(ctx, event, handle)
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.logger.Error("watch error", zap.Error(err))
		}
	}
}

func (e *Engine) handleFileEvent(ctx context.Context, event fsnotify.Event, handle ReportHandler) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !IsModuleFile(event.Name) {
		return
	}
	time.Sleep(debounce)

	e.logger.Info("module changed", zap.String("file", event.Name))
	report, err := e.Run(ctx, event.Name)
	if err != nil {
		e.logger.Error("error proving module", zap.String("file", event.Name), zap.Error(err))
	}
	if handle != nil {
		handle(report, err)
	}
}
