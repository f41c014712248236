package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type autosaveTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// SetAutosave starts or stops the periodic background save. Disabling waits
// for an in-flight tick to finish.
func (e *GraphEngine) SetAutosave(enabled bool) {
	e.autosaveMu.Lock()
	defer e.autosaveMu.Unlock()

	if enabled {
		e.startAutosaveLocked()
	} else {
		e.stopAutosaveLocked()
	}

	e.mu.Lock()
	if e.graph != nil {
		e.graph.Settings.Autosave = enabled
	}
	e.mu.Unlock()
}

// AutosaveEnabled reports whether the background save is running.
func (e *GraphEngine) AutosaveEnabled() bool {
	e.autosaveMu.Lock()
	defer e.autosaveMu.Unlock()
	return e.autosave != nil
}

// SetAutosaveInterval changes the tick period, restarting a running task.
func (e *GraphEngine) SetAutosaveInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("autosave interval must be positive, got %s", interval)
	}

	e.autosaveMu.Lock()
	defer e.autosaveMu.Unlock()
	e.autosaveInterval = interval
	if e.autosave != nil {
		e.stopAutosaveLocked()
		e.startAutosaveLocked()
	}
	return nil
}

// AutosaveInterval returns the tick period.
func (e *GraphEngine) AutosaveInterval() time.Duration {
	e.autosaveMu.Lock()
	defer e.autosaveMu.Unlock()
	return e.autosaveInterval
}

func (e *GraphEngine) startAutosaveLocked() {
	if e.autosave != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	task := &autosaveTask{cancel: cancel, done: make(chan struct{})}
	e.autosave = task
	go e.runAutosave(ctx, e.autosaveInterval, task.done)
	e.logger.Info("Autosave enabled", zap.Duration("interval", e.autosaveInterval))
}

func (e *GraphEngine) stopAutosaveLocked() {
	if e.autosave == nil {
		return
	}
	e.autosave.cancel()
	<-e.autosave.done
	e.autosave = nil
	e.logger.Info("Autosave disabled")
}

func (e *GraphEngine) runAutosave(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.autosaveTick(ctx)
		}
	}
}

func (e *GraphEngine) autosaveTick(ctx context.Context) {
	if e.State() != StateReady {
		return
	}
	ok := e.SaveGraph(ctx)
	e.metrics.ObserveAutosave(ok)
	if ok {
		e.logger.Debug("Autosaved graph")
		return
	}
	e.logger.Warn("Autosave failed", zap.String("backend", e.BackendName()))
}
