// Package watch reruns a build whenever its input file changes.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Op is a change to the watched file.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// Event describes one change.
type Event struct {
	Path string
	Op   Op
}

// Watcher follows a single file. The parent directory is watched so that
// editors replacing the file through a rename are still seen.
type Watcher struct {
	w        *fsnotify.Watcher
	path     string
	debounce time.Duration
	log      zerolog.Logger
	evC      chan Event
	erC      chan error
}

// New starts watching path.
func New(path string, debounce time.Duration, log zerolog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	fw := &Watcher{
		w:        w,
		path:     abs,
		debounce: debounce,
		log:      log,
		evC:      make(chan Event, 128),
		erC:      make(chan error, 1),
	}
	go fw.loop()
	return fw, nil
}

func convertOp(o fsnotify.Op) Op {
	var op Op
	if o&fsnotify.Create != 0 {
		op |= OpCreate
	}
	if o&fsnotify.Write != 0 {
		op |= OpWrite
	}
	if o&fsnotify.Remove != 0 {
		op |= OpRemove
	}
	if o&fsnotify.Rename != 0 {
		op |= OpRename
	}
	if o&fsnotify.Chmod != 0 {
		op |= OpChmod
	}
	return op
}

func (fw *Watcher) loop() {
	defer close(fw.evC)
	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != fw.path {
				continue
			}
			// A full buffer already holds a pending rebuild.
			select {
			case fw.evC <- Event{Path: ev.Name, Op: convertOp(ev.Op)}:
			default:
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			select {
			case fw.erC <- err:
			default:
			}
		}
	}
}

func (fw *Watcher) Events() <-chan Event { return fw.evC }
func (fw *Watcher) Errors() <-chan error { return fw.erC }
func (fw *Watcher) Close() error         { return fw.w.Close() }

// Run calls build once and again after every burst of changes to the
// watched file, until ctx is done. Build failures are logged and do not
// stop the loop. Run closes the watcher before returning.
func (fw *Watcher) Run(ctx context.Context, build func(context.Context) error) error {
	defer fw.Close()
	fw.rebuild(ctx, build)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-fw.evC:
			if !ok {
				return nil
			}
			if ev.Op&(OpCreate|OpWrite|OpRename) == 0 {
				continue
			}
			fw.log.Debug().Str("path", ev.Path).Uint32("op", uint32(ev.Op)).Msg("input changed")
			if timer == nil {
				timer = time.NewTimer(fw.debounce)
			} else {
				timer.Reset(fw.debounce)
			}
			fire = timer.C
		case err := <-fw.erC:
			fw.log.Warn().Err(err).Msg("watch error")
		case <-fire:
			fire = nil
			fw.rebuild(ctx, build)
		}
	}
}

func (fw *Watcher) rebuild(ctx context.Context, build func(context.Context) error) {
	start := time.Now()
	if err := build(ctx); err != nil {
		fw.log.Error().Err(err).Str("path", fw.path).Msg("rebuild failed")
		return
	}
	fw.log.Info().Str("path", fw.path).Dur("elapsed", time.Since(start)).Msg("rebuilt")
}
