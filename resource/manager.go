package resource

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync/atomic"

	"gitlab.com/kyle_anderson/go-utils/pkg/set"

	"github.com/tmaxted/oriel/audio"
	"github.com/tmaxted/oriel/graphics"
	"github.com/tmaxted/oriel/task"
	"github.com/tmaxted/oriel/vfs"
)

// Manager is the resource facade: synchronous import/export through the
// handler registry, and asynchronous Load entry points backed by the
// staged-task scheduler.
//
// Import, Export and Register are safe at any time before Dispose; the
// Load methods and the scheduler must be driven from a single goroutine,
// conventionally the render loop.
type Manager struct {
	fsys *vfs.FS
	dev  graphics.Device
	aud  audio.Engine

	handlers   []FormatHandler
	registered set.Set[FormatHandler]

	sched    *task.Scheduler
	disposed atomic.Bool
}

// NewManager creates a manager over the given filesystem and backends.
// The two built-in handlers (native container, WAV) are always installed
// first and therefore cannot be shadowed by later registrations.
func NewManager(fsys *vfs.FS, dev graphics.Device, aud audio.Engine) *Manager {
	m := &Manager{
		fsys:       fsys,
		dev:        dev,
		aud:        aud,
		registered: set.NewComparable[FormatHandler](),
		sched:      task.NewScheduler(),
	}
	for _, h := range []FormatHandler{&nativeHandler{}, &wavHandler{}} {
		m.handlers = append(m.handlers, h)
		m.registered.Add(h)
	}
	return m
}

// FS returns the manager's filesystem.
func (m *Manager) FS() *vfs.FS { return m.fsys }

// Graphics returns the graphics device loads buffer into.
func (m *Manager) Graphics() graphics.Device { return m.dev }

// Audio returns the audio engine sound loads target.
func (m *Manager) Audio() audio.Engine { return m.aud }

// Scheduler returns the staged-task scheduler. Drive it once per frame
// with Continue.
func (m *Manager) Scheduler() *task.Scheduler { return m.sched }

// Pending returns the number of in-flight load tasks.
func (m *Manager) Pending() int { return m.sched.Pending() }

// Dispose tears the manager down. Subsequent operations fail with
// ErrDisposed. In-flight import goroutines may outlive disposal; their
// results are dropped when their tasks are never advanced again.
func (m *Manager) Dispose() {
	m.disposed.Store(true)
	m.fsys.Dispose()
}

func (m *Manager) check() error {
	if m.disposed.Load() {
		return ErrDisposed
	}
	return nil
}

// Register appends a format handler to the registry. The built-in
// handlers stay ahead of it in match order. Registering the same handler
// twice is rejected.
func (m *Manager) Register(h FormatHandler) error {
	if err := m.check(); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("%w: nil handler", ErrInvalidArgument)
	}
	if m.registered.Contains(h) {
		return fmt.Errorf("%w: handler already registered", ErrInvalidArgument)
	}
	m.handlers = append(m.handlers, h)
	m.registered.Add(h)
	return nil
}

// Import synchronously imports the resource at p as a T. The path must
// be absolute. Errors carry the package taxonomy.
func Import[T any](m *Manager, p Path) (T, error) {
	var zero T
	v, err := m.importAny(p)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q decoded to %T, want %T", ErrInvalidArgument, p, v, zero)
	}
	return t, nil
}

func (m *Manager) importAny(p Path) (any, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	if !p.IsAbsolute() {
		return nil, fmt.Errorf("%w: path %q must be absolute", ErrInvalidArgument, p)
	}
	h := m.importerFor(p.Ext())
	if h == nil {
		return nil, fmt.Errorf("%w: no import handler for extension %q", ErrNotSupported, p.Ext())
	}
	v, err := m.callImport(h, p)
	if err != nil {
		if classified(err) {
			return nil, err
		}
		return nil, &HandlerError{Path: p, Err: err}
	}
	if v == nil {
		return nil, &HandlerError{Path: p, Err: errors.New("handler produced no data")}
	}
	return v, nil
}

// callImport isolates handler panics so one faulty codec cannot take the
// caller down.
func (m *Manager) callImport(h FormatHandler, p Path) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, &HandlerError{Path: p, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return h.Import(m, p)
}

// Export synchronously writes res to p through a matching handler.
// The filesystem must be writable; an existing destination is only
// replaced when overwrite is set.
func (m *Manager) Export(res any, p Path, overwrite bool) error {
	if err := m.check(); err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("%w: nil resource", ErrInvalidArgument)
	}
	if !p.IsAbsolute() {
		return fmt.Errorf("%w: path %q must be absolute", ErrInvalidArgument, p)
	}
	if !m.fsys.Writable() {
		return fmt.Errorf("%w: filesystem does not support writing", ErrNotSupported)
	}
	h := m.exporterFor(p.Ext())
	if h == nil {
		return fmt.Errorf("%w: no export handler for extension %q", ErrNotSupported, p.Ext())
	}
	if !overwrite && m.fsys.Exists(p.File()) {
		return fmt.Errorf("%w: %q already exists", ErrIO, p.File())
	}
	if err := m.callExport(h, res, p); err != nil {
		if classified(err) {
			return err
		}
		return &HandlerError{Path: p, Err: err}
	}
	return nil
}

func (m *Manager) callExport(h FormatHandler, res any, p Path) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Path: p, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return h.Export(res, m, p)
}

// OpenResource opens p's file for reading, mapping filesystem errors
// into the package taxonomy. Format handlers read through this.
func (m *Manager) OpenResource(p Path) (fs.File, error) {
	f, err := m.fsys.Open(p.File())
	switch {
	case err == nil:
		return f, nil
	case errors.Is(err, vfs.ErrDisposed):
		return nil, fmt.Errorf("%w: %v", ErrDisposed, err)
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %q", ErrNotFound, p.File())
	default:
		return nil, fmt.Errorf("%w: open %q: %v", ErrIO, p.File(), err)
	}
}

// CreateResource opens p's file for writing, creating parent directories.
func (m *Manager) CreateResource(p Path) (io.WriteCloser, error) {
	if err := m.fsys.MkdirAll(parentDir(p.File())); err != nil {
		return nil, fmt.Errorf("%w: mkdir for %q: %v", ErrIO, p.File(), err)
	}
	w, err := m.fsys.Create(p.File())
	switch {
	case err == nil:
		return w, nil
	case errors.Is(err, vfs.ErrDisposed):
		return nil, fmt.Errorf("%w: %v", ErrDisposed, err)
	case errors.Is(err, vfs.ErrReadOnly):
		return nil, fmt.Errorf("%w: filesystem does not support writing", ErrNotSupported)
	default:
		return nil, fmt.Errorf("%w: create %q: %v", ErrIO, p.File(), err)
	}
}
