package runner

import (
	"errors"
	"os"
	"sync"
)

// ErrAlreadyRunning is returned when an execution ID is reserved twice.
var ErrAlreadyRunning = errors.New("Execution already running")

// Registry maps execution IDs to running processes. At most one execution
// per ID exists at any time. A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	execs map[string]*execution
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{execs: make(map[string]*execution)}
}

// execution is the registry entry for one reserved ID. The process is
// attached after spawn; a cancel that arrives before then is remembered and
// applied on attach.
type execution struct {
	mu        sync.Mutex
	proc      *os.Process
	cancelled bool
}

func (e *execution) attach(p *os.Process) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.proc = p
	if e.cancelled {
		_ = p.Kill()
	}
}

// kill sends SIGKILL. Errors from a process that already exited are ignored.
func (e *execution) kill() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled = true
	if e.proc != nil {
		_ = e.proc.Kill()
	}
}

// Reserve claims id. It fails with ErrAlreadyRunning if id is in use.
func (r *Registry) Reserve(id string) error {
	_, err := r.reserve(id)
	return err
}

func (r *Registry) reserve(id string) (*execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.execs[id]; ok {
		return nil, ErrAlreadyRunning
	}
	e := &execution{}
	r.execs[id] = e
	return e, nil
}

// Release frees id. Releasing an unknown id is a no-op.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.execs, id)
}

// Cancel kills the process running under id. Cancelling an unknown id
// succeeds without doing anything. The entry stays in place until the
// runner settles the execution and releases it.
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	e, ok := r.execs[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	e.kill()
	return nil
}

// Running reports whether id is currently reserved.
func (r *Registry) Running(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.execs[id]
	return ok
}
