package speech

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrClosed is returned when writing a clip after Shutdown.
var ErrClosed = errors.New("speech: feedback shut down")

// registry tracks temp audio files that still exist on disk so they can be
// removed at shutdown even if the worker that created them never finishes.
type registry struct {
	mu     sync.Mutex
	files  map[string]struct{}
	closed bool
}

func newRegistry() *registry {
	return &registry{files: make(map[string]struct{})}
}

// write creates dir/name exclusively, registers it and writes data. On a
// write failure the file is removed again.
func (r *registry) write(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrClosed
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		r.mu.Unlock()
		return "", fmt.Errorf("create temp audio: %w", err)
	}
	r.files[path] = struct{}{}
	r.mu.Unlock()

	_, werr := f.Write(data)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		r.remove(path)
		return "", fmt.Errorf("write temp audio: %w", err)
	}
	return path, nil
}

// remove deletes path and unregisters it. A file that cannot be deleted
// stays registered for the next purge.
func (r *registry) remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove temp audio: %w", err)
	}
	r.mu.Lock()
	delete(r.files, path)
	r.mu.Unlock()
	return nil
}

// close refuses further writes and deletes every registered file.
func (r *registry) close() error {
	r.mu.Lock()
	r.closed = true
	paths := r.pathsLocked()
	r.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := r.remove(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *registry) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pathsLocked()
}

func (r *registry) pathsLocked() []string {
	out := make([]string, 0, len(r.files))
	for p := range r.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
