// SPDX-License-Identifier: EPL-2.0

// Package tempstore hands out uniquely named scratch files that are
// guaranteed to be removed, whatever way the code using them exits.
package tempstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const defaultPrefix = "audinfer-"

// ErrInvalidSuffix is returned for a suffix that would escape the store
// directory.
var ErrInvalidSuffix = errors.New("invalid temp file suffix")

// Store creates scratch files inside one directory.
type Store struct {
	dir    string
	prefix string
	log    *zap.Logger
	live   atomic.Int64
}

type Option func(*Store)

// WithLogger sets the logger cleanup failures are reported to.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithPrefix sets the file name prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New returns a store rooted at dir, creating it when missing. An empty
// dir uses the OS temp directory.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating temp dir %q: %w", dir, err)
	}

	s := &Store{
		dir:    dir,
		prefix: defaultPrefix,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Store) Dir() string { return s.dir }

// Live is the number of acquired resources not yet released.
func (s *Store) Live() int { return int(s.live.Load()) }

// Acquire creates a new empty file named prefix+uuid+suffix, open for
// writing. The caller must Release it.
func (s *Store) Acquire(suffix string) (*Resource, error) {
	if strings.ContainsAny(suffix, "/\\\x00") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSuffix, suffix)
	}

	path := filepath.Join(s.dir, s.prefix+uuid.NewString()+suffix)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	s.live.Add(1)

	return &Resource{store: s, path: path, file: f}, nil
}

// Scope acquires a resource, passes it to fn and releases it when fn
// returns or panics. fn's error is returned unchanged.
func (s *Store) Scope(suffix string, fn func(*Resource) error) error {
	r, err := s.Acquire(suffix)
	if err != nil {
		return err
	}
	defer r.Release()

	return fn(r)
}

// Resource is one scratch file. Its methods are safe to call after
// Release, which only happens once.
type Resource struct {
	store *Store
	path  string

	mtx  sync.Mutex
	file *os.File

	once sync.Once
}

func (r *Resource) Path() string { return r.path }

// File returns the open handle, or nil once released or closed.
func (r *Resource) File() *os.File {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.file
}

func (r *Resource) Write(p []byte) (int, error) {
	f := r.File()
	if f == nil {
		return 0, os.ErrClosed
	}
	return f.Write(p)
}

// CloseFile closes the handle and keeps the file on disk, for callers that
// hand the path to something else.
func (r *Resource) CloseFile() error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil

	return err
}

// Bytes reads the whole file back from disk.
func (r *Resource) Bytes() ([]byte, error) {
	if f := r.File(); f != nil {
		if err := f.Sync(); err != nil {
			return nil, fmt.Errorf("syncing temp file: %w", err)
		}
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("reading temp file: %w", err)
	}

	return data, nil
}

// Release closes and deletes the file. A file that is already gone is not
// an error. Cleanup failures are logged, never returned.
func (r *Resource) Release() {
	r.once.Do(func() {
		var err error

		if cerr := r.CloseFile(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
		if rerr := os.Remove(r.path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			err = multierr.Append(err, rerr)
		}

		r.store.live.Add(-1)

		if err != nil {
			r.store.log.Warn("temp file cleanup failed",
				zap.String("path", r.path),
				zap.Errors("errors", multierr.Errors(err)),
			)
		}
	})
}
