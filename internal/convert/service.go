package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/starford/ywmark/internal/merge"
	"github.com/starford/ywmark/internal/models"
	"github.com/starford/ywmark/internal/storage"
)

const lockRetryDelay = 100 * time.Millisecond

// Direction tells which way a conversion went.
type Direction string

const (
	DirectionExport Direction = "export"
	DirectionImport Direction = "import"
)

// Result describes a finished conversion.
type Result struct {
	Source      string             `json:"source"`
	Target      string             `json:"target"`
	Direction   Direction          `json:"direction"`
	Created     bool               `json:"created"`
	Stats       models.Stats       `json:"stats"`
	DroppedRefs []merge.DroppedRef `json:"dropped_refs,omitempty"`
	Duration    time.Duration      `json:"duration"`
}

// Message is the one-line summary shown to users.
func (r *Result) Message() string {
	if r.Created && r.Direction == DirectionImport {
		return fmt.Sprintf("File written: %q (new project)", r.Target)
	}
	return fmt.Sprintf("File written: %q", r.Target)
}

// Observer is told about every finished conversion. err is nil on success.
type Observer func(ctx context.Context, source string, res *Result, err error)

// ConfirmFunc asks whether the operation may proceed.
type ConfirmFunc func(question string) bool

// Service performs conversions on files of one storage provider. Runs are
// serialized within the process and, through the lock file, across
// processes.
type Service struct {
	store     storage.Provider
	logger    *slog.Logger
	observers []Observer

	mu   sync.Mutex
	lock *flock.Flock
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithLockFile sets the cross-process lock file.
func WithLockFile(path string) ServiceOption {
	return func(s *Service) { s.lock = flock.New(path) }
}

// WithObserver registers fn to be called after each conversion.
func WithObserver(fn Observer) ServiceOption {
	return func(s *Service) { s.observers = append(s.observers, fn) }
}

// DefaultLockFile is used when no lock file is configured.
func DefaultLockFile() string {
	return filepath.Join(os.TempDir(), "ywmark.lock")
}

// NewService creates a conversion service.
func NewService(store storage.Provider, opts ...ServiceOption) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.lock == nil {
		s.lock = flock.New(DefaultLockFile())
	}
	return s
}

// Store returns the storage provider the service works on.
func (s *Service) Store() storage.Provider {
	return s.store
}

// NewSession starts a conversion context. confirm may be nil, in which case
// existing files are overwritten without asking.
func (s *Service) NewSession(opts Options, confirm ConfirmFunc) *Session {
	return &Session{
		svc:     s,
		opts:    opts,
		confirm: confirm,
		codecs:  newCodecs(opts),
		logger:  s.logger,
	}
}

// acquire serializes runs. The returned func releases the locks.
func (s *Service) acquire(ctx context.Context) (func(), error) {
	s.mu.Lock()
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !ok {
		s.mu.Unlock()
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("convert: acquire lock %s: %w", s.lock.Path(), err)
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release conversion lock", slog.String("error", err.Error()))
		}
		s.mu.Unlock()
	}, nil
}

func (s *Service) notify(ctx context.Context, source string, res *Result, err error) {
	for _, fn := range s.observers {
		fn(ctx, source, res, err)
	}
}
