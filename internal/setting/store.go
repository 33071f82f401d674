package setting

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/events"
	"github.com/beequen/beequen/internal/fsutil"
)

// Publisher is the part of the event bus the store needs.
type Publisher interface {
	Publish(event events.Event)
}

// Store reads and writes setting.json.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
	bus    Publisher
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithPublisher publishes setting_changed events after saves and reloads.
func WithPublisher(bus Publisher) Option {
	return func(s *Store) { s.bus = bus }
}

// NewStore creates a store backed by path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored setting. A missing file yields Default. Content
// that fails validation is repaired field by field and logged; it never
// fails the call.
func (s *Store) Load() (Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Setting, error) {
	data, ok, err := fsutil.ReadOptional(s.path)
	if err != nil {
		return Default(), fmt.Errorf("reading setting: %w", err)
	}
	if !ok {
		return Default(), nil
	}

	setting, replaced, err := Normalize(data)
	if err != nil {
		return Default(), err
	}
	if len(replaced) > 0 {
		s.logger.Warn("setting file has invalid values, using defaults for them",
			"path", s.path, "locations", replaced)
	}
	return setting, nil
}

// Save validates setting and writes it atomically.
func (s *Store) Save(setting Setting) error {
	if err := Check(setting); err != nil {
		return err
	}
	return s.write(setting)
}

// SaveJSON validates raw JSON, then stores the decoded setting. Unknown
// keys are accepted and dropped.
func (s *Store) SaveJSON(data []byte) error {
	if err := CheckJSON(data); err != nil {
		return err
	}
	setting := Default()
	if err := json.Unmarshal(data, &setting); err != nil {
		return invalidSetting(err.Error())
	}
	return s.write(setting)
}

func (s *Store) write(setting Setting) error {
	s.mu.Lock()
	err := fsutil.WriteJSON(s.path, setting)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("saving setting: %w", err)
	}

	s.logger.Debug("setting saved", "path", s.path)
	if s.bus != nil {
		s.bus.Publish(events.NewSettingChangedEvent("saved"))
	}
	return nil
}

// Reload announces that the file was changed by someone else.
func (s *Store) Reload() error {
	if _, err := s.Load(); err != nil {
		return err
	}
	if s.bus != nil {
		s.bus.Publish(events.NewSettingChangedEvent("reloaded"))
	}
	return nil
}

func invalidSetting(msg string) error {
	return core.ErrValidation(core.CodeInvalidSetting, msg)
}
