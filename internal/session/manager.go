package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kareemzeiad-ops/kero-feeder/internal/advisory"
	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrNotAllocated      = errors.New("ration has not been allocated yet")
	ErrNoSuggestion      = errors.New("no suggestion available")
	ErrUnknownIngredient = errors.New("ingredient is not in the catalog")
	ErrInvalidContext    = errors.New("invalid animal context")
	ErrAdvisoryDisabled  = errors.New("advisory service is not configured")
)

const defaultAdviseTimeout = 90 * time.Second

type Options struct {
	Dataset *ration.Dataset
	Rules   ration.AllocationRules
	// Advisor may be nil; sessions then work without suggestions.
	Advisor       advisory.Advisor
	Metrics       *advisory.Metrics
	Logger        *slog.Logger
	Debounce      time.Duration
	AdviseTimeout time.Duration
	// AutoAdvise arms the debounced background analysis after every edit.
	AutoAdvise bool
}

func (o Options) withDefaults() Options {
	if o.Dataset == nil {
		o.Dataset = ration.Builtin()
	}
	if o.Rules.BulkDefault == "" {
		o.Rules = ration.DefaultRules()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Debounce <= 0 {
		o.Debounce = advisory.DefaultDebounce
	}
	if o.AdviseTimeout <= 0 {
		o.AdviseTimeout = defaultAdviseTimeout
	}
	return o
}

// Manager owns the live formulation sessions of the HTTP surface.
type Manager struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(opts Options) *Manager {
	return &Manager{opts: opts.withDefaults(), sessions: map[string]*Session{}}
}

func (m *Manager) Dataset() *ration.Dataset {
	return m.opts.Dataset
}

func (m *Manager) Create(ac ration.AnimalContext) (*Session, error) {
	ac, err := ValidateContext(m.opts.Dataset, ac)
	if err != nil {
		return nil, err
	}
	s := newSession(uuid.NewString(), ac, m.opts)
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	m.opts.Logger.Info("session_created", "session_id", s.id, "animal", ac.Animal, "purpose", ac.Purpose)
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Close()
	m.opts.Logger.Info("session_deleted", "session_id", id)
	return nil
}

func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close stops every session's pending analysis.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

// ValidateContext checks an animal context against the reference dataset.
// Milk yield is dropped for purposes other than dairy.
func ValidateContext(data *ration.Dataset, ac ration.AnimalContext) (ration.AnimalContext, error) {
	ac.Animal = strings.TrimSpace(ac.Animal)
	ac.Purpose = strings.TrimSpace(ac.Purpose)
	if !data.HasAnimalType(ac.Animal) {
		return ac, fmt.Errorf("%w: unknown animal type %q", ErrInvalidContext, ac.Animal)
	}
	if !data.HasPurpose(ac.Purpose) {
		return ac, fmt.Errorf("%w: unknown purpose %q", ErrInvalidContext, ac.Purpose)
	}
	if ac.WeightKg <= 0 {
		return ac, fmt.Errorf("%w: weight must be positive", ErrInvalidContext)
	}
	if ac.MilkKg < 0 {
		return ac, fmt.Errorf("%w: milk yield must be >= 0", ErrInvalidContext)
	}
	if ac.Purpose != ration.PurposeDairy {
		ac.MilkKg = 0
	}
	return ac, nil
}
