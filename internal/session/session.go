package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kareemzeiad-ops/kero-feeder/internal/advisory"
	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
)

// Session is one user's formulation in progress. Every read and write of
// its state happens under mu; advisory calls run outside the lock and are
// matched back by the distribution key they were made for.
type Session struct {
	id   string
	opts Options

	mu        sync.Mutex
	ctx       ration.AnimalContext
	state     ration.State
	advice    *advisory.Suggestion
	adviceKey string
	adviceErr error
	pending   string

	deb    *advisory.Debouncer
	base   context.Context
	cancel context.CancelFunc
}

type View struct {
	ID           string               `json:"id"`
	Context      ration.AnimalContext `json:"context"`
	Selection    []string             `json:"selection"`
	Allocated    bool                 `json:"allocated"`
	Distribution ration.Distribution  `json:"distribution,omitempty"`
	Total        float64              `json:"total"`
	Custom       []ration.Ingredient  `json:"custom,omitempty"`
	Profile      *ration.Profile      `json:"profile,omitempty"`
	Warnings     []ration.Warning     `json:"warnings"`
	Available    []ration.Ingredient  `json:"available"`
	Advice       AdviceView           `json:"advice"`
}

type AdviceView struct {
	Pending    bool                 `json:"pending"`
	Suggestion *advisory.Suggestion `json:"suggestion,omitempty"`
	Changes    []ration.Change      `json:"changes,omitempty"`
	// Stale is set when the ration changed after the suggestion was made.
	Stale bool `json:"stale,omitempty"`
	// Error and Outcome describe the last failed call without its cause.
	Error   string `json:"error,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

// AdviceError is returned when an advisory call fails. Its message holds
// only the outcome label; the cause is kept for errors.Is and the log.
type AdviceError struct {
	Outcome string
	Err     error
}

func (e *AdviceError) Error() string {
	return fmt.Sprintf("%s (%s)", ErrNoSuggestion, e.Outcome)
}

func (e *AdviceError) Unwrap() error { return e.Err }

func newSession(id string, ac ration.AnimalContext, opts Options) *Session {
	base, cancel := context.WithCancel(context.Background())
	s := &Session{id: id, opts: opts, ctx: ac, base: base, cancel: cancel}
	s.deb = advisory.NewDebouncer(opts.Debounce, s.analyzeInBackground)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Close() {
	s.deb.Stop()
	s.cancel()
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) SetContext(ac ration.AnimalContext) (View, error) {
	ac, err := ValidateContext(s.opts.Dataset, ac)
	if err != nil {
		return s.View(), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ac
	return s.viewLocked(), nil
}

// Select adds ingredients to the selection. Every name must be known to the
// session catalog; nothing is selected when one of them is not.
func (s *Session) Select(names ...string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat := s.state.Catalog(s.opts.Dataset)
	next := s.state
	for _, name := range names {
		name = strings.TrimSpace(name)
		if _, ok := cat.Lookup(name); !ok {
			return s.viewLocked(), fmt.Errorf("%w: %s", ErrUnknownIngredient, name)
		}
		next = next.Select(name)
	}
	s.commitLocked(next)
	return s.viewLocked(), nil
}

func (s *Session) Deselect(name string) (View, error) {
	return s.update(func(st ration.State) (ration.State, error) {
		return st.Deselect(name), nil
	})
}

// Allocate creates the initial distribution from the selection. It is a
// no-op once a distribution exists.
func (s *Session) Allocate() (View, error) {
	return s.update(func(st ration.State) (ration.State, error) {
		if len(st.Selection) == 0 {
			return st, fmt.Errorf("%w: selection is empty", ErrNotAllocated)
		}
		return st.Allocate(s.opts.Dataset, s.opts.Rules), nil
	})
}

func (s *Session) SetWeight(name, raw string) (View, error) {
	return s.update(func(st ration.State) (ration.State, error) {
		if !st.Allocated() {
			return st, ErrNotAllocated
		}
		return st.SetWeight(name, raw), nil
	})
}

func (s *Session) Remove(name string) (View, error) {
	return s.update(func(st ration.State) (ration.State, error) {
		return st.Remove(name), nil
	})
}

// Add puts a catalog ingredient into the distribution at zero mass.
func (s *Session) Add(name string) (View, error) {
	return s.update(func(st ration.State) (ration.State, error) {
		if !st.Allocated() {
			return st, ErrNotAllocated
		}
		name = strings.TrimSpace(name)
		if _, ok := st.Catalog(s.opts.Dataset).Lookup(name); !ok {
			return st, fmt.Errorf("%w: %s", ErrUnknownIngredient, name)
		}
		return st.AddAtZero(name), nil
	})
}

func (s *Session) DefineCustom(in ration.CustomInput) (View, error) {
	return s.update(func(st ration.State) (ration.State, error) {
		return st.DefineCustom(in)
	})
}

// ApplySuggestion replaces the distribution with the latest suggestion.
func (s *Session) ApplySuggestion() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.advice == nil {
		return s.viewLocked(), ErrNoSuggestion
	}
	next := s.state.MergeSuggested(s.advice.SuggestedWeights, s.advice.AddedIngredients)
	s.advice = nil
	s.adviceKey = ""
	s.commitLocked(next)
	s.opts.Logger.Info("suggestion_applied", "session_id", s.id, "total", next.Distribution.Total())
	return s.viewLocked(), nil
}

// Reset clears the selection, distribution, custom ingredients and the
// latest suggestion. The animal context is kept.
func (s *Session) Reset() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ration.State{}
	s.advice = nil
	s.adviceKey = ""
	s.adviceErr = nil
	s.pending = ""
	s.deb.Reset()
	return s.viewLocked()
}

// Advise runs the advisory call right away, bypassing the debounce window.
func (s *Session) Advise(ctx context.Context) (View, error) {
	if s.opts.Advisor == nil {
		return s.View(), ErrAdvisoryDisabled
	}
	req, key, err := s.prepare()
	if err != nil {
		return s.View(), err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.AdviseTimeout)
	defer cancel()
	sug, callErr := s.opts.Advisor.Advise(ctx, req)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleLocked(key, sug, callErr)
	if callErr != nil {
		return s.viewLocked(), &AdviceError{Outcome: advisory.Outcome(callErr), Err: callErr}
	}
	return s.viewLocked(), nil
}

func (s *Session) update(fn func(ration.State) (ration.State, error)) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.state)
	if err != nil {
		return s.viewLocked(), err
	}
	s.commitLocked(next)
	return s.viewLocked(), nil
}

func (s *Session) commitLocked(next ration.State) {
	changed := next.Distribution.Key() != s.state.Distribution.Key() || next.Allocated() != s.state.Allocated()
	s.state = next
	if changed && next.Allocated() && s.opts.AutoAdvise && s.opts.Advisor != nil {
		s.deb.Notify(next.Distribution.Key())
	}
}

func (s *Session) prepare() (advisory.Request, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Allocated() {
		return advisory.Request{}, "", ErrNotAllocated
	}
	key := s.state.Distribution.Key()
	s.pending = key
	req := advisory.NewRequest(s.ctx, s.state.Distribution, s.state.Catalog(s.opts.Dataset))
	return req, key, nil
}

func (s *Session) analyzeInBackground(key string) {
	s.mu.Lock()
	live := s.state.Distribution.Key()
	s.mu.Unlock()
	if live != key {
		return
	}
	req, target, err := s.prepare()
	if err != nil || target != key {
		return
	}
	ctx, cancel := context.WithTimeout(s.base, s.opts.AdviseTimeout)
	defer cancel()
	sug, callErr := s.opts.Advisor.Advise(ctx, req)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleLocked(key, sug, callErr)
}

// settleLocked records the outcome of a call made for key. Results for a
// distribution that has since changed are dropped.
func (s *Session) settleLocked(key string, sug advisory.Suggestion, err error) {
	if s.pending == key {
		s.pending = ""
	}
	if !s.state.Allocated() || s.state.Distribution.Key() != key {
		s.opts.Metrics.Discarded()
		s.opts.Logger.Info("advice_discarded", "session_id", s.id, "reason", "stale")
		return
	}
	if err != nil {
		s.adviceErr = err
		s.opts.Logger.Warn("advice_failed", "session_id", s.id, "outcome", advisory.Outcome(err), "err", err)
		return
	}
	s.advice = &sug
	s.adviceKey = key
	s.adviceErr = nil
	s.deb.Settle(key)
	s.opts.Logger.Info("advice_received", "session_id", s.id, "balanced", sug.IsBalanced, "expected_protein", sug.ExpectedProtein)
}

func (s *Session) viewLocked() View {
	cat := s.state.Catalog(s.opts.Dataset)
	v := View{
		ID:        s.id,
		Context:   s.ctx,
		Selection: append([]string{}, s.state.Selection...),
		Allocated: s.state.Allocated(),
		Custom:    append([]ration.Ingredient(nil), s.state.Custom...),
		Warnings:  []ration.Warning{},
		Available: ration.Available(cat, s.state.Distribution),
	}
	if v.Allocated {
		d := s.state.Distribution.Clone()
		p := ration.Aggregate(d, cat, s.ctx)
		v.Distribution = d
		v.Total = p.Total
		v.Profile = &p
		v.Warnings = ration.Assess(d, p, s.opts.Dataset, s.ctx.Purpose)
	}
	v.Advice.Pending = s.pending != ""
	if s.adviceErr != nil {
		v.Advice.Error = ErrNoSuggestion.Error()
		v.Advice.Outcome = advisory.Outcome(s.adviceErr)
	}
	if s.advice != nil {
		sug := *s.advice
		sug.SuggestedWeights = sug.SuggestedWeights.Clone()
		sug.AddedIngredients = append([]string(nil), sug.AddedIngredients...)
		v.Advice.Suggestion = &sug
		v.Advice.Changes = ration.Compare(s.state.Distribution, sug.SuggestedWeights)
		v.Advice.Stale = s.adviceKey != s.state.Distribution.Key()
	}
	return v
}
