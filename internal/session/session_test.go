package session_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/kareemzeiad-ops/kero-feeder/internal/advisory"
	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
	"github.com/kareemzeiad-ops/kero-feeder/internal/session"
)

type fakeAdvisor struct {
	mu      sync.Mutex
	calls   []advisory.Request
	reply   advisory.Suggestion
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeAdvisor) Advise(ctx context.Context, req advisory.Request) (advisory.Suggestion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	block, started := f.block, f.started
	reply, err := f.reply, f.err
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return advisory.Suggestion{}, ctx.Err()
		}
	}
	return reply, err
}

func (f *fakeAdvisor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func dairyContext() ration.AnimalContext {
	return ration.AnimalContext{Animal: "بقر", Purpose: "حلاب", WeightKg: 450, MilkKg: 20}
}

func allocated(t *testing.T, m *session.Manager) *session.Session {
	t.Helper()
	s, err := m.Create(dairyContext())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Select("ذرة صفراء", "كسب صويا", "ملح طعام"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := s.Allocate(); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestManagerLifecycle(t *testing.T) {
	t.Parallel()

	m := session.NewManager(session.Options{})
	defer m.Close()

	if _, err := m.Create(ration.AnimalContext{Animal: "ماعز", Purpose: "حلاب", WeightKg: 40}); !errors.Is(err, session.ErrInvalidContext) {
		t.Fatalf("expected invalid context, got %v", err)
	}
	if _, err := m.Create(ration.AnimalContext{Animal: "بقر", Purpose: "حلاب"}); !errors.Is(err, session.ErrInvalidContext) {
		t.Fatalf("expected invalid weight, got %v", err)
	}

	s, err := m.Create(ration.AnimalContext{Animal: "جاموس", Purpose: "تسمين", WeightKg: 300, MilkKg: 8})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.View().Context.MilkKg != 0 {
		t.Fatalf("milk must be dropped outside dairy")
	}
	got, err := m.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("get: %v", err)
	}
	if err := m.Delete(s.ID()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionEditing(t *testing.T) {
	t.Parallel()

	m := session.NewManager(session.Options{})
	defer m.Close()
	s, err := m.Create(dairyContext())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.Allocate(); !errors.Is(err, session.ErrNotAllocated) {
		t.Fatalf("expected empty selection error, got %v", err)
	}
	if _, err := s.Select("حجر القمر"); !errors.Is(err, session.ErrUnknownIngredient) {
		t.Fatalf("expected unknown ingredient, got %v", err)
	}
	if _, err := s.SetWeight("كسب صويا", "10"); !errors.Is(err, session.ErrNotAllocated) {
		t.Fatalf("expected not allocated, got %v", err)
	}

	s = allocated(t, m)
	v := s.View()
	if v.Distribution["ملح طعام"] != 10 || v.Distribution["كسب صويا"] != 250 || v.Distribution["ذرة صفراء"] != 740 {
		t.Fatalf("unexpected allocation: %v", v.Distribution)
	}
	if v.Profile == nil || math.Abs(v.Profile.DailyConcentrate-14.5) > 1e-9 {
		t.Fatalf("unexpected profile: %+v", v.Profile)
	}

	v, err = s.SetWeight("كسب صويا", "bad")
	if err != nil || v.Distribution["كسب صويا"] != 250 {
		t.Fatalf("invalid weight must be ignored, got %v %v", v.Distribution, err)
	}
	v, _ = s.SetWeight("كسب صويا", "200")
	if v.Total != 950 {
		t.Fatalf("expected total 950, got %v", v.Total)
	}
	found := false
	for _, w := range v.Warnings {
		if w.Code == ration.WarnBatchTotal {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected batch warning, got %+v", v.Warnings)
	}

	if _, err := s.Add("مجهول"); !errors.Is(err, session.ErrUnknownIngredient) {
		t.Fatalf("expected unknown ingredient, got %v", err)
	}
	v, err = s.Add("نخالة قمح")
	if err != nil || !v.Distribution.Has("نخالة قمح") {
		t.Fatalf("add: %v %v", v.Distribution, err)
	}

	v, err = s.DefineCustom(ration.CustomInput{Name: "برسيم", Protein: "17"})
	if err != nil || !v.Distribution.Has("برسيم") || len(v.Custom) != 1 {
		t.Fatalf("define custom: %+v %v", v, err)
	}
	if _, err := s.DefineCustom(ration.CustomInput{Name: "x"}); !errors.Is(err, ration.ErrInvalidCustomIngredient) {
		t.Fatalf("expected custom error, got %v", err)
	}

	v = s.Reset()
	if v.Allocated || len(v.Selection) != 0 || len(v.Custom) != 0 || v.Context.Purpose != "حلاب" {
		t.Fatalf("unexpected reset view: %+v", v)
	}
}

func TestAdviseAndApply(t *testing.T) {
	t.Parallel()

	adv := &fakeAdvisor{reply: advisory.Suggestion{
		Commentary:       "زود البروتين",
		SuggestedWeights: ration.Distribution{"ذرة صفراء": 600, "كسب صويا": 300, "جلوتين": 90, "ملح طعام": 10},
		ExpectedProtein:  19,
		AddedIngredients: []string{"جلوتين"},
	}}
	m := session.NewManager(session.Options{Advisor: adv})
	defer m.Close()
	s := allocated(t, m)

	if _, err := s.ApplySuggestion(); !errors.Is(err, session.ErrNoSuggestion) {
		t.Fatalf("expected no suggestion, got %v", err)
	}

	v, err := s.Advise(context.Background())
	if err != nil {
		t.Fatalf("advise: %v", err)
	}
	if v.Advice.Suggestion == nil || v.Advice.Stale {
		t.Fatalf("expected fresh suggestion, got %+v", v.Advice)
	}
	changed := map[string]ration.Change{}
	for _, c := range v.Advice.Changes {
		changed[c.Name] = c
	}
	if !changed["جلوتين"].Added || changed["ملح طعام"].Changed {
		t.Fatalf("unexpected changes: %+v", v.Advice.Changes)
	}

	v, err = s.ApplySuggestion()
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !v.Distribution.Equal(adv.reply.SuggestedWeights) {
		t.Fatalf("expected suggested distribution, got %v", v.Distribution)
	}
	if v.Advice.Suggestion != nil {
		t.Fatalf("applied suggestion must be cleared")
	}
	if v.Selection[len(v.Selection)-1] != "جلوتين" {
		t.Fatalf("expected added ingredient in selection, got %v", v.Selection)
	}
}

func TestApplyStaleSuggestionReplacesEdits(t *testing.T) {
	t.Parallel()

	adv := &fakeAdvisor{reply: advisory.Suggestion{
		SuggestedWeights: ration.Distribution{"ذرة صفراء": 700, "كسب صويا": 290, "ملح طعام": 10},
	}}
	m := session.NewManager(session.Options{Advisor: adv})
	defer m.Close()
	s := allocated(t, m)

	if _, err := s.Advise(context.Background()); err != nil {
		t.Fatalf("advise: %v", err)
	}
	v, err := s.SetWeight("كسب صويا", "200")
	if err != nil {
		t.Fatalf("set weight: %v", err)
	}
	if !v.Advice.Stale {
		t.Fatalf("edit after advice should mark it stale, got %+v", v.Advice)
	}
	v, err = s.ApplySuggestion()
	if err != nil {
		t.Fatalf("apply stale: %v", err)
	}
	if !v.Distribution.Equal(adv.reply.SuggestedWeights) {
		t.Fatalf("expected suggested distribution, got %v", v.Distribution)
	}
}

func TestAdviseFailureKeepsDistribution(t *testing.T) {
	t.Parallel()

	adv := &fakeAdvisor{err: advisory.ErrMissingCredential}
	m := session.NewManager(session.Options{Advisor: adv})
	defer m.Close()
	s := allocated(t, m)
	before := s.View().Distribution

	v, err := s.Advise(context.Background())
	if !errors.Is(err, advisory.ErrMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}
	if !v.Distribution.Equal(before) || v.Advice.Suggestion != nil || v.Advice.Error == "" {
		t.Fatalf("failure must leave state untouched: %+v", v)
	}

	noAdvisor := session.NewManager(session.Options{})
	defer noAdvisor.Close()
	if _, err := allocated(t, noAdvisor).Advise(context.Background()); !errors.Is(err, session.ErrAdvisoryDisabled) {
		t.Fatalf("expected disabled advisory, got %v", err)
	}
}

func TestAutoAdviseDebouncesAndSkipsSettled(t *testing.T) {
	t.Parallel()

	adv := &fakeAdvisor{reply: advisory.Suggestion{IsBalanced: true, SuggestedWeights: ration.Distribution{"ذرة صفراء": 1000}}}
	m := session.NewManager(session.Options{Advisor: adv, AutoAdvise: true, Debounce: 20 * time.Millisecond})
	defer m.Close()
	s := allocated(t, m)

	_, _ = s.SetWeight("كسب صويا", "240")
	_, _ = s.SetWeight("كسب صويا", "250")

	waitFor(t, func() bool { return s.View().Advice.Suggestion != nil })
	if n := adv.callCount(); n != 1 {
		t.Fatalf("expected one debounced call, got %d", n)
	}

	// back to the settled content before the window closes
	_, _ = s.SetWeight("كسب صويا", "240")
	_, _ = s.SetWeight("كسب صويا", "250")
	time.Sleep(80 * time.Millisecond)
	if n := adv.callCount(); n != 1 {
		t.Fatalf("unchanged ration must not be re-analyzed, got %d calls", n)
	}
}

func TestStaleAdviceIsDiscarded(t *testing.T) {
	t.Parallel()

	adv := &fakeAdvisor{
		reply:   advisory.Suggestion{SuggestedWeights: ration.Distribution{"ذرة صفراء": 1000}},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	m := session.NewManager(session.Options{Advisor: adv})
	defer m.Close()
	s := allocated(t, m)

	done := make(chan session.View, 1)
	go func() {
		v, _ := s.Advise(context.Background())
		done <- v
	}()
	<-adv.started
	if !s.View().Advice.Pending {
		t.Fatalf("expected pending advice")
	}
	_, _ = s.SetWeight("كسب صويا", "100")
	close(adv.block)

	v := <-done
	if v.Advice.Suggestion != nil {
		t.Fatalf("stale suggestion must be discarded, got %+v", v.Advice.Suggestion)
	}
	if v.Distribution["كسب صويا"] != 100 {
		t.Fatalf("live edit lost: %v", v.Distribution)
	}
}
