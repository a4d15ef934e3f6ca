package exclusion_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/raysh454/hdrscan/internal/exclusion"
	"github.com/raysh454/hdrscan/internal/testutil"
)

func newStore() *exclusion.Store {
	return exclusion.NewStore(&testutil.DummyLogger{})
}

func TestStore_CRUD(t *testing.T) {
	t.Parallel()
	s := newStore()

	host, err := s.AddRule(exclusion.RuleHost, "a.test")
	if err != nil {
		t.Fatalf("AddRule: %v", err)
	}
	path, err := s.AddRule(exclusion.RulePath, "/static/*")
	if err != nil {
		t.Fatalf("AddRule: %v", err)
	}

	if got, ok := s.Get(host.ID()); !ok || got != host {
		t.Errorf("Get = %v, %v", got, ok)
	}
	if !s.ShouldExclude("GET", "https://a.test/x") || !s.ShouldExclude("GET", "https://b.test/static/app.js") {
		t.Error("expected matches for both rules")
	}
	if s.ShouldExclude("GET", "https://b.test/") {
		t.Error("unexpected match")
	}

	updated, err := s.Update(host.ID(), exclusion.RuleEndpoint, "GET https://b.test/")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID() != host.ID() {
		t.Errorf("update changed id: %q -> %q", host.ID(), updated.ID())
	}
	if list := s.List(); len(list) != 2 || list[0].ID() != host.ID() || list[1] != path {
		t.Errorf("update should keep position, got %v", list)
	}
	if !s.ShouldExclude("GET", "https://b.test/") || s.ShouldExclude("GET", "https://a.test/x") {
		t.Error("updated rule not in effect")
	}

	if err := s.Remove(path.ID()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(path.ID()); !errors.Is(err, exclusion.ErrRuleNotFound) {
		t.Errorf("second Remove: %v", err)
	}
	if _, err := s.Update("missing", exclusion.RuleHost, "x"); !errors.Is(err, exclusion.ErrRuleNotFound) {
		t.Errorf("Update missing: %v", err)
	}
	if err := s.Add(updated); !errors.Is(err, exclusion.ErrDuplicateRule) {
		t.Errorf("duplicate Add: %v", err)
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Clear left %d rules", s.Len())
	}
}

func TestStore_UpdateValidates(t *testing.T) {
	t.Parallel()
	s := newStore()
	r, _ := s.AddRule(exclusion.RuleHost, "a.test")

	if _, err := s.Update(r.ID(), exclusion.RuleHost, ""); !errors.Is(err, exclusion.ErrBlankPattern) {
		t.Errorf("expected ErrBlankPattern, got %v", err)
	}
	if got, _ := s.Get(r.ID()); got != r {
		t.Errorf("failed update must not change the rule, got %v", got)
	}
}

func TestStore_ListIsSnapshot(t *testing.T) {
	t.Parallel()
	s := newStore()
	s.AddRule(exclusion.RuleHost, "a.test")

	list := s.List()
	s.AddRule(exclusion.RuleHost, "b.test")
	list[0] = exclusion.Rule{}

	if len(list) != 1 {
		t.Errorf("snapshot grew to %d", len(list))
	}
	if got := s.List(); len(got) != 2 || got[0].Pattern() != "a.test" {
		t.Errorf("store affected by snapshot mutation: %v", got)
	}
}

func TestStore_ListenersInOrderWithCurrentSnapshot(t *testing.T) {
	t.Parallel()
	s := newStore()

	var mu sync.Mutex
	var calls []string
	record := func(name string) exclusion.Listener {
		return func(rules []exclusion.Rule) {
			// the new state is already visible to readers
			if len(rules) != s.Len() {
				t.Errorf("%s: listener saw %d rules, store has %d", name, len(rules), s.Len())
			}
			mu.Lock()
			calls = append(calls, fmt.Sprintf("%s:%d", name, len(rules)))
			mu.Unlock()
		}
	}
	s.Subscribe(record("first"))
	unsubscribe := s.Subscribe(record("second"))

	r, _ := s.AddRule(exclusion.RuleHost, "a.test")
	s.Update(r.ID(), exclusion.RuleHost, "b.test")
	unsubscribe()
	unsubscribe()
	s.Remove(r.ID())
	s.Clear()

	want := []string{"first:1", "second:1", "first:1", "second:1", "first:0", "first:0"}
	mu.Lock()
	defer mu.Unlock()
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestStore_FailedMutationDoesNotNotify(t *testing.T) {
	t.Parallel()
	s := newStore()
	n := 0
	s.Subscribe(func([]exclusion.Rule) { n++ })

	s.Remove("missing")
	s.Update("missing", exclusion.RuleHost, "x")
	if n != 0 {
		t.Errorf("listeners notified %d times for no-op mutations", n)
	}
}

func TestStore_Watch(t *testing.T) {
	t.Parallel()
	s := newStore()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Watch(ctx, 4)

	s.AddRule(exclusion.RuleHost, "a.test")
	select {
	case rules := <-ch:
		if len(rules) != 1 {
			t.Errorf("watched snapshot has %d rules", len(rules))
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}

	cancel()
	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
	// writes after the watcher is gone must not panic
	s.AddRule(exclusion.RuleHost, "b.test")
}

func TestStore_Load(t *testing.T) {
	t.Parallel()
	s := newStore()
	err := s.Load([]exclusion.RuleSpec{
		{ID: "a", Type: "HOST", Pattern: "a.test"},
		{Type: "PATH", Pattern: "/health"},
		{Type: "URL", Pattern: "x"},
	})
	if !errors.Is(err, exclusion.ErrUnknownRuleType) {
		t.Errorf("expected ErrUnknownRuleType, got %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("expected rules before the bad spec to load, got %d", s.Len())
	}
}

func TestStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	t.Parallel()
	s := newStore()
	const batch = 5

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				rules := s.List()
				for _, r := range rules {
					if r.ID() == "" || r.Pattern() == "" {
						t.Error("reader observed a zero rule")
						return
					}
				}
				s.ShouldExclude("GET", "https://h.test/p")
			}
		}()
	}

	for round := 0; round < 50; round++ {
		for i := 0; i < batch; i++ {
			if _, err := s.AddRule(exclusion.RulePath, fmt.Sprintf("/r%d/%d", round, i)); err != nil {
				t.Fatalf("AddRule: %v", err)
			}
		}
		if round%2 == 0 {
			s.Clear()
		}
	}
	cancel()
	wg.Wait()
}
