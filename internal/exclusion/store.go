package exclusion

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/raysh454/hdrscan/internal/logging"
)

// Listener receives the full rule list after every mutation. Listeners run
// synchronously on the mutating goroutine and must not call back into the
// Store's mutating methods or Subscribe.
type Listener func(rules []Rule)

type listenerEntry struct {
	id uint64
	fn Listener
}

// Store is a copy-on-write rule list. Reads load an immutable snapshot and
// never block; writers are serialised and publish a new snapshot before
// notifying listeners in registration order.
type Store struct {
	rules atomic.Pointer[[]Rule]

	mu        sync.Mutex
	listeners []listenerEntry
	nextID    uint64

	logger logging.Logger
}

// NewStore returns an empty store. A nil logger discards output.
func NewStore(logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	s := &Store{logger: logger.With(logging.Field{Key: "component", Value: "exclusion_store"})}
	empty := []Rule{}
	s.rules.Store(&empty)
	return s
}

func (s *Store) snapshot() []Rule {
	return *s.rules.Load()
}

// List returns every rule in insertion order. The returned slice is a copy.
func (s *Store) List() []Rule {
	return append([]Rule(nil), s.snapshot()...)
}

func (s *Store) Len() int {
	return len(s.snapshot())
}

func (s *Store) Get(id string) (Rule, bool) {
	for _, r := range s.snapshot() {
		if r.id == id {
			return r, true
		}
	}
	return Rule{}, false
}

// ShouldExclude reports whether any rule matches the endpoint.
func (s *Store) ShouldExclude(method, rawURL string) bool {
	for _, r := range s.snapshot() {
		if r.Matches(method, rawURL) {
			return true
		}
	}
	return false
}

// Add appends r. Adding a second rule with the same id fails.
func (s *Store) Add(r Rule) error {
	if r.id == "" {
		return ErrBlankID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot()
	for _, existing := range cur {
		if existing.id == r.id {
			return fmt.Errorf("%w: %s", ErrDuplicateRule, r.id)
		}
	}
	next := make([]Rule, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, r)
	s.publish(next)
	s.logger.Debug("rule added", logging.Field{Key: "rule_id", Value: r.id}, logging.Field{Key: "rule", Value: r.String()})
	return nil
}

// AddRule creates a rule with a generated id and adds it.
func (s *Store) AddRule(typ RuleType, pattern string) (Rule, error) {
	r, err := NewRule(typ, pattern)
	if err != nil {
		return Rule{}, err
	}
	if err := s.Add(r); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Remove deletes the rule with id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot()
	idx := indexOf(cur, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	next := make([]Rule, 0, len(cur)-1)
	next = append(next, cur[:idx]...)
	next = append(next, cur[idx+1:]...)
	s.publish(next)
	s.logger.Debug("rule removed", logging.Field{Key: "rule_id", Value: id})
	return nil
}

// Update replaces the type and pattern of the rule with id. The id and the
// rule's position are kept.
func (s *Store) Update(id string, typ RuleType, pattern string) (Rule, error) {
	updated, err := NewRuleWithID(id, typ, pattern)
	if err != nil {
		return Rule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot()
	idx := indexOf(cur, id)
	if idx < 0 {
		return Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	next := append([]Rule(nil), cur...)
	next[idx] = updated
	s.publish(next)
	s.logger.Debug("rule updated", logging.Field{Key: "rule_id", Value: id}, logging.Field{Key: "rule", Value: updated.String()})
	return updated, nil
}

// Clear removes every rule. Listeners are notified even when the store was
// already empty.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.snapshot())
	s.publish([]Rule{})
	s.logger.Debug("rules cleared", logging.Field{Key: "count", Value: n})
}

// Load adds rules from specs, stopping at the first invalid one.
func (s *Store) Load(specs []RuleSpec) error {
	for i, spec := range specs {
		r, err := spec.Rule()
		if err != nil {
			return fmt.Errorf("exclusion rule %d: %w", i, err)
		}
		if err := s.Add(r); err != nil {
			return fmt.Errorf("exclusion rule %d: %w", i, err)
		}
	}
	return nil
}

// publish must be called with s.mu held.
func (s *Store) publish(next []Rule) {
	s.rules.Store(&next)
	for _, l := range s.listeners {
		l.fn(append([]Rule(nil), next...))
	}
}

// Subscribe registers fn and returns a function that unregisters it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.logger.Debug("listener added", logging.Field{Key: "listeners", Value: len(s.listeners)})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

// Watch streams snapshots on a buffered channel until ctx is done, then
// closes it. A slow reader misses intermediate snapshots rather than
// blocking writers.
func (s *Store) Watch(ctx context.Context, buffer int) <-chan []Rule {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan []Rule, buffer)
	unsubscribe := s.Subscribe(func(rules []Rule) {
		select {
		case ch <- rules:
		default:
		}
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
		close(ch)
	}()
	return ch
}

func indexOf(rules []Rule, id string) int {
	for i, r := range rules {
		if r.id == id {
			return i
		}
	}
	return -1
}
