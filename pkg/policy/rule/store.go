package rule

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Store holds rule definitions and their dependency edges, validates
// acyclicity, and produces the evaluation order.
//
// The store is read-mostly: readers proceed concurrently, writers
// (registration, disable, update) take an exclusive section and bump the
// store-wide version counter on exit. The result cache consumes the version
// counter for invalidation.
type Store struct {
	mu      sync.RWMutex
	rules   map[string]*Rule
	ordered []*Rule
	version uint64
	logger  *slog.Logger
}

// NewStore creates an empty rule store.
func NewStore() *Store {
	return &Store{
		rules:  make(map[string]*Rule),
		logger: slog.Default().With("component", "policy.rulestore"),
	}
}

// Register validates and adds a new rule.
//
// It fails with a ValidationError if the rule is malformed, its ID collides,
// or a dependency references an unknown rule, and with a CycleDetectedError
// if adding the rule's dependency edges would create a cycle over the active
// rule set. On any failure the store is left unchanged.
func (s *Store) Register(r *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateLocked(r, false); err != nil {
		return err
	}

	candidate := r.Clone()
	if candidate.Status == "" {
		candidate.Status = StatusActive
	}
	if candidate.Version == 0 {
		candidate.Version = 1
	}
	if candidate.Pattern != "" {
		p, err := ParsePattern(candidate.Pattern)
		if err != nil {
			return &ValidationError{RuleID: candidate.ID, Errors: []string{err.Error()}}
		}
		candidate.pattern = p
	}

	ordered, err := s.orderWithLocked(candidate)
	if err != nil {
		return err
	}

	s.rules[candidate.ID] = candidate
	s.ordered = ordered
	s.version++

	s.logger.Info("rule registered",
		"rule_id", candidate.ID,
		"priority", candidate.Priority,
		"depends_on", candidate.DependsOn,
		"store_version", s.version,
	)

	return nil
}

// Update replaces an existing rule's definition and bumps the rule version.
// The same validation as Register applies.
func (s *Store) Update(r *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rules[r.ID]
	if !ok {
		return fmt.Errorf("update %s: %w", r.ID, ErrNotFound)
	}

	if err := s.validateLocked(r, true); err != nil {
		return err
	}

	candidate := r.Clone()
	if candidate.Status == "" {
		candidate.Status = existing.Status
	}
	candidate.Version = existing.Version + 1
	if candidate.Pattern != "" {
		p, err := ParsePattern(candidate.Pattern)
		if err != nil {
			return &ValidationError{RuleID: candidate.ID, Errors: []string{err.Error()}}
		}
		candidate.pattern = p
	}

	ordered, err := s.orderWithLocked(candidate)
	if err != nil {
		return err
	}

	s.rules[candidate.ID] = candidate
	s.ordered = ordered
	s.version++

	s.logger.Info("rule updated",
		"rule_id", candidate.ID,
		"rule_version", candidate.Version,
		"store_version", s.version,
	)

	return nil
}

// Disable marks a rule inactive without deleting it. Historical audit events
// keep referencing the rule by id and version.
func (s *Store) Disable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("disable %s: %w", id, ErrNotFound)
	}
	if old.Status == StatusDisabled {
		return nil
	}

	// Copy-on-write: readers may still hold the previous ordered slice.
	r := old.Clone()
	r.Status = StatusDisabled
	r.Version++
	s.rules[id] = r
	s.rebuildOrderLocked()
	s.version++

	s.logger.Info("rule disabled", "rule_id", id, "store_version", s.version)
	return nil
}

// Enable re-activates a previously disabled rule.
func (s *Store) Enable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("enable %s: %w", id, ErrNotFound)
	}
	if old.Status == StatusActive {
		return nil
	}

	r := old.Clone()
	r.Status = StatusActive
	r.Version++
	s.rules[id] = r
	if err := s.rebuildOrderCheckedLocked(); err != nil {
		// Re-activation introduced a cycle; roll back.
		s.rules[id] = old
		return err
	}
	s.version++

	s.logger.Info("rule enabled", "rule_id", id, "store_version", s.version)
	return nil
}

// Replace atomically swaps the full rule set, e.g. after a rule-file reload.
// The incoming set is validated as a whole; on any error the previous set is
// kept.
func (s *Store) Replace(rules []*Rule) error {
	prepared := make(map[string]*Rule, len(rules))
	for _, r := range rules {
		if _, dup := prepared[r.ID]; dup {
			return &ValidationError{RuleID: r.ID, Errors: []string{"duplicate rule id"}}
		}
		c := r.Clone()
		if c.Status == "" {
			c.Status = StatusActive
		}
		if c.Version == 0 {
			c.Version = 1
		}
		if errs := validateShape(c); len(errs) > 0 {
			return &ValidationError{RuleID: c.ID, Errors: errs}
		}
		if c.Pattern != "" {
			p, err := ParsePattern(c.Pattern)
			if err != nil {
				return &ValidationError{RuleID: c.ID, Errors: []string{err.Error()}}
			}
			c.pattern = p
		}
		prepared[c.ID] = c
	}

	for _, r := range prepared {
		for _, dep := range r.DependsOn {
			if _, ok := prepared[dep]; !ok {
				return &ValidationError{RuleID: r.ID, Errors: []string{fmt.Sprintf("depends on unknown rule %q", dep)}}
			}
		}
	}

	ordered, err := orderActive(prepared)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = prepared
	s.ordered = ordered
	s.version++

	s.logger.Info("rule set replaced",
		"rule_count", len(prepared),
		"active_count", len(ordered),
		"store_version", s.version,
	)
	return nil
}

// Get returns a copy of the rule with the given ID.
func (s *Store) Get(id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return r.Clone(), nil
}

// List returns copies of all rules, active and disabled, sorted by ID.
func (s *Store) List() []*Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveOrdered returns the active rules in evaluation order: topological
// order of the dependency graph with ascending priority as the tie-break.
// The returned slice is shared and must not be mutated; rules are evaluated,
// never modified, on the hot path.
func (s *Store) ActiveOrdered() []*Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ordered
}

// Version returns the store-wide version counter. Any mutation bumps it.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// validateLocked checks rule shape and dependency references against the
// current store contents. Must be called with the write lock held.
func (s *Store) validateLocked(r *Rule, updating bool) error {
	if r == nil {
		return &ValidationError{RuleID: "", Errors: []string{"rule is nil"}}
	}

	errs := validateShape(r)

	if !updating {
		if _, exists := s.rules[r.ID]; exists && r.ID != "" {
			errs = append(errs, "rule id already registered")
		}
	}

	for _, dep := range r.DependsOn {
		if dep == r.ID {
			errs = append(errs, "rule depends on itself")
			continue
		}
		if _, ok := s.rules[dep]; !ok {
			errs = append(errs, fmt.Sprintf("depends on unknown rule %q", dep))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{RuleID: r.ID, Errors: errs}
	}
	return nil
}

// validateShape checks intrinsic rule fields without store context.
func validateShape(r *Rule) []string {
	var errs []string
	if r.ID == "" {
		errs = append(errs, "missing rule id")
	}
	if r.Status != "" && r.Status != StatusActive && r.Status != StatusDisabled {
		errs = append(errs, fmt.Sprintf("invalid status %q", r.Status))
	}
	if len(r.Actions) == 0 {
		errs = append(errs, "rule has no actions")
	}
	for _, a := range r.Actions {
		if !a.Type.Valid() {
			errs = append(errs, fmt.Sprintf("invalid action type %q", a.Type))
		}
	}
	for _, m := range r.Conditions.Matches {
		if m.Key == "" {
			errs = append(errs, "match condition missing key")
		}
		if !m.Op.Valid() {
			errs = append(errs, fmt.Sprintf("invalid match operator %q", m.Op))
		}
	}
	if r.Conditions.MaxRequests < 0 {
		errs = append(errs, "max_requests cannot be negative")
	}
	if r.Conditions.MaxRequests > 0 && r.Conditions.TimeWindowSeconds <= 0 {
		errs = append(errs, "rate condition requires a positive time_window")
	}
	if r.Conditions.RiskAbove != nil && (*r.Conditions.RiskAbove < 0 || *r.Conditions.RiskAbove > 1) {
		errs = append(errs, "risk_above must be within [0,1]")
	}
	return errs
}

// orderWithLocked computes the active evaluation order as if candidate were
// part of the store, without mutating it. Must be called with the write lock
// held.
func (s *Store) orderWithLocked(candidate *Rule) ([]*Rule, error) {
	set := make(map[string]*Rule, len(s.rules)+1)
	for id, r := range s.rules {
		set[id] = r
	}
	set[candidate.ID] = candidate
	return orderActive(set)
}

// rebuildOrderLocked recomputes the cached order, ignoring cycle errors.
// Disabling a rule can only remove edges, so the recompute cannot fail.
func (s *Store) rebuildOrderLocked() {
	ordered, err := orderActive(s.rules)
	if err != nil {
		// Unreachable after a disable; log and keep the previous order.
		s.logger.Error("order rebuild failed", "error", err)
		return
	}
	s.ordered = ordered
}

// rebuildOrderCheckedLocked recomputes the cached order and propagates cycle
// errors (used by Enable, which can re-introduce edges).
func (s *Store) rebuildOrderCheckedLocked() error {
	ordered, err := orderActive(s.rules)
	if err != nil {
		return err
	}
	s.ordered = ordered
	return nil
}

// orderActive filters the active rules out of the set and orders them.
func orderActive(set map[string]*Rule) ([]*Rule, error) {
	active := make([]*Rule, 0, len(set))
	for _, r := range set {
		if r.Active() {
			active = append(active, r)
		}
	}
	return orderRules(active)
}
