package store

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vibe-xs/xs/internal/ast"
	"github.com/vibe-xs/xs/internal/types"
)

// MinPrefixLen is the shortest hash prefix §9's wire contract accepts
// ("prefix references require ≥ 4 hex characters").
const MinPrefixLen = 4

// TermEntry is spec §4.F's `{ hash, name?, expr, scheme, dependencies }`
// record.
type TermEntry struct {
	Hash         Hash
	Name         string // "" for an anonymous (unnamed) entry
	Expr         ast.Expr
	Scheme       types.TypeScheme
	Dependencies map[Hash]struct{}

	normalized []byte // kept only to defend against the differing-payload collision case
}

// CollisionError reports that a newly-hashed term's digest matches an
// existing entry whose normalized bytes differ — a true SHA-256 collision,
// "practically impossible" per spec §4.F but rejected rather than silently
// merged.
type CollisionError struct {
	Hash Hash
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("store: hash collision at %s with a differing payload", e.Hash)
}

// PrefixTooShortError reports a hash-prefix lookup below MinPrefixLen.
type PrefixTooShortError struct{ Prefix string }

func (e *PrefixTooShortError) Error() string {
	return fmt.Sprintf("store: hash prefix %q is shorter than %d characters", e.Prefix, MinPrefixLen)
}

// NotFoundError reports that no entry matches a hash or hash prefix.
type NotFoundError struct{ Ref string }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("store: no entry matches %q", e.Ref)
}

// AmbiguousPrefixError reports that a hash prefix matches more than one
// entry (spec §3: "ambiguity is a runtime error").
type AmbiguousPrefixError struct {
	Prefix  string
	Matches []Hash
}

func (e *AmbiguousPrefixError) Error() string {
	hexes := make([]string, len(e.Matches))
	for i, h := range e.Matches {
		hexes[i] = h.String()
	}
	return fmt.Sprintf("store: hash prefix %q is ambiguous, matches %s", e.Prefix, strings.Join(hexes, ", "))
}

// Store is the append-only, content-addressed term store of spec §4.F. It
// is safe for concurrent use (spec §6: "any host that parallelises multiple
// evaluations must serialize inserts (simple mutex discipline)") — a single
// sync.Mutex guards every map, the same discipline internal/gss uses for
// its node/edge bookkeeping.
type Store struct {
	mu      sync.Mutex
	entries map[Hash]*TermEntry
	order   []Hash // insertion order, scanned for deterministic prefix matches
	byName  map[string][]Hash
	rdeps   map[Hash]map[Hash]struct{} // dependency hash -> set of dependent hashes
}

// New creates an empty term store.
func New() *Store {
	return &Store{
		entries: make(map[Hash]*TermEntry),
		byName:  make(map[string][]Hash),
		rdeps:   make(map[Hash]map[Hash]struct{}),
	}
}

// Insert hashes expr and adds it to the store under the given optional name
// and type scheme, recording deps as its (already-resolved) dependency set.
// Re-inserting an expression that hashes identically to an existing entry
// is a no-op that returns the existing entry (spec §4.F: "rejects duplicate
// hash with equal payload") — except that a new name is still registered
// for lookup, since renaming a definition must not fork its identity.
func (s *Store) Insert(name string, expr ast.Expr, scheme types.TypeScheme, deps map[Hash]struct{}) (*TermEntry, error) {
	h, normalized := hashExprBytes(expr)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[h]; ok {
		if !bytes.Equal(existing.normalized, normalized) {
			return nil, &CollisionError{Hash: h}
		}
		if name != "" {
			s.registerName(name, h)
		}
		tracer().Debugf("insert: dedup at %s (name=%q)", h, name)
		return existing, nil
	}

	entry := &TermEntry{
		Hash:         h,
		Name:         name,
		Expr:         expr,
		Scheme:       scheme,
		Dependencies: deps,
		normalized:   normalized,
	}
	s.entries[h] = entry
	s.order = append(s.order, h)
	if name != "" {
		s.registerName(name, h)
	}
	for dep := range deps {
		if s.rdeps[dep] == nil {
			s.rdeps[dep] = make(map[Hash]struct{})
		}
		s.rdeps[dep][h] = struct{}{}
	}
	tracer().Debugf("insert: new entry %s (name=%q, %d deps)", h, name, len(deps))
	return entry, nil
}

func (s *Store) registerName(name string, h Hash) {
	for _, existing := range s.byName[name] {
		if existing == h {
			return
		}
	}
	s.byName[name] = append(s.byName[name], h)
}

// Lookup returns the entry with an exact hash match.
func (s *Store) Lookup(h Hash) (*TermEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[h]
	return e, ok
}

// LookupPrefix resolves a hex hash prefix to its unique matching entry, per
// spec §4.F/§9: prefixes shorter than MinPrefixLen are rejected, a prefix
// matching nothing is a NotFoundError, and a prefix matching more than one
// entry is an AmbiguousPrefixError.
func (s *Store) LookupPrefix(prefix string) (*TermEntry, error) {
	prefix = strings.ToLower(prefix)
	if len(prefix) < MinPrefixLen {
		return nil, &PrefixTooShortError{Prefix: prefix}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []Hash
	for _, h := range s.order {
		if strings.HasPrefix(h.String(), prefix) {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 0:
		return nil, &NotFoundError{Ref: prefix}
	case 1:
		return s.entries[matches[0]], nil
	default:
		return nil, &AmbiguousPrefixError{Prefix: prefix, Matches: matches}
	}
}

// ListByNamePrefix returns, in the entries' insertion order, each entry
// once for every registered name of it that has the given prefix: an entry
// re-inserted under a second name is listed twice (its Name field keeps the
// first name) — grounded on gorgo's SymbolTable.Each (runtime/
// symtable.go), a map-backed name table iterated to answer a name query,
// generalized here to the many-hashes-per-name case renaming produces.
func (s *Store) ListByNamePrefix(prefix string) []*TermEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*TermEntry
	for _, h := range s.order {
		for name, hashes := range s.byName {
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			for _, nh := range hashes {
				if nh == h {
					out = append(out, s.entries[h])
				}
			}
		}
	}
	return out
}

// Dependents returns every entry that depends (directly) on h — the
// reverse-dependency lookup spec §4.F requires.
func (s *Store) Dependents(h Hash) []*TermEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.rdeps[h]
	out := make([]*TermEntry, 0, len(set))
	for dh := range set {
		out = append(out, s.entries[dh])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash.String() < out[j].Hash.String() })
	return out
}

// Len reports the number of distinct entries in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
