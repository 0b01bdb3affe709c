package mapping

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/a3tai/mcp-pdf-mapper/internal/schema"
)

// State is the lifecycle state of a mapping session
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateSaving  State = "saving"
	StateFailed  State = "failed"
)

// ViewMode selects which precomputed index drives the active group and
// completion accounting.
type ViewMode string

const (
	ViewByCategory ViewMode = "category"
	ViewBySemantic ViewMode = "semantic"
)

// DiscoveryResult is the payload of one field-discovery fetch: extracted
// fields, their first-seen order, and the persisted mappings seeded into
// the store.
type DiscoveryResult struct {
	Order    []string
	Fields   map[string]RawField
	Mappings map[string]schema.AttributeID
}

// Discoverer is the field-discovery collaborator, invoked once per
// session load.
type Discoverer interface {
	DiscoverFields(ctx context.Context, templateID string) (*DiscoveryResult, error)
}

// Persister is the persistence collaborator. SaveMappings replaces the
// template's stored mapping wholesale, not as a merge.
type Persister interface {
	SaveMappings(ctx context.Context, templateID string, mappings map[string]schema.AttributeID) error
}

// Session orchestrates one editing session for one template:
// load, single and bulk edits, completion accounting, save. It is a
// single-operator workflow; the mutex only serializes the session's own
// async load/save completions against edits.
type Session struct {
	templateID string
	discoverer Discoverer
	persister  Persister

	mu        sync.Mutex
	state     State
	viewMode  ViewMode
	activeKey string
	loadTag   string

	catalog    *Catalog
	semantic   map[string]map[string]GroupMember
	categories map[string][]string
	store      *Store
}

// NewSession creates a session for a template. Call Load before editing.
func NewSession(templateID string, discoverer Discoverer, persister Persister) *Session {
	return &Session{
		templateID: templateID,
		discoverer: discoverer,
		persister:  persister,
		state:      StateLoading,
		viewMode:   ViewByCategory,
	}
}

// TemplateID returns the template this session edits
func (s *Session) TemplateID() string {
	return s.templateID
}

// Load fetches fields and persisted mappings, rebuilds the grouping
// indices and seeds the store. Indices are always rebuilt fresh; the
// previous snapshot is discarded. If a newer Load started while this one
// was in flight, its result is stale and dropped silently.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	tag := uuid.NewString()
	s.loadTag = tag
	s.state = StateLoading
	s.mu.Unlock()

	result, err := s.discoverer.DiscoverFields(ctx, s.templateID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadTag != tag {
		// A newer load superseded this one; drop the result.
		return nil
	}

	if err != nil {
		s.catalog = nil
		s.semantic = nil
		s.categories = nil
		s.store = nil
		s.activeKey = ""
		s.state = StateFailed
		return &FetchFailure{TemplateID: s.templateID, Err: err}
	}

	s.catalog = BuildCatalog(result.Order, result.Fields)
	s.semantic = GroupBySemantics(s.catalog)
	s.categories = GroupByCategory(s.catalog)
	s.store = NewStore(s.catalog)
	s.store.Seed(result.Mappings)

	s.viewMode = ViewByCategory
	s.activeKey = firstKey(s.categories)
	s.state = StateReady

	return nil
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveView returns the current view mode and active group key. The key
// is empty when the selected index has no groups.
func (s *Session) ActiveView() (ViewMode, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewMode, s.activeKey
}

// SwitchViewMode changes the view mode and resets the active group to the
// first key of the newly selected index. The store is not touched.
func (s *Session) SwitchViewMode(mode ViewMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode != ViewByCategory && mode != ViewBySemantic {
		return
	}

	s.viewMode = mode
	switch mode {
	case ViewByCategory:
		s.activeKey = firstKey(s.categories)
	case ViewBySemantic:
		s.activeKey = firstKey(s.semantic)
	}
}

// SelectGroup sets the active group; a key absent from the current index
// is a no-op.
func (s *Session) SelectGroup(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.groupExistsLocked(key) {
		s.activeKey = key
	}
}

// GroupKeys returns the sorted group keys of the active index
func (s *Session) GroupKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.viewMode == ViewBySemantic {
		return SortedKeys(s.semantic)
	}
	return SortedKeys(s.categories)
}

// GroupFields returns the member field names of a group in the active
// index: first-seen order for categories, sorted for semantic groups.
// The returned slice is a snapshot taken at call time.
func (s *Session) GroupFields(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupFieldsLocked(key)
}

// SemanticGroup returns the members of one semantic group with their
// confidence and display name, for presentation.
func (s *Session) SemanticGroup(key string) map[string]GroupMember {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.semantic[key]
	if !ok {
		return nil
	}
	out := make(map[string]GroupMember, len(members))
	for name, m := range members {
		out[name] = m
	}
	return out
}

// EditField maps one field to one attribute, overwriting any prior value
func (s *Session) EditField(fieldName string, attr schema.AttributeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return fmt.Errorf("session not loaded")
	}
	return s.store.Set(fieldName, attr)
}

// ClearField removes the mapping for one field
func (s *Session) ClearField(fieldName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		s.store.Unset(fieldName)
	}
}

// EditGroup bulk-maps every field of a group in the active index to one
// attribute. Group membership is snapshotted at action time and applied
// field by field with a per-field existence check, never as an
// all-or-nothing transaction.
func (s *Session) EditGroup(key string, attr schema.AttributeID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return 0, fmt.Errorf("session not loaded")
	}
	if !s.groupExistsLocked(key) {
		return 0, fmt.Errorf("unknown group: %q", key)
	}

	return s.store.BulkApply(s.groupFieldsLocked(key), attr)
}

// GroupStatus computes completion for a group of the active index
func (s *Session) GroupStatus(key string) Completion {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return Completion{}
	}
	return Status(s.store, s.groupFieldsLocked(key))
}

// OverallStatus computes completion across every field in the catalog
func (s *Session) OverallStatus() Completion {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil || s.catalog == nil {
		return Completion{}
	}
	return Status(s.store, s.catalog.Names())
}

// Mappings returns a snapshot of the current assignment
func (s *Session) Mappings() map[string]schema.AttributeID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return map[string]schema.AttributeID{}
	}
	return s.store.Snapshot()
}

// Catalog returns the current field catalog snapshot, nil before a
// successful load.
func (s *Session) Catalog() *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Save pushes the current mappings to the persistence collaborator,
// replacing the stored mapping wholesale. Only one save may be in flight;
// concurrent attempts are rejected with ErrSaveInFlight. On failure the
// session transitions to Failed but the store is preserved verbatim so
// the operator can retry.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.store == nil {
		s.mu.Unlock()
		return fmt.Errorf("session not loaded")
	}
	if s.state == StateSaving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	s.state = StateSaving
	snapshot := s.store.Snapshot()
	s.mu.Unlock()

	err := s.persister.SaveMappings(ctx, s.templateID, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = StateFailed
		return &SaveFailure{TemplateID: s.templateID, Err: err}
	}

	s.state = StateReady
	return nil
}

func (s *Session) groupExistsLocked(key string) bool {
	if s.viewMode == ViewBySemantic {
		_, ok := s.semantic[key]
		return ok
	}
	_, ok := s.categories[key]
	return ok
}

func (s *Session) groupFieldsLocked(key string) []string {
	if s.viewMode == ViewBySemantic {
		members, ok := s.semantic[key]
		if !ok {
			return nil
		}
		return GroupFieldNames(members)
	}

	members, ok := s.categories[key]
	if !ok {
		return nil
	}
	out := make([]string, len(members))
	copy(out, members)
	return out
}

// firstKey returns the lexicographically smallest key, the deterministic
// default active group. Empty string when the index is empty.
func firstKey[V any](index map[string]V) string {
	keys := SortedKeys(index)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
