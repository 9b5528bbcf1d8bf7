// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package spec

import "sort"

// ContractKind is the tagged-variant discriminant for a ContractEntry.
// SPEC_FULL.md §9 ("Duck-typed contracts") requires this to be an explicit
// enum rather than an untyped map key, so validator/fixer/worker code can
// switch on it instead of re-deriving kind from string shape.
type ContractKind string

const (
	KindDOM     ContractKind = "dom"
	KindAPI     ContractKind = "api"
	KindEvent   ContractKind = "event"
	KindStorage ContractKind = "storage"
	KindModule  ContractKind = "module"
)

// DOMSchema describes a dom contract entry's shape.
type DOMSchema struct {
	Tag        string            `json:"tag,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Purpose    string            `json:"purpose,omitempty"`
}

// APISchema describes an api contract entry's shape.
type APISchema struct {
	Method       string   `json:"method,omitempty"`
	RequestShape []string `json:"request_shape,omitempty"`
	ResponseShape []string `json:"response_shape,omitempty"`
	ParamStyle   string   `json:"param_style,omitempty"` // query | path | body
}

// EventSchema describes an event contract entry's shape.
type EventSchema struct {
	PayloadShape []string `json:"payload_shape,omitempty"`
}

// StorageSchema describes a storage contract entry's shape.
type StorageSchema struct {
	Backing    string `json:"backing,omitempty"` // persistent | session
	ValueShape string `json:"value_shape,omitempty"`
}

// ModuleSchema describes a module contract entry's shape.
type ModuleSchema struct {
	NamedExports []string `json:"named_exports,omitempty"`
}

// ContractEntry is one identifier in one of the five contract tables. Only
// the field matching Kind is populated; the others are zero values. A
// single struct (rather than five parallel types) keeps producers/consumers/
// Conflicted uniform across kinds while still letting callers type-switch
// on Kind for the schema.
type ContractEntry struct {
	Kind      ContractKind `json:"kind"`
	Key       string       `json:"key"`
	Producers []string     `json:"producers"`
	Consumers []string     `json:"consumers"`

	DOM     *DOMSchema     `json:"dom,omitempty"`
	API     *APISchema     `json:"api,omitempty"`
	Event   *EventSchema   `json:"event,omitempty"`
	Storage *StorageSchema `json:"storage,omitempty"`
	Module  *ModuleSchema  `json:"module,omitempty"`

	// Conflicted is set by merge when two candidate schemas for the same
	// key disagree and neither subsumes the other; the validator surfaces
	// this as a schema-mismatch issue.
	Conflicted bool `json:"conflicted,omitempty"`
}

// specificity is used by merge to prefer the schema with more explicit
// shape information when two entries for the same key disagree.
func (e *ContractEntry) specificity() int {
	n := 0
	switch e.Kind {
	case KindDOM:
		if e.DOM != nil {
			if e.DOM.Tag != "" {
				n++
			}
			n += len(e.DOM.Attributes)
		}
	case KindAPI:
		if e.API != nil {
			n += len(e.API.RequestShape) + len(e.API.ResponseShape)
			if e.API.ParamStyle != "" {
				n++
			}
		}
	case KindEvent:
		if e.Event != nil {
			n += len(e.Event.PayloadShape)
		}
	case KindStorage:
		if e.Storage != nil {
			if e.Storage.Backing != "" {
				n++
			}
			if e.Storage.ValueShape != "" {
				n++
			}
		}
	case KindModule:
		if e.Module != nil {
			n += len(e.Module.NamedExports)
		}
	}
	return n
}

// Contracts holds the five producer/consumer tables, keyed by identifier
// within each kind.
type Contracts struct {
	DOM     map[string]*ContractEntry `json:"dom,omitempty"`
	API     map[string]*ContractEntry `json:"api,omitempty"`
	Event   map[string]*ContractEntry `json:"event,omitempty"`
	Storage map[string]*ContractEntry `json:"storage,omitempty"`
	Module  map[string]*ContractEntry `json:"module,omitempty"`
}

// NewContracts returns an empty, non-nil Contracts record.
func NewContracts() *Contracts {
	return &Contracts{
		DOM:     map[string]*ContractEntry{},
		API:     map[string]*ContractEntry{},
		Event:   map[string]*ContractEntry{},
		Storage: map[string]*ContractEntry{},
		Module:  map[string]*ContractEntry{},
	}
}

// table returns the map for a given kind, creating it if the receiver's
// corresponding field is nil (defensive against a caller-supplied Contracts
// literal with partially-nil tables).
func (c *Contracts) table(kind ContractKind) map[string]*ContractEntry {
	switch kind {
	case KindDOM:
		if c.DOM == nil {
			c.DOM = map[string]*ContractEntry{}
		}
		return c.DOM
	case KindAPI:
		if c.API == nil {
			c.API = map[string]*ContractEntry{}
		}
		return c.API
	case KindEvent:
		if c.Event == nil {
			c.Event = map[string]*ContractEntry{}
		}
		return c.Event
	case KindStorage:
		if c.Storage == nil {
			c.Storage = map[string]*ContractEntry{}
		}
		return c.Storage
	case KindModule:
		if c.Module == nil {
			c.Module = map[string]*ContractEntry{}
		}
		return c.Module
	}
	return nil
}

// AllEntries returns every entry across all five tables, kind-then-key
// sorted, for deterministic iteration (validator/fixer output ordering).
func (c *Contracts) AllEntries() []*ContractEntry {
	var out []*ContractEntry
	for _, kind := range []ContractKind{KindDOM, KindAPI, KindEvent, KindStorage, KindModule} {
		t := c.table(kind)
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, t[k])
		}
	}
	return out
}

// KeyCount returns the total number of contract keys across all tables,
// used by the monotonicity test in SPEC_FULL.md §8 invariant 5.
func (c *Contracts) KeyCount() int {
	n := 0
	for _, kind := range []ContractKind{KindDOM, KindAPI, KindEvent, KindStorage, KindModule} {
		n += len(c.table(kind))
	}
	return n
}

// Clone returns a deep-enough copy for use as an immutable per-layer
// snapshot (SPEC_FULL.md §5: "each receives an immutable snapshot of the
// Contracts"). Entry pointers are copied, not shared, so a worker cannot
// mutate the coordinator's live Contracts through its snapshot.
func (c *Contracts) Clone() *Contracts {
	clone := NewContracts()
	for _, e := range c.AllEntries() {
		cp := *e
		cp.Producers = append([]string(nil), e.Producers...)
		cp.Consumers = append([]string(nil), e.Consumers...)
		clone.table(e.Kind)[e.Key] = &cp
	}
	return clone
}

// MergeEntry folds one freshly-extracted entry into the receiver, following
// SPEC_FULL.md §4.5's merge policy: exact key match, producer/consumer
// set-union, more-specific schema wins, keys never disappear.
func (c *Contracts) MergeEntry(fresh *ContractEntry) {
	t := c.table(fresh.Kind)
	existing, ok := t[fresh.Key]
	if !ok {
		cp := *fresh
		cp.Producers = append([]string(nil), fresh.Producers...)
		cp.Consumers = append([]string(nil), fresh.Consumers...)
		t[fresh.Key] = &cp
		return
	}
	existing.Producers = unionStrings(existing.Producers, fresh.Producers)
	existing.Consumers = unionStrings(existing.Consumers, fresh.Consumers)

	existingSpecificity := existing.specificity()
	freshSpecificity := fresh.specificity()
	switch {
	case freshSpecificity > existingSpecificity:
		copySchema(existing, fresh)
	case freshSpecificity == existingSpecificity && freshSpecificity > 0 && !schemasEqual(existing, fresh):
		existing.Conflicted = true
	}
}

// Merge folds every entry of other into the receiver and returns the
// receiver, matching merge(existing, extracted) -> Contracts in §4.5.
func (c *Contracts) Merge(other *Contracts) *Contracts {
	for _, e := range other.AllEntries() {
		c.MergeEntry(e)
	}
	return c
}

func copySchema(dst, src *ContractEntry) {
	dst.DOM, dst.API, dst.Event, dst.Storage, dst.Module = src.DOM, src.API, src.Event, src.Storage, src.Module
}

func schemasEqual(a, b *ContractEntry) bool {
	switch a.Kind {
	case KindDOM:
		return equalDOM(a.DOM, b.DOM)
	case KindAPI:
		return equalAPI(a.API, b.API)
	case KindEvent:
		return equalStrSlice(shapeOf(a.Event), shapeOf(b.Event))
	case KindStorage:
		return equalStorage(a.Storage, b.Storage)
	case KindModule:
		return equalStrSlice(exportsOf(a.Module), exportsOf(b.Module))
	}
	return true
}

func shapeOf(e *EventSchema) []string {
	if e == nil {
		return nil
	}
	return e.PayloadShape
}

func exportsOf(m *ModuleSchema) []string {
	if m == nil {
		return nil
	}
	return m.NamedExports
}

func equalDOM(a, b *DOMSchema) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Tag == b.Tag
}

func equalAPI(a, b *APISchema) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ParamStyle == b.ParamStyle && equalStrSlice(a.RequestShape, b.RequestShape)
}

func equalStorage(a, b *StorageSchema) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Backing == b.Backing && a.ValueShape == b.ValueShape
}

func equalStrSlice(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if !set[v] {
			return false
		}
	}
	return true
}

func unionStrings(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range append(append([]string(nil), a...), b...) {
		if !set[v] {
			set[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
