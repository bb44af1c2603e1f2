// Package resource holds the normalized resource tree, its derived indexes and
// the reducer that applies the action vocabulary to it.
//
// A State value is never mutated once built. The reducer derives each new State
// from the previous one, sharing every *Resource it did not touch.
package resource

// Attributes is the open field set of one resource. A persisted resource carries
// its server identity under "id".
type Attributes map[string]any

// Clone returns a shallow copy. Nil stays nil.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Label names the workflow a request or error belongs to
type Label string

const (
	LabelFetching   Label = "fetching"
	LabelCreating   Label = "creating"
	LabelUpdating   Label = "updating"
	LabelDestroying Label = "destroying"
)

// Handle is the cancellation token of an in-flight remote call
type Handle interface {
	ID() string
	Cancel()
}

// Request describes an in-flight remote call
type Request struct {
	Label  Label
	Handle Handle
}

// Resource is one member of the collection.
type Resource struct {
	Attributes Attributes
	LocalID    LocalID
	Request    *Request
	Error      *RemoteError
}

// ID returns the persisted id, if the resource has one
func (r *Resource) ID() (any, bool) {
	id, ok := r.Attributes["id"]
	if !ok || isBlank(id) {
		return nil, false
	}
	return id, true
}

// Address returns the local address of the resource, which stays valid for as
// long as the resource is part of the collection.
func (r *Resource) Address() Address {
	return Local(r.LocalID)
}

func (r *Resource) clone() *Resource {
	cp := *r
	return &cp
}

// State is the aggregate root of one collection.
type State struct {
	Resources []*Resource
	// LastLocalID is the highest local id minted so far; add mints LastLocalID+1.
	LastLocalID LocalID
	// Request and Error are the collection-level slots used by fetch-all.
	Request *Request
	Error   *RemoteError
	// Indexes is derived from Resources and must never be edited by hand.
	Indexes Indexes
}

// Find returns the addressed resource and its position, or (nil, -1)
func (s State) Find(addr Address) (*Resource, int) {
	i := s.indexOf(addr)
	if i < 0 {
		return nil, -1
	}
	return s.Resources[i], i
}

// Lookup returns the resources whose attribute name equals value, in collection order.
// The name must be one of the indexed attributes.
func (s State) Lookup(name string, value any) []*Resource {
	return s.Indexes[name][IndexKey(value)]
}

// AttributesList returns the attributes of every resource, in order
func (s State) AttributesList() []Attributes {
	out := make([]Attributes, 0, len(s.Resources))
	for _, r := range s.Resources {
		out = append(out, r.Attributes)
	}
	return out
}

func (s State) indexOf(addr Address) int {
	for i, r := range s.Resources {
		if addr.matches(r) {
			return i
		}
	}
	return -1
}
