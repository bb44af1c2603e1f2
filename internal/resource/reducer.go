package resource

// Reducer applies actions to a State. It only carries configuration, so one
// Reducer can serve any number of stores.
type Reducer struct {
	indexNames []string
}

// NewReducer returns a reducer maintaining indexes for the given attribute
// names. "id" is always indexed.
func NewReducer(indexNames ...string) *Reducer {
	names := make([]string, 0, len(indexNames)+1)
	seen := make(map[string]bool, len(indexNames)+1)
	for _, n := range append(append([]string{}, indexNames...), "id") {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return &Reducer{indexNames: names}
}

// IndexNames returns the indexed attribute names, "id" included
func (r *Reducer) IndexNames() []string {
	return append([]string(nil), r.indexNames...)
}

// Initial returns the empty state with its (empty) indexes in place
func (r *Reducer) Initial() State {
	return State{Indexes: RecomputeIndexes(nil, r.indexNames)}
}

// Apply derives the next state from s. The input state is never modified.
//
// Actions addressing a resource that cannot be resolved fail with a
// *NotFoundError; s is then still the current state.
func (r *Reducer) Apply(s State, action Action) (State, error) {
	switch a := Value(action).(type) {
	case Reset:
		return r.reset(a.Items), nil
	case SetAll:
		return r.setAll(s, a.Items), nil
	case Set:
		return r.set(s, a)
	case Patch:
		return r.patch(s, a)
	case Add:
		return r.add(s, a.Attributes), nil
	case Remove:
		return r.remove(s, a.Address)
	case MarkRequest:
		return r.markRequest(s, a)
	case MarkError:
		return r.markError(s, a)
	default:
		// unknown and nil actions leave the state unchanged
		return s, nil
	}
}

func (r *Reducer) reset(items []Attributes) State {
	resources := serialize(0, items)
	return State{
		Resources:   resources,
		LastLocalID: LocalID(len(items)),
		Indexes:     RecomputeIndexes(resources, r.indexNames),
	}
}

func (r *Reducer) setAll(s State, items []Attributes) State {
	resources := serialize(0, items)
	s.Resources = resources
	s.LastLocalID = LocalID(len(items))
	s.Indexes = RecomputeIndexes(resources, r.indexNames)
	return s
}

func (r *Reducer) set(s State, a Set) (State, error) {
	if a.Address.IsZero() {
		return s, &NotFoundError{Op: KindSet, Address: a.Address}
	}
	return r.replace(s, KindSet, a.Address, true, func(res *Resource) {
		res.Attributes = a.Attributes.Clone()
		if res.Attributes == nil {
			res.Attributes = Attributes{}
		}
	})
}

func (r *Reducer) patch(s State, a Patch) (State, error) {
	return r.replace(s, KindPatch, a.Address, true, func(res *Resource) {
		merged := res.Attributes.Clone()
		if merged == nil {
			merged = make(Attributes, len(a.Attributes))
		}
		for k, v := range a.Attributes {
			merged[k] = v
		}
		res.Attributes = merged
	})
}

func (r *Reducer) add(s State, attrs Attributes) State {
	resources := make([]*Resource, 0, len(s.Resources)+1)
	resources = append(resources, s.Resources...)
	resources = append(resources, serialize(s.LastLocalID, []Attributes{attrs})...)

	s.Resources = resources
	s.LastLocalID++
	s.Indexes = RecomputeIndexes(resources, r.indexNames)
	return s
}

func (r *Reducer) remove(s State, addr Address) (State, error) {
	i := s.indexOf(addr)
	if i < 0 {
		return s, &NotFoundError{Op: KindRemove, Address: addr}
	}

	resources := make([]*Resource, 0, len(s.Resources)-1)
	resources = append(resources, s.Resources[:i]...)
	resources = append(resources, s.Resources[i+1:]...)

	s.Resources = resources
	s.Indexes = RecomputeIndexes(resources, r.indexNames)
	return s, nil
}

func (r *Reducer) markRequest(s State, a MarkRequest) (State, error) {
	if a.Address.IsZero() {
		s.Request = a.Request
		return s, nil
	}
	return r.replace(s, KindRequest, a.Address, false, func(res *Resource) {
		res.Request = a.Request
	})
}

func (r *Reducer) markError(s State, a MarkError) (State, error) {
	if a.Address.IsZero() {
		s.Error = a.Error
		return s, nil
	}
	return r.replace(s, KindError, a.Address, false, func(res *Resource) {
		res.Error = a.Error
	})
}

// replace swaps the addressed resource for an edited copy. When reindex is false
// the attributes are unchanged and the existing index buckets are re-pointed at
// the copy instead of being rebuilt.
func (r *Reducer) replace(s State, op Kind, addr Address, reindex bool, edit func(*Resource)) (State, error) {
	i := s.indexOf(addr)
	if i < 0 {
		return s, &NotFoundError{Op: op, Address: addr}
	}

	old := s.Resources[i]
	updated := old.clone()
	edit(updated)

	resources := make([]*Resource, len(s.Resources))
	copy(resources, s.Resources)
	resources[i] = updated
	s.Resources = resources

	if reindex || s.Indexes == nil {
		s.Indexes = RecomputeIndexes(resources, r.indexNames)
	} else {
		s.Indexes = s.Indexes.repoint(old, updated)
	}
	return s, nil
}

// serialize builds resources for items, minting local ids after last
func serialize(last LocalID, items []Attributes) []*Resource {
	out := make([]*Resource, 0, len(items))
	for i, attrs := range items {
		attrs = attrs.Clone()
		if attrs == nil {
			attrs = Attributes{}
		}
		out = append(out, &Resource{
			Attributes: attrs,
			LocalID:    last + LocalID(i) + 1,
		})
	}
	return out
}
