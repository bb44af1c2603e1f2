package resource

// Kind tags an action
type Kind string

const (
	KindReset   Kind = "reset"
	KindSet     Kind = "set"
	KindPatch   Kind = "patch"
	KindAdd     Kind = "add"
	KindRemove  Kind = "remove"
	KindRequest Kind = "request"
	KindError   Kind = "error"
)

// Action is one entry of the vocabulary understood by Reducer.Apply
type Action interface {
	Kind() Kind
}

// Reset replaces the whole state with a fresh one seeded from Items.
type Reset struct {
	Items []Attributes
}

// SetAll replaces every resource with one resource per item and restarts the
// local id counter at len(Items).
type SetAll struct {
	Items []Attributes
}

// Set replaces the attributes of the addressed resource wholesale.
type Set struct {
	Address    Address
	Attributes Attributes
}

// Patch shallow-merges Attributes into the addressed resource.
type Patch struct {
	Address    Address
	Attributes Attributes
}

// Add appends a resource under a freshly minted local id.
type Add struct {
	Attributes Attributes
}

// Remove deletes the addressed resource.
type Remove struct {
	Address Address
}

// MarkRequest sets (or clears, with a nil Request) the in-flight request of the
// addressed resource, or of the collection when Address is zero.
type MarkRequest struct {
	Address Address
	Request *Request
}

// MarkError sets (or clears, with a nil Error) the last error of the addressed
// resource, or of the collection when Address is zero.
type MarkError struct {
	Address Address
	Error   *RemoteError
}

func (Reset) Kind() Kind       { return KindReset }
func (SetAll) Kind() Kind      { return KindSet }
func (Set) Kind() Kind         { return KindSet }
func (Patch) Kind() Kind       { return KindPatch }
func (Add) Kind() Kind         { return KindAdd }
func (Remove) Kind() Kind      { return KindRemove }
func (MarkRequest) Kind() Kind { return KindRequest }
func (MarkError) Kind() Kind   { return KindError }

// Value returns the value form of action, so *Set and Set are handled alike.
// A nil action, or a nil pointer to one of the vocabulary types, yields nil.
func Value(action Action) Action {
	switch a := action.(type) {
	case *Reset:
		return deref(a)
	case *SetAll:
		return deref(a)
	case *Set:
		return deref(a)
	case *Patch:
		return deref(a)
	case *Add:
		return deref(a)
	case *Remove:
		return deref(a)
	case *MarkRequest:
		return deref(a)
	case *MarkError:
		return deref(a)
	}
	return action
}

func deref[T Action](p *T) Action {
	if p == nil {
		return nil
	}
	return *p
}
