package resource

import "strconv"

// LocalID is the client-side identity minted for every resource the store holds.
// It never appears in Attributes, so it cannot collide with a persisted id.
type LocalID uint64

type addressKind uint8

const (
	addressNone addressKind = iota
	addressLocal
	addressPersisted
)

// Address points at one resource either by its local id or by its persisted id.
// The zero Address means "no address": request/error marks then target the
// collection slots and set replaces the whole collection.
type Address struct {
	kind      addressKind
	local     LocalID
	persisted any
}

// Local addresses a resource by its local id
func Local(id LocalID) Address {
	return Address{kind: addressLocal, local: id}
}

// Persisted addresses a resource by the value of its "id" attribute
func Persisted(id any) Address {
	return Address{kind: addressPersisted, persisted: id}
}

// IsZero reports whether the address is the "no address" value
func (a Address) IsZero() bool { return a.kind == addressNone }

// IsLocal reports whether the address was built with Local
func (a Address) IsLocal() bool { return a.kind == addressLocal }

// LocalID returns the local id for local addresses
func (a Address) LocalID() (LocalID, bool) {
	return a.local, a.kind == addressLocal
}

// PersistedID returns the persisted id for persisted addresses
func (a Address) PersistedID() (any, bool) {
	return a.persisted, a.kind == addressPersisted
}

// matches reports whether r is the resource this address points at
func (a Address) matches(r *Resource) bool {
	switch a.kind {
	case addressLocal:
		return r.LocalID == a.local
	case addressPersisted:
		id, ok := r.ID()
		return ok && !isBlank(a.persisted) && IndexKey(id) == IndexKey(a.persisted)
	default:
		return false
	}
}

func (a Address) String() string {
	switch a.kind {
	case addressLocal:
		return "local:" + strconv.FormatUint(uint64(a.local), 10)
	case addressPersisted:
		return IndexKey(a.persisted)
	default:
		return "<none>"
	}
}
