package resource

// Indexes maps an attribute name to its value buckets. Bucket keys are IndexKey
// forms of the attribute values; each bucket lists resources in collection order.
type Indexes map[string]map[string][]*Resource

// RecomputeIndexes groups resources by the values of the named attributes.
//
// A resource whose attribute is absent or blank is left out of that index only.
// Every name gets a map even when no resource carries the attribute. The inputs
// are not modified.
func RecomputeIndexes(resources []*Resource, names []string) Indexes {
	indexes := make(Indexes, len(names))
	for _, name := range names {
		indexes[name] = make(map[string][]*Resource)
	}

	for _, r := range resources {
		for _, name := range names {
			v, ok := r.Attributes[name]
			if !ok || isBlank(v) {
				continue
			}
			key := IndexKey(v)
			indexes[name][key] = append(indexes[name][key], r)
		}
	}

	return indexes
}

// repoint returns a copy of indexes where every reference to old is replaced by
// updated. Used after request/error marks, which leave attributes untouched but
// swap the resource pointer.
func (ix Indexes) repoint(old, updated *Resource) Indexes {
	out := make(Indexes, len(ix))
	for name, buckets := range ix {
		nb := make(map[string][]*Resource, len(buckets))
		for key, list := range buckets {
			for i, r := range list {
				if r == old {
					cp := make([]*Resource, len(list))
					copy(cp, list)
					cp[i] = updated
					list = cp
					break
				}
			}
			nb[key] = list
		}
		out[name] = nb
	}
	return out
}
