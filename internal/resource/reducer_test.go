package resource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandle string

func (h stubHandle) ID() string { return string(h) }
func (h stubHandle) Cancel()    {}

// seeded returns a state holding {a: b, id: 10} under local id 1
func seeded(t *testing.T, r *Reducer) State {
	t.Helper()
	s, err := r.Apply(r.Initial(), Reset{Items: []Attributes{{"a": "b", "id": 10}}})
	require.NoError(t, err)
	return s
}

func TestReset(t *testing.T) {
	r := NewReducer("kind")
	prev := State{Request: &Request{Label: LabelFetching}, LastLocalID: 7}

	s, err := r.Apply(prev, Reset{Items: []Attributes{{"id": 1, "kind": "x"}, {"id": 2}}})
	require.NoError(t, err)

	require.Len(t, s.Resources, 2)
	assert.Equal(t, LocalID(1), s.Resources[0].LocalID)
	assert.Equal(t, LocalID(2), s.Resources[1].LocalID)
	assert.Equal(t, LocalID(2), s.LastLocalID)
	assert.Nil(t, s.Request)
	assert.Len(t, s.Lookup("kind", "x"), 1)
	assert.Len(t, s.Lookup("id", 2), 1)
}

func TestSet(t *testing.T) {
	r := NewReducer()

	t.Run("addressed resource not found", func(t *testing.T) {
		s := seeded(t, r)
		next, err := r.Apply(s, Set{Address: Persisted(999), Attributes: Attributes{"a": "c"}})

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrResourceNotFound))
		var nf *NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, KindSet, nf.Op)
		assert.Equal(t, "999", nf.Address.String())
		assert.Equal(t, s, next)
	})

	t.Run("addressed resource replaced wholesale", func(t *testing.T) {
		s := seeded(t, r)
		next, err := r.Apply(s, Set{Address: Persisted(10), Attributes: Attributes{"c": "d", "id": 11}})
		require.NoError(t, err)

		require.Len(t, next.Resources, 1)
		res := next.Resources[0]
		assert.Equal(t, Attributes{"c": "d", "id": 11}, res.Attributes)
		assert.Equal(t, LocalID(1), res.LocalID)
		assert.Empty(t, next.Lookup("id", 10))
		require.Len(t, next.Lookup("id", 11), 1)
		assert.Same(t, res, next.Lookup("id", 11)[0])

		// the previous state is untouched
		assert.Equal(t, Attributes{"a": "b", "id": 10}, s.Resources[0].Attributes)
		assert.Len(t, s.Lookup("id", 10), 1)
	})

	t.Run("bulk set replaces the collection", func(t *testing.T) {
		s := seeded(t, r)
		next, err := r.Apply(s, SetAll{Items: []Attributes{{"b": "c", "id": 15}}})
		require.NoError(t, err)

		require.Len(t, next.Resources, 1)
		assert.Equal(t, Attributes{"b": "c", "id": 15}, next.Resources[0].Attributes)
		assert.Equal(t, LocalID(1), next.Resources[0].LocalID)
		assert.Equal(t, LocalID(1), next.LastLocalID)
		assert.Len(t, next.Lookup("id", 15), 1)
		assert.Empty(t, next.Lookup("id", 10))
	})

	t.Run("zero address is rejected", func(t *testing.T) {
		s := seeded(t, r)
		_, err := r.Apply(s, Set{Attributes: Attributes{"a": "c"}})
		assert.ErrorIs(t, err, ErrResourceNotFound)
	})
}

func TestPatch(t *testing.T) {
	r := NewReducer("a")

	t.Run("not found", func(t *testing.T) {
		_, err := r.Apply(seeded(t, r), Patch{Address: Persisted(999), Attributes: Attributes{"a": "c"}})
		assert.ErrorIs(t, err, ErrResourceNotFound)
	})

	t.Run("address is mandatory", func(t *testing.T) {
		_, err := r.Apply(seeded(t, r), Patch{Attributes: Attributes{"a": "c"}})
		assert.ErrorIs(t, err, ErrResourceNotFound)
	})

	t.Run("merges attributes", func(t *testing.T) {
		s := seeded(t, r)
		next, err := r.Apply(s, Patch{Address: Persisted(10), Attributes: Attributes{"b": "c", "id": 11}})
		require.NoError(t, err)

		assert.Equal(t, Attributes{"a": "b", "b": "c", "id": 11}, next.Resources[0].Attributes)
		assert.Len(t, next.Lookup("id", 11), 1)
		assert.Len(t, next.Lookup("a", "b"), 1)
		assert.Equal(t, Attributes{"a": "b", "id": 10}, s.Resources[0].Attributes)
	})

	t.Run("other resources are shared", func(t *testing.T) {
		s, err := r.Apply(r.Initial(), Reset{Items: []Attributes{{"id": 1}, {"id": 2}}})
		require.NoError(t, err)

		next, err := r.Apply(s, Patch{Address: Local(2), Attributes: Attributes{"a": "z"}})
		require.NoError(t, err)

		assert.Same(t, s.Resources[0], next.Resources[0])
		assert.NotSame(t, s.Resources[1], next.Resources[1])
		assert.Equal(t, []*Resource{next.Resources[1]}, next.Lookup("a", "z"))
	})
}

func TestMarkRequest(t *testing.T) {
	r := NewReducer()
	req := &Request{Label: "foo", Handle: stubHandle("123")}

	t.Run("not found", func(t *testing.T) {
		_, err := r.Apply(seeded(t, r), MarkRequest{Address: Persisted(999), Request: req})
		assert.ErrorIs(t, err, ErrResourceNotFound)
	})

	t.Run("addressed resource", func(t *testing.T) {
		s := seeded(t, r)
		next, err := r.Apply(s, MarkRequest{Address: Persisted(10), Request: req})
		require.NoError(t, err)

		assert.Same(t, req, next.Resources[0].Request)
		assert.Nil(t, next.Request)
		assert.Nil(t, s.Resources[0].Request)
		// index buckets reference the current resource values
		require.Len(t, next.Lookup("id", 10), 1)
		assert.Same(t, next.Resources[0], next.Lookup("id", 10)[0])
		assert.Same(t, s.Resources[0], s.Lookup("id", 10)[0])
	})

	t.Run("collection", func(t *testing.T) {
		s := seeded(t, r)
		next, err := r.Apply(s, MarkRequest{Request: req})
		require.NoError(t, err)

		assert.Same(t, req, next.Request)
		assert.Nil(t, next.Resources[0].Request)
	})

	t.Run("clearing twice is idempotent", func(t *testing.T) {
		s, err := r.Apply(seeded(t, r), MarkRequest{Address: Persisted(10), Request: req})
		require.NoError(t, err)

		once, err := r.Apply(s, MarkRequest{Address: Persisted(10)})
		require.NoError(t, err)
		twice, err := r.Apply(once, MarkRequest{Address: Persisted(10)})
		require.NoError(t, err)

		assert.Equal(t, once, twice)
		assert.Nil(t, twice.Resources[0].Request)
	})
}

func TestMarkError(t *testing.T) {
	r := NewReducer()
	boom := &RemoteError{Label: LabelUpdating, Err: errors.New("boom!")}

	t.Run("not found", func(t *testing.T) {
		_, err := r.Apply(seeded(t, r), MarkError{Address: Local(42), Error: boom})
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, KindError, nf.Op)
		assert.Equal(t, "local:42", nf.Address.String())
	})

	t.Run("addressed resource", func(t *testing.T) {
		next, err := r.Apply(seeded(t, r), MarkError{Address: Local(1), Error: boom})
		require.NoError(t, err)
		assert.Same(t, boom, next.Resources[0].Error)
		assert.Nil(t, next.Error)
	})

	t.Run("collection", func(t *testing.T) {
		next, err := r.Apply(seeded(t, r), MarkError{Error: boom})
		require.NoError(t, err)
		assert.Same(t, boom, next.Error)
		assert.EqualError(t, next.Error, "updating failed: boom!")
	})
}

func TestAdd(t *testing.T) {
	r := NewReducer()
	s := seeded(t, r)

	next, err := r.Apply(s, Add{Attributes: Attributes{"b": "c"}})
	require.NoError(t, err)

	require.Len(t, next.Resources, 2)
	assert.Equal(t, LocalID(2), next.Resources[1].LocalID)
	assert.Equal(t, LocalID(2), next.LastLocalID)
	assert.Equal(t, Attributes{"b": "c"}, next.Resources[1].Attributes)
	// no id yet, so only the first resource is indexed
	assert.Len(t, next.Indexes["id"], 1)
	assert.Len(t, s.Resources, 1)
}

func TestRemove(t *testing.T) {
	r := NewReducer()

	t.Run("not found", func(t *testing.T) {
		_, err := r.Apply(seeded(t, r), Remove{Address: Persisted(999)})
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, KindRemove, nf.Op)
	})

	t.Run("removes the resource", func(t *testing.T) {
		s := seeded(t, r)
		next, err := r.Apply(s, Remove{Address: Persisted(10)})
		require.NoError(t, err)
		assert.Empty(t, next.Resources)
		assert.Empty(t, next.Indexes["id"])
		assert.Len(t, s.Resources, 1)
	})

	t.Run("then bulk set fully replaces", func(t *testing.T) {
		s, err := r.Apply(r.Initial(), Reset{Items: []Attributes{{"id": 1}, {"id": 2}, {"id": 3}}})
		require.NoError(t, err)
		s, err = r.Apply(s, Remove{Address: Persisted(2)})
		require.NoError(t, err)

		next, err := r.Apply(s, SetAll{Items: []Attributes{{"id": 9}}})
		require.NoError(t, err)
		require.Len(t, next.Resources, 1)
		assert.Equal(t, LocalID(1), next.Resources[0].LocalID)
		assert.Equal(t, LocalID(1), next.LastLocalID)
		assert.Equal(t, []string{"9"}, keys(next.Indexes["id"]))
	})
}

func TestAddRemoveRoundTrip(t *testing.T) {
	r := NewReducer("b")
	s := seeded(t, r)

	added, err := r.Apply(s, Add{Attributes: Attributes{"b": "c"}})
	require.NoError(t, err)
	minted := added.Resources[len(added.Resources)-1].Address()

	back, err := r.Apply(added, Remove{Address: minted})
	require.NoError(t, err)

	assert.Equal(t, s.AttributesList(), back.AttributesList())
	assert.Equal(t, s.Indexes, back.Indexes)
	assert.Equal(t, LocalID(2), back.LastLocalID)

	again, err := r.Apply(back, Add{Attributes: Attributes{"b": "c"}})
	require.NoError(t, err)
	reAdded := again.Resources[len(again.Resources)-1]
	assert.Equal(t, LocalID(3), reAdded.LocalID)
	assert.NotEqual(t, minted, reAdded.Address())
}

func TestApplyUnknownAction(t *testing.T) {
	r := NewReducer()
	s := seeded(t, r)

	next, err := r.Apply(s, unknownAction{})
	require.NoError(t, err)
	assert.Equal(t, s, next)
}

func TestApplyNilActions(t *testing.T) {
	r := NewReducer()
	s := seeded(t, r)

	for _, action := range []Action{nil, (*Set)(nil), (*Patch)(nil), (*Remove)(nil), (*Reset)(nil)} {
		next, err := r.Apply(s, action)
		require.NoError(t, err)
		assert.Equal(t, s, next)
	}

	next, err := r.Apply(s, &Patch{Address: Local(1), Attributes: Attributes{"a": "c"}})
	require.NoError(t, err)
	assert.Equal(t, "c", next.Resources[0].Attributes["a"])
}

func TestBlankPersistedIDsNeverMatch(t *testing.T) {
	r := NewReducer()
	s, err := r.Apply(r.Initial(), Reset{Items: []Attributes{{"id": 0, "a": 1}, {"id": "", "a": 2}, {"a": 3}}})
	require.NoError(t, err)

	for _, id := range []any{0, "", nil, false, float64(0)} {
		res, i := s.Find(Persisted(id))
		assert.Nil(t, res, "id %v", id)
		assert.Equal(t, -1, i)
	}

	_, err = r.Apply(s, Set{Address: Persisted(0), Attributes: Attributes{"a": 9}})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, KindSet, nf.Op)

	_, err = r.Apply(s, Remove{Address: Persisted("")})
	require.ErrorIs(t, err, ErrResourceNotFound)
}

func TestPersistedAddressMatchesAcrossNumericTypes(t *testing.T) {
	r := NewReducer()
	s, err := r.Apply(r.Initial(), SetAll{Items: []Attributes{{"id": float64(10)}}})
	require.NoError(t, err)

	res, i := s.Find(Persisted(10))
	require.NotNil(t, res)
	assert.Equal(t, 0, i)

	_, i = s.Find(Persisted("10x"))
	assert.Equal(t, -1, i)
}

func TestActionAttributesAreCopied(t *testing.T) {
	r := NewReducer()
	attrs := Attributes{"id": 1, "a": "b"}

	s, err := r.Apply(r.Initial(), Add{Attributes: attrs})
	require.NoError(t, err)

	attrs["a"] = "mutated"
	assert.Equal(t, "b", s.Resources[0].Attributes["a"])
}

type unknownAction struct{}

func (unknownAction) Kind() Kind { return "unknown" }

func keys(m map[string][]*Resource) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
