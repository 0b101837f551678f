package player

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	id          uuid.UUID
	name        string
	disconnects []string
}

func (f *fakeSession) ID() uuid.UUID    { return f.id }
func (f *fakeSession) Username() string { return f.name }
func (f *fakeSession) Disconnect(reason string) {
	f.disconnects = append(f.disconnects, reason)
}

func TestRegisterRejectsDuplicateUUIDWithoutKickExisting(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()
	first := &fakeSession{id: id, name: "Alice"}
	require.NoError(t, r.Register(first, false))

	second := &fakeSession{id: id, name: "Alice"}
	err := r.Register(second, false)
	assert.ErrorIs(t, err, AlreadyConnectedError{})

	got, ok := r.ByUUID(id)
	assert.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegisterKickExistingAtomicallyReplaces(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()
	first := &fakeSession{id: id, name: "Alice"}
	require.NoError(t, r.Register(first, true))

	second := &fakeSession{id: id, name: "Alice"}
	require.NoError(t, r.Register(second, true))

	assert.Len(t, first.disconnects, 1, "displaced session must be kicked with a duplicate-login reason")
	got, ok := r.ByUUID(id)
	require.True(t, ok)
	assert.Same(t, second, got)

	byName, ok := r.ByName("alice")
	require.True(t, ok)
	assert.Same(t, second, byName, "byUUID and byName must agree on the live session")
	assert.Equal(t, 1, r.Len())
}

func TestUnregisterIsANoOpForAnAlreadyDisplacedSession(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()
	first := &fakeSession{id: id, name: "Alice"}
	second := &fakeSession{id: id, name: "Alice"}
	require.NoError(t, r.Register(first, true))
	require.NoError(t, r.Register(second, true))

	r.Unregister(first) // first was already displaced; must not evict second
	got, ok := r.ByUUID(id)
	require.True(t, ok)
	assert.Same(t, second, got)

	r.Unregister(second)
	_, ok = r.ByUUID(id)
	assert.False(t, ok)
	_, ok = r.ByName("alice")
	assert.False(t, ok)
}

func TestByNameIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	s := &fakeSession{id: uuid.New(), name: "Alice"}
	require.NoError(t, r.Register(s, false))

	got, ok := r.ByName("ALICE")
	require.True(t, ok)
	assert.Same(t, s, got)
}
