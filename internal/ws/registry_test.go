package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryJoinAndLookup(t *testing.T) {
	registry := NewRegistry()
	conn := &fakeConn{}

	evicted := registry.Join("u1@x.com", conn)
	assert.Nil(t, evicted)

	got, ok := registry.Lookup("u1@x.com")
	require.True(t, ok)
	assert.Same(t, conn, got.(*fakeConn))

	_, ok = registry.Lookup("missing@x.com")
	assert.False(t, ok)
}

func TestRegistryLastJoinWins(t *testing.T) {
	registry := NewRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	registry.Join("u1@x.com", first)
	evicted := registry.Join("u1@x.com", second)

	assert.Same(t, first, evicted.(*fakeConn))
	got, ok := registry.Lookup("u1@x.com")
	require.True(t, ok)
	assert.Same(t, second, got.(*fakeConn))
}

func TestRegistryLeaveByConnection(t *testing.T) {
	registry := NewRegistry()
	conn := &fakeConn{}
	registry.Join("u1@x.com", conn)

	identity, ok := registry.Leave(conn)
	require.True(t, ok)
	assert.Equal(t, "u1@x.com", identity)

	_, ok = registry.Lookup("u1@x.com")
	assert.False(t, ok)

	_, ok = registry.Leave(conn)
	assert.False(t, ok)
}

func TestRegistryIdentitiesSnapshot(t *testing.T) {
	registry := NewRegistry()
	registry.Join("u1@x.com", &fakeConn{})
	registry.Join("u2@x.com", &fakeConn{})

	assert.ElementsMatch(t, []string{"u1@x.com", "u2@x.com"}, registry.Identities())
}
