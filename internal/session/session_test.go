package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New()
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.Zero(t, s.Len())
	assert.NotEqual(t, s.ID, New().ID)
}

func TestAppendExchange(t *testing.T) {
	s := New()
	s.AppendExchange("what does add do?", "It sums two numbers.")
	s.AppendExchange("and sub?", "It subtracts.")

	turns := s.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, []Role{RoleUser, RoleModel, RoleUser, RoleModel},
		[]Role{turns[0].Role, turns[1].Role, turns[2].Role, turns[3].Role})
	assert.Equal(t, "and sub?", turns[2].Text)
}

func TestTurnsIsACopy(t *testing.T) {
	s := New()
	s.AppendExchange("q", "a")
	turns := s.Turns()
	turns[0].Text = "changed"
	assert.Equal(t, "q", s.Turns()[0].Text)
}

func TestStore(t *testing.T) {
	st := NewStore()
	a := st.Get("")
	assert.Zero(t, st.Len(), "unsaved sessions are not stored")
	assert.NotSame(t, a, st.Get(a.ID))

	st.Save(a)
	assert.Equal(t, 1, st.Len())
	assert.Same(t, a, st.Get(a.ID))

	b := st.Get("not-a-known-id")
	assert.NotSame(t, a, b)
	assert.NotEqual(t, "not-a-known-id", b.ID)
	assert.Equal(t, 1, st.Len())
}

func TestStore_IdleSessionsExpire(t *testing.T) {
	st := NewStoreWithTTL(20 * time.Millisecond)
	s := st.Get("")
	st.Save(s)
	require.Same(t, s, st.Get(s.ID))

	time.Sleep(60 * time.Millisecond)
	assert.NotSame(t, s, st.Get(s.ID))
}
