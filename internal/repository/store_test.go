package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/seawatch/internal/domain"
)

// testStoreContract exercises the behaviour every Store must share.
func testStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("create and get", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		sess, err := s.CreateSession(ctx, "u1")
		require.NoError(t, err)
		assert.NotEmpty(t, sess.ID)
		assert.Equal(t, domain.DefaultTitle, sess.Title)

		got, err := s.GetSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, "u1", got.OwnerID)
		assert.Equal(t, domain.DefaultTitle, got.Title)
		assert.Empty(t, got.Messages)
	})

	t.Run("append keeps insertion order", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		sess, err := s.CreateSession(ctx, "u1")
		require.NoError(t, err)

		require.NoError(t, s.AppendMessages(ctx, sess.ID,
			domain.Message{Role: domain.RoleUser, Text: "", HasMedia: true},
			domain.Message{Role: domain.RoleAssistant, Text: "clear"},
		))
		require.NoError(t, s.AppendMessages(ctx, sess.ID,
			domain.Message{Role: domain.RoleUser, Text: "again"},
			domain.Message{Role: domain.RoleAssistant, Text: "still clear"},
		))

		got, err := s.GetSession(ctx, sess.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 4)
		assert.True(t, got.Messages[0].HasMedia)
		assert.Equal(t, domain.RoleUser, got.Messages[0].Role)
		assert.Equal(t, "clear", got.Messages[1].Text)
		assert.Equal(t, "again", got.Messages[2].Text)
		assert.Equal(t, "still clear", got.Messages[3].Text)
		for _, m := range got.Messages {
			assert.NotEmpty(t, m.ID)
			assert.False(t, m.CreatedAt.IsZero())
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.GetSession(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		err = s.AppendMessages(ctx, "missing", domain.Message{Role: domain.RoleUser, Text: "x"})
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		err = s.SetTitle(ctx, "missing", "x")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("title", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		sess, err := s.CreateSession(ctx, "u1")
		require.NoError(t, err)

		require.NoError(t, s.SetTitle(ctx, sess.ID, "Two ships close"))
		got, err := s.GetSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, "Two ships close", got.Title)
	})

	t.Run("list newest first per owner", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		var ids []string
		for i := 0; i < 3; i++ {
			sess, err := s.CreateSession(ctx, "u1")
			require.NoError(t, err)
			ids = append(ids, sess.ID)
		}
		_, err := s.CreateSession(ctx, "u2")
		require.NoError(t, err)
		require.NoError(t, s.AppendMessages(ctx, ids[0], domain.Message{Role: domain.RoleUser, Text: "hi"}))

		list, err := s.ListSessions(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, ids[2], list[0].ID)
		assert.Equal(t, ids[1], list[1].ID)
		assert.Equal(t, ids[0], list[2].ID)
		assert.Equal(t, 1, list[2].MessageCount)

		empty, err := s.ListSessions(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("concurrent appends", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		sess, err := s.CreateSession(ctx, "u1")
		require.NoError(t, err)

		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- s.AppendMessages(ctx, sess.ID,
					domain.Message{Role: domain.RoleUser, Text: fmt.Sprintf("q%d", i)},
					domain.Message{Role: domain.RoleAssistant, Text: fmt.Sprintf("a%d", i)},
				)
			}(i)
		}
		wg.Wait()
		close(errs)

		succeeded := 0
		for err := range errs {
			if err == nil {
				succeeded++
			}
		}
		got, err := s.GetSession(ctx, sess.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 2*succeeded)
		// Each turn's pair stays adjacent.
		for i := 0; i < len(got.Messages); i += 2 {
			q, a := got.Messages[i].Text, got.Messages[i+1].Text
			assert.Equal(t, "a"+q[1:], a)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	sess, err := s.CreateSession(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessages(ctx, sess.ID, domain.Message{Role: domain.RoleUser, Text: "a"}))

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	got.Messages[0].Text = "mutated"

	again, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Messages[0].Text)
}
