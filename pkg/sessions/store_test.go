package sessions

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/trustagent/pkg/conversation"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newSession(title string, updated time.Time, contents ...string) *Session {
	s := New()
	s.Title = title
	for i, c := range contents {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		s.Messages = append(s.Messages, Message{Role: role, Content: c, Timestamp: updated})
	}
	s.UpdatedAt = updated
	return s
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	s := New()
	s.Append(conversation.RoleSystem, "You are a helpful AI assistant.")
	s.Append(conversation.RoleUser, "hello")
	s.Append(conversation.RoleAssistant, "hi there")
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, got.Title)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, conversation.RoleSystem, got.Messages[0].Role)
	assert.Equal(t, "hi there", got.Messages[2].Content)
	assert.Equal(t, s.UpdatedAt.UnixMilli(), got.UpdatedAt.UnixMilli())

	// saving again replaces the messages
	s.Messages = s.Messages[:1]
	s.Title = "short"
	require.NoError(t, store.Save(ctx, s))
	got, err = store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "short", got.Title)
	assert.Len(t, got.Messages, 1)
}

func TestGetMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestListMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Now().Add(-time.Hour)

	old := newSession("old", base, "a")
	mid := newSession("mid", base.Add(time.Minute), "b")
	recent := newSession("recent", base.Add(2*time.Minute), "c")
	for _, s := range []*Session{mid, recent, old} {
		require.NoError(t, store.Save(ctx, s))
	}

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "recent", list[0].Title)
	assert.Equal(t, "mid", list[1].Title)
	assert.Equal(t, "old", list[2].Title)
	assert.Len(t, list[0].Messages, 1)
}

func TestRenameAndDelete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	s := newSession("before", time.Now(), "question", "answer")
	require.NoError(t, store.Save(ctx, s))

	require.NoError(t, store.Rename(ctx, s.ID, "after"))
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	assert.True(t, errors.Is(store.Delete(ctx, s.ID), ErrSessionNotFound))
	assert.True(t, errors.Is(store.Rename(ctx, s.ID, "x"), ErrSessionNotFound))
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Now()

	one := newSession("Weather", now, "what is the WEATHER in Paris", "sunny")
	many := newSession("Files", now.Add(-time.Minute), "read weather.txt", "weather.txt says rain", "and the weather tomorrow?")
	none := newSession("Cooking", now, "pasta recipe", "boil water")
	titleOnly := newSession("weather notes", now.Add(-2*time.Minute))
	for _, s := range []*Session{one, many, none, titleOnly} {
		require.NoError(t, store.Save(ctx, s))
	}

	res, err := store.Search(ctx, "weather")
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, many.ID, res[0].SessionID)
	assert.Equal(t, 3, res[0].Matches)
	assert.Equal(t, one.ID, res[1].SessionID)
	assert.Equal(t, 2, res[1].Matches)
	assert.Equal(t, titleOnly.ID, res[2].SessionID)
	assert.Equal(t, 1, res[2].Matches)

	res, err = store.Search(ctx, "100%")
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = store.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearchFoldsNonASCII(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	s := newSession("Straße nach Köln", time.Now(), "ÉCOLE publique", "Une École privée")
	require.NoError(t, store.Save(ctx, s))

	res, err := store.Search(ctx, "école")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 2, res[0].Matches)

	res, err = store.Search(ctx, "KÖLN")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 1, res[0].Matches)
}

func TestClosedStore(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
	_, err := store.List(context.Background())
	assert.Error(t, err)
}

func TestReopenKeepsSessions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := Open(path)
	require.NoError(t, err)
	s := newSession("kept", time.Now(), "question", "answer")
	require.NoError(t, store.Save(ctx, s))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Title)
	assert.Len(t, got.Messages, 2)
}
