package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/maxify/internal/domain/track"
)

func tracks(ids ...string) []track.Track {
	result := make([]track.Track, len(ids))
	for i, id := range ids {
		result[i] = track.Track{ID: id, Title: "Song " + id}
	}
	return result
}

func cursorOf(t *testing.T, q *Queue) int {
	t.Helper()
	c, ok := q.Cursor()
	require.True(t, ok, "expected cursor to be set")
	return c
}

func TestNew(t *testing.T) {
	q := New()

	assert.True(t, q.IsEmpty())
	_, ok := q.Cursor()
	assert.False(t, ok)
	_, ok = q.Current()
	assert.False(t, ok)
}

func TestQueue_Replace(t *testing.T) {
	tests := []struct {
		name       string
		tracks     []track.Track
		selected   string
		wantCursor int
		wantSet    bool
	}{
		{
			name:       "selects index of track",
			tracks:     tracks("a", "b", "c"),
			selected:   "b",
			wantCursor: 1,
			wantSet:    true,
		},
		{
			name:       "duplicate selects first occurrence",
			tracks:     tracks("a", "b", "a"),
			selected:   "a",
			wantCursor: 0,
			wantSet:    true,
		},
		{
			name:     "absent track leaves cursor unset",
			tracks:   tracks("a", "b"),
			selected: "zzz",
			wantSet:  false,
		},
		{
			name:     "empty queue",
			tracks:   nil,
			selected: "a",
			wantSet:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()
			q.Append(tracks("old")...)
			q.Select(0)

			q.Replace(tt.tracks, tt.selected)

			assert.Equal(t, len(tt.tracks), q.Len())
			c, ok := q.Cursor()
			assert.Equal(t, tt.wantSet, ok)
			if tt.wantSet {
				assert.Equal(t, tt.wantCursor, c)
			}
		})
	}
}

func TestQueue_ReplaceCopiesInput(t *testing.T) {
	input := tracks("a", "b")
	q := New()
	q.Replace(input, "a")

	input[0].ID = "mutated"
	got, _ := q.At(0)
	assert.Equal(t, "a", got.ID)
}

func TestQueue_AppendKeepsCursor(t *testing.T) {
	q := New()
	q.Replace(tracks("a", "b"), "b")

	q.Append(track.Track{ID: "c"})
	q.Append(track.Track{ID: "b"})

	assert.Equal(t, 4, q.Len())
	assert.Equal(t, 1, cursorOf(t, q))
	cur, _ := q.Current()
	assert.Equal(t, "b", cur.ID)
}

func TestQueue_RemoveAt(t *testing.T) {
	tests := []struct {
		name        string
		cursor      int
		remove      int
		wantCursor  int
		wantCurrent string
	}{
		{
			name:        "before cursor decrements",
			cursor:      2,
			remove:      0,
			wantCursor:  1,
			wantCurrent: "c",
		},
		{
			name:        "after cursor leaves it unchanged",
			cursor:      1,
			remove:      3,
			wantCursor:  1,
			wantCurrent: "b",
		},
		{
			name:        "at cursor keeps index and shifts identity",
			cursor:      1,
			remove:      1,
			wantCursor:  1,
			wantCurrent: "c",
		},
		{
			name:        "at cursor on last index clamps to new last",
			cursor:      3,
			remove:      3,
			wantCursor:  2,
			wantCurrent: "c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New()
			q.Replace(tracks("a", "b", "c", "d"), "")
			q.Select(tt.cursor)

			_, ok := q.RemoveAt(tt.remove)
			require.True(t, ok)

			assert.Equal(t, 3, q.Len())
			assert.Equal(t, tt.wantCursor, cursorOf(t, q))
			cur, _ := q.Current()
			assert.Equal(t, tt.wantCurrent, cur.ID)
		})
	}
}

func TestQueue_RemoveAtOutOfRange(t *testing.T) {
	q := New()
	q.Replace(tracks("a"), "a")

	_, ok := q.RemoveAt(5)
	assert.False(t, ok)
	_, ok = q.RemoveAt(-1)
	assert.False(t, ok)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_RemoveLastClearsCursor(t *testing.T) {
	q := New()
	q.Replace(tracks("a"), "a")

	removed, ok := q.RemoveAt(0)
	require.True(t, ok)
	assert.Equal(t, "a", removed.ID)

	_, set := q.Cursor()
	assert.False(t, set)
}

func TestQueue_Clear(t *testing.T) {
	q := New()
	q.Replace(tracks("a", "b"), "b")

	q.Clear()

	assert.True(t, q.IsEmpty())
	_, ok := q.Cursor()
	assert.False(t, ok)
}

func TestQueue_AdvanceNoWraparound(t *testing.T) {
	q := New()
	q.Replace(tracks("a", "b"), "a")

	next, ok := q.Advance()
	require.True(t, ok)
	assert.Equal(t, "b", next.ID)
	assert.Equal(t, 1, cursorOf(t, q))

	_, ok = q.Advance()
	assert.False(t, ok)
	assert.Equal(t, 1, cursorOf(t, q))
	cur, _ := q.Current()
	assert.Equal(t, "b", cur.ID)
}

func TestQueue_AdvanceWithoutCursorSelectsFirst(t *testing.T) {
	q := New()
	q.Replace(tracks("a", "b"), "missing")

	next, ok := q.Advance()
	require.True(t, ok)
	assert.Equal(t, "a", next.ID)
	assert.Equal(t, 0, cursorOf(t, q))
}

func TestQueue_Retreat(t *testing.T) {
	q := New()
	q.Replace(tracks("a", "b"), "b")

	prev, ok := q.Retreat()
	require.True(t, ok)
	assert.Equal(t, "a", prev.ID)

	_, ok = q.Retreat()
	assert.False(t, ok)
	assert.Equal(t, 0, cursorOf(t, q))

	empty := New()
	_, ok = empty.Retreat()
	assert.False(t, ok)
}
