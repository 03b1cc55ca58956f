// Package queue provides the playback queue with its session cursor.
package queue

import "github.com/osa030/maxify/internal/domain/track"

// Queue is an ordered list of tracks plus a cursor identifying the current one.
// Insertion order is playback order and the same track may appear more than once.
//
// The cursor is either unset ("none") or satisfies 0 <= cursor < Len().
// Queue is not safe for concurrent use; the session manager guards it.
type Queue struct {
	tracks    []track.Track
	cursor    int
	hasCursor bool
}

// New creates an empty queue with no cursor.
func New() *Queue {
	return &Queue{tracks: make([]track.Track, 0)}
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}

func (q *Queue) isValidIndex(index int) bool {
	return 0 <= index && index < len(q.tracks)
}

// Cursor returns the current index, or false if none is selected.
func (q *Queue) Cursor() (int, bool) {
	if !q.hasCursor {
		return 0, false
	}
	return q.cursor, true
}

// Current returns the track under the cursor.
func (q *Queue) Current() (track.Track, bool) {
	if !q.hasCursor || !q.isValidIndex(q.cursor) {
		return track.Track{}, false
	}
	return q.tracks[q.cursor], true
}

// Tracks returns a copy of the queued tracks.
func (q *Queue) Tracks() []track.Track {
	result := make([]track.Track, len(q.tracks))
	copy(result, q.tracks)
	return result
}

// At returns the track at index.
func (q *Queue) At(index int) (track.Track, bool) {
	if !q.isValidIndex(index) {
		return track.Track{}, false
	}
	return q.tracks[index], true
}

// IndexOf returns the first index holding a track with the given ID, or -1.
func (q *Queue) IndexOf(trackID string) int {
	for i, t := range q.tracks {
		if t.ID == trackID {
			return i
		}
	}
	return -1
}

// Replace swaps in a new track list and points the cursor at the first
// occurrence of selectedID. The cursor is cleared when selectedID is absent.
func (q *Queue) Replace(tracks []track.Track, selectedID string) {
	q.tracks = make([]track.Track, len(tracks))
	copy(q.tracks, tracks)

	q.clearCursor()
	if idx := q.IndexOf(selectedID); idx >= 0 {
		q.setCursor(idx)
	}
}

// Append adds tracks to the end. The cursor is not touched.
func (q *Queue) Append(tracks ...track.Track) {
	q.tracks = append(q.tracks, tracks...)
}

// RemoveAt removes the track at index and reports whether anything was removed.
//
// Removing before the cursor shifts the cursor down so it keeps pointing at
// the same logical track. Removing at the cursor leaves it numerically
// unchanged (it may now reference the following track); if that falls off the
// end it moves to the new last index.
func (q *Queue) RemoveAt(index int) (track.Track, bool) {
	if !q.isValidIndex(index) {
		return track.Track{}, false
	}

	removed := q.tracks[index]
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)

	switch {
	case q.IsEmpty():
		q.clearCursor()
	case !q.hasCursor:
	case index < q.cursor:
		q.cursor--
	case q.cursor >= len(q.tracks):
		q.cursor = len(q.tracks) - 1
	}

	return removed, true
}

// Clear empties the queue and resets the cursor.
func (q *Queue) Clear() {
	q.tracks = make([]track.Track, 0)
	q.clearCursor()
}

// Select moves the cursor to index.
func (q *Queue) Select(index int) (track.Track, bool) {
	if !q.isValidIndex(index) {
		return track.Track{}, false
	}
	q.setCursor(index)
	return q.tracks[index], true
}

// HasNext returns true if Advance would move the cursor.
func (q *Queue) HasNext() bool {
	if q.IsEmpty() {
		return false
	}
	if !q.hasCursor {
		return true
	}
	return q.cursor < len(q.tracks)-1
}

// HasPrevious returns true if Retreat would move the cursor.
func (q *Queue) HasPrevious() bool {
	return q.hasCursor && q.cursor > 0 && !q.IsEmpty()
}

// Advance moves the cursor forward by one. There is no wraparound: at the
// last index nothing changes and false is returned. Without a cursor the
// first track is selected.
func (q *Queue) Advance() (track.Track, bool) {
	if !q.HasNext() {
		return track.Track{}, false
	}
	if !q.hasCursor {
		return q.Select(0)
	}
	return q.Select(q.cursor + 1)
}

// Retreat moves the cursor back by one. At index 0, or without a cursor,
// nothing changes and false is returned.
func (q *Queue) Retreat() (track.Track, bool) {
	if !q.HasPrevious() {
		return track.Track{}, false
	}
	return q.Select(q.cursor - 1)
}

func (q *Queue) setCursor(index int) {
	q.cursor = index
	q.hasCursor = true
}

func (q *Queue) clearCursor() {
	q.cursor = 0
	q.hasCursor = false
}
