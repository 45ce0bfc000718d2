// Package keystream provides a round-robin feeder over a fixed sequence.
package keystream

import (
	"slices"

	"github.com/RowanDark/codecs/internal/codecerr"
)

// Feeder yields the elements of its content one per call, wrapping back to
// the first element after the last. The zero value has no content.
//
// A Feeder is not safe for concurrent use.
type Feeder[T any] struct {
	content []T
	cursor  int
}

// New returns a Feeder over a copy of content.
func New[T any](content []T) (*Feeder[T], error) {
	f := &Feeder[T]{}
	if err := f.SetContent(content); err != nil {
		return nil, err
	}
	return f, nil
}

// SetContent replaces the sequence with a copy of content and rewinds the
// cursor.
func (f *Feeder[T]) SetContent(content []T) error {
	if len(content) == 0 {
		return codecerr.New(codecerr.InvalidArgument, "keystream.SetContent", "sequence must not be empty")
	}
	f.content = slices.Clone(content)
	f.cursor = 0
	return nil
}

// ResetCursor rewinds to the first element.
func (f *Feeder[T]) ResetCursor() {
	f.cursor = 0
}

// Next returns the element under the cursor and advances it.
func (f *Feeder[T]) Next() (T, error) {
	if len(f.content) == 0 {
		var zero T
		return zero, codecerr.New(codecerr.NotInitialized, "keystream.Next", "content is not yet set")
	}
	el := f.content[f.cursor]
	f.cursor++
	if f.cursor == len(f.content) {
		f.cursor = 0
	}
	return el, nil
}

// Ready reports whether content has been set.
func (f *Feeder[T]) Ready() bool {
	return len(f.content) > 0
}

// Len returns the length of the sequence.
func (f *Feeder[T]) Len() int {
	return len(f.content)
}

// Cursor returns the index of the next element Next will return.
func (f *Feeder[T]) Cursor() int {
	return f.cursor
}
