// Package slides edits the ordered slide deck of an episode in progress.
package slides

import (
	"errors"
	"fmt"

	"github.com/anonto42/storydesk/backend/internal/models"
)

// ErrIndexOutOfRange is returned for positions outside [0, Len()).
var ErrIndexOutOfRange = errors.New("slide index out of range")

// Editor holds an ordered, zero-indexed slide list. Position is the only
// ordering; start times are not required to increase along the list.
type Editor struct {
	slides   []models.Slide
	onChange func([]models.Slide)
}

// New starts an editor from a copy of initial. onChange, when non-nil, is
// called with a copy of the list after every successful edit so the owning
// form state can be kept in sync.
func New(initial []models.Slide, onChange func([]models.Slide)) *Editor {
	e := &Editor{onChange: onChange}
	if len(initial) > 0 {
		e.slides = append(make([]models.Slide, 0, len(initial)), initial...)
	}
	return e
}

// Len returns the number of slides.
func (e *Editor) Len() int {
	return len(e.slides)
}

// Slides returns a copy of the current list.
func (e *Editor) Slides() []models.Slide {
	out := make([]models.Slide, len(e.slides))
	copy(out, e.slides)
	return out
}

// Append adds a blank slide at the end.
func (e *Editor) Append() {
	e.slides = append(e.slides, models.Slide{ImageURL: "", StartTime: 0})
	e.changed()
}

// RemoveAt drops the slide at index; following slides shift down by one.
func (e *Editor) RemoveAt(index int) error {
	if err := e.checkIndex(index); err != nil {
		return err
	}
	e.slides = append(e.slides[:index], e.slides[index+1:]...)
	e.changed()
	return nil
}

// UpdateAt merges the set fields of p into the slide at index.
func (e *Editor) UpdateAt(index int, p models.SlidePatch) error {
	if err := e.checkIndex(index); err != nil {
		return err
	}
	s := &e.slides[index]
	if p.ImageURL != nil {
		s.ImageURL = *p.ImageURL
	}
	if p.StartTime != nil {
		s.StartTime = *p.StartTime
	}
	e.changed()
	return nil
}

func (e *Editor) checkIndex(index int) error {
	if index < 0 || index >= len(e.slides) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(e.slides))
	}
	return nil
}

func (e *Editor) changed() {
	if e.onChange != nil {
		e.onChange(e.Slides())
	}
}
