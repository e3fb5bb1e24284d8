package drawing

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Tool string

const (
	ToolPencil Tool = "pencil"
	ToolLine   Tool = "line"
	ToolRect   Tool = "rect"
)

var ErrInvalidGeometry = errors.New("invalid geometry")

var validate = validator.New()

// Point is an (x, y) pair, encoded as a two element JSON array.
type Point [2]float64

// Element is one drawn shape. Pencil strokes use Path; lines use
// Start/End; rectangles use Start plus Width/Height.
type Element struct {
	Tool     Tool    `json:"tool"              validate:"required,oneof=pencil line rect"`
	Path     []Point `json:"path,omitempty"    validate:"max=20000"`
	StartX   float64 `json:"startX"`
	StartY   float64 `json:"startY"`
	EndX     float64 `json:"endX"`
	EndY     float64 `json:"endY"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Color    string  `json:"color"             validate:"omitempty,max=32"`
	AuthorID string  `json:"authorId,omitempty"`
	Sequence int     `json:"sequence"`
}

// Validate checks the tool and the geometry fields that tool needs.
func (e Element) Validate() error {
	if err := validate.Struct(e); err != nil {
		return err
	}
	if e.Tool == ToolPencil && len(e.Path) == 0 {
		return fmt.Errorf("%w: pencil stroke without path", ErrInvalidGeometry)
	}
	return nil
}

// Marshal encodes the element as the opaque blob kept by the history store.
func (e Element) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(data []byte) (Element, error) {
	var e Element
	if err := json.Unmarshal(data, &e); err != nil {
		return Element{}, fmt.Errorf("decode element: %w", err)
	}
	return e, nil
}

// Clone returns a copy that shares no memory with e.
func (e Element) Clone() Element {
	if e.Path != nil {
		path := make([]Point, len(e.Path))
		copy(path, e.Path)
		e.Path = path
	}
	return e
}
