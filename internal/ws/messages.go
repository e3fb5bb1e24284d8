package ws

import (
	"encoding/json"

	"drawsyncgo/internal/drawing"
	"drawsyncgo/internal/presence"
)

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "draw"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// Inbound events.
const (
	EventJoin  = "join"
	EventDraw  = "draw"
	EventClear = "clear"
	EventUndo  = "undo"
)

// Outbound events.
const (
	EventWelcome         = "welcome"
	EventNotice          = "notice"
	EventPresence        = "presence"
	EventSnapshot        = "snapshot"
	EventBatch           = "batch"
	EventCleared         = "cleared"
	EventHistoryReplaced = "history-replaced"
	EventError           = "error"
)

// ---- Request / Response DTOs ----

// JoinRequest is the body for "join".
type JoinRequest struct {
	RoomID      string `json:"roomId"      validate:"required,max=128"`
	UserID      string `json:"userId"      validate:"max=128"`
	DisplayName string `json:"displayName" validate:"required,max=64"`
	IsHost      bool   `json:"isHost"`
	IsPresenter bool   `json:"isPresenter"`
}

// DrawRequest is the body for "draw". Preview marks an intermediate sample
// of a gesture still in progress.
type DrawRequest struct {
	drawing.Element
	Preview bool `json:"preview"`
}

type EmptyBody struct{}

// ElementsBody carries snapshot, batch and history-replaced lists.
type ElementsBody struct {
	Elements []drawing.Element `json:"elements"`
}

type WelcomeBody struct {
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

type NoticeBody struct {
	Text string `json:"text"`
}

type PresenceBody struct {
	Participants []presence.Projection `json:"participants"`
}

// ErrorBody is returned for failures.
type ErrorBody struct {
	Error string `json:"error"`
}

// encodeFrame builds the wire form of one outbound event.
func encodeFrame(event string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Body: raw})
}

func elementsBody(els []drawing.Element) ElementsBody {
	if els == nil {
		els = []drawing.Element{}
	}
	return ElementsBody{Elements: els}
}
