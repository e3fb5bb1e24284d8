package ws

import (
	"context"
	"errors"
	"fmt"

	"drawsyncgo/internal/drawing"
	"drawsyncgo/internal/room"

	"go.uber.org/zap"
)

func (s *WsServer) registerHandlers() {
	Register(s.router, EventJoin, s.join)
	Register(s.router, EventDraw, s.draw)
	Register(s.router, EventClear, s.clear)
	Register(s.router, EventUndo, s.undo)
}

// join moves an unjoined connection into a room. The client first gets
// whatever the room holds in memory, then, once the store answered, the
// full history as a second snapshot on the same channel.
func (s *WsServer) join(_ context.Context, c *Client, req JoinRequest) error {
	roomID := req.RoomID
	if !c.markJoined(roomID, req.DisplayName) {
		return ErrAlreadyJoined
	}

	s.history.UpsertRoom(roomID)
	p := s.presence.Join(c.id, req.DisplayName, roomID, req.IsHost, req.IsPresenter)
	// entering the broadcast set and the first snapshot happen under the
	// room lock, so no mutation falls between the two
	_, revision := s.rooms.Join(roomID, c.id, func(elements []drawing.Element, _ uint64) {
		s.hub.Join(roomID, c)
		if len(elements) > 0 {
			c.emit(EventSnapshot, elementsBody(elements))
		}
	})
	s.subMgr.Subscribe(roomID)

	c.emit(EventWelcome, WelcomeBody{DisplayName: p.DisplayName, Color: p.Color})
	s.hub.Publish(roomID, EventNotice, NoticeBody{Text: fmt.Sprintf("%s joined the room", p.DisplayName)}, c.id)
	s.publishPresence(roomID)

	zap.L().Info("ws.joined",
		zap.String("conn_id", c.id), zap.String("room_id", roomID),
		zap.String("user_id", req.UserID), zap.String("color", p.Color))

	s.history.FetchHistory(roomID, func(loaded []drawing.Element, err error) {
		s.completeJoin(c, roomID, revision, loaded, err)
	})
	return nil
}

// completeJoin runs on a durability worker once the stored history is in.
func (s *WsServer) completeJoin(c *Client, roomID string, revision uint64, loaded []drawing.Element, err error) {
	if current, joined := c.room(); !joined || current != roomID {
		return
	}

	snapshot := func(elements []drawing.Element) {
		c.emit(EventSnapshot, elementsBody(elements))
	}
	if err != nil {
		zap.L().Warn("ws.history_fetch", zap.String("room_id", roomID), zap.Error(err))
		_ = s.rooms.View(roomID, snapshot)
		return
	}
	_, replaced, err := s.rooms.Replace(roomID, loaded, revision, snapshot)
	if err == nil && !replaced {
		zap.L().Debug("ws.history_stale", zap.String("room_id", roomID), zap.Int("loaded", len(loaded)))
	}
}

func (s *WsServer) draw(_ context.Context, c *Client, req DrawRequest) error {
	roomID, joined := c.room()
	if !joined {
		return ErrNotJoined
	}
	el := req.Element
	if err := el.Validate(); err != nil {
		return err
	}
	el.AuthorID = c.id
	el.Sequence = 0
	if el.Color == "" {
		if p, ok := s.presence.Get(c.id); ok {
			el.Color = p.Color
		}
	}

	if req.Preview {
		_ = s.rooms.WithRoom(roomID, func() { s.batch.Enqueue(roomID, el) })
		return nil
	}

	_, err := s.rooms.Append(roomID, el, func(stamped drawing.Element) {
		// immediate send first, so no batch carrying it can overtake it
		s.hub.Publish(roomID, EventDraw, stamped, c.id)
		s.batch.Enqueue(roomID, stamped)
	})
	if errors.Is(err, room.ErrRoomNotFound) {
		zap.L().Debug("ws.draw_unknown_room", zap.String("conn_id", c.id), zap.String("room_id", roomID))
		return nil
	}
	return err
}

func (s *WsServer) clear(_ context.Context, c *Client, _ EmptyBody) error {
	roomID, joined := c.room()
	if !joined {
		return ErrNotJoined
	}
	err := s.rooms.Clear(roomID, func() {
		s.batch.Drop(roomID)
		s.hub.Publish(roomID, EventCleared, EmptyBody{}, "")
	})
	if errors.Is(err, room.ErrRoomNotFound) {
		return nil
	}
	return err
}

func (s *WsServer) undo(_ context.Context, c *Client, _ EmptyBody) error {
	roomID, joined := c.room()
	if !joined {
		return ErrNotJoined
	}
	_, _, _, err := s.rooms.RemoveLast(roomID, func(removed drawing.Element, remaining []drawing.Element) {
		s.batch.Discard(roomID, removed.Sequence)
		s.hub.Publish(roomID, EventHistoryReplaced, elementsBody(remaining), "")
	})
	if errors.Is(err, room.ErrRoomNotFound) {
		return nil
	}
	return err
}

// disconnect is the connection's teardown. It runs once, after the read
// pump returned.
func (s *WsServer) disconnect(c *Client) {
	roomID, joined := c.room()
	c.close()
	s.clients.Delete(c.id)
	s.conns.Add(-1)
	if !joined {
		zap.L().Debug("ws.disconnected", zap.String("conn_id", c.id))
		return
	}

	s.subMgr.Unsubscribe(roomID)
	p, found := s.presence.Leave(c.id)
	s.hub.Leave(roomID, c)
	if s.rooms.Leave(roomID, c.id) {
		s.batch.Drop(roomID)
		zap.L().Info("ws.room_closed", zap.String("room_id", roomID))
	}

	if found {
		s.hub.Publish(roomID, EventNotice, NoticeBody{Text: fmt.Sprintf("%s left the room", p.DisplayName)}, "")
	}
	s.publishPresence(roomID)
	zap.L().Info("ws.disconnected", zap.String("conn_id", c.id), zap.String("room_id", roomID))
}
