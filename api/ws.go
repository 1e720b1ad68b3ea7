package api

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is a message sent by the page.
type clientMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	ID   string `json:"id,omitempty"`
	OK   bool   `json:"ok,omitempty"`
}

// serverMessage carries the messages that are not hub events.
type serverMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func (h *handler) handleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.manager.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.String("session", id), zap.Error(err))
		return
	}
	defer conn.Close()

	// gorilla/websocket forbids concurrent writes.
	var writeMu sync.Mutex
	writeMsg := func(msg any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	// Subscribe before the snapshot so no change between the two is lost.
	events, unsubscribe := s.Hub().Subscribe()
	defer unsubscribe()

	kick := s.SetClient()
	defer s.ClearClient(kick)

	if err := writeMsg(serverMessage{Type: "snapshot", Data: s.Snapshot()}); err != nil {
		h.log.Debug("ws snapshot write failed", zap.String("session", id), zap.Error(err))
		return
	}

	// Pump hub events to the client until the subscription ends.
	go func() {
		for ev := range events {
			if err := writeMsg(ev); err != nil {
				return
			}
		}
	}()

	// Close the connection on session end or displacement so ReadJSON
	// below unblocks.
	connDone := make(chan struct{})
	go func() {
		select {
		case <-s.Done():
			writeMsg(serverMessage{Type: "closed"}) //nolint:errcheck
			conn.Close()
		case <-kick:
			// No "closed" message: the displaced page shows the disconnected
			// overlay rather than session-ended.
			conn.Close()
		case <-connDone:
		}
	}()
	defer close(connDone)

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "input":
			s.SetInput(msg.Data)
		case "dragenter":
			s.DragEnter()
		case "dragover":
			s.DragOver()
		case "dragleave":
			s.DragLeave()
		case "clipboard-result":
			if !s.ResolveClipboard(msg.ID, msg.OK) {
				h.log.Debug("stale clipboard result", zap.String("session", id), zap.String("request", msg.ID))
			}
		}
	}
}
