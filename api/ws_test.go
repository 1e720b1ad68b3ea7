package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"obfuscator-web/session"
)

// wsMsg decodes any server message; Data is left raw for the caller.
type wsMsg struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Status *struct {
		Message string `json:"message"`
		OK      bool   `json:"ok"`
	} `json:"status,omitempty"`
}

func dialWS(t *testing.T, srv *httptest.Server, path string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	return websocket.DefaultDialer.Dial(wsURL, nil)
}

// readUntil reads messages until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) wsMsg {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg wsMsg
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func connect(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	conn, _, err := dialWS(t, srv, "/api/sessions/"+id+"/ws")
	if err != nil {
		t.Fatalf("WS dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	readUntil(t, conn, "snapshot")
	return conn
}

func TestWSNotFound(t *testing.T) {
	srv, _ := newTestServer(t, renamer)

	_, resp, err := dialWS(t, srv, "/api/sessions/nonexistent/ws")
	if err == nil {
		t.Fatal("expected error connecting to nonexistent session")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", resp)
	}
}

func TestWSSnapshotOnConnect(t *testing.T) {
	srv, mgr := newTestServer(t, renamer)
	s := mgr.Create()
	s.SetInput("var a=1;")

	conn, _, err := dialWS(t, srv, "/api/sessions/"+s.ID+"/ws")
	if err != nil {
		t.Fatalf("WS dial: %v", err)
	}
	defer conn.Close()

	msg := readUntil(t, conn, "snapshot")
	var snap snapshot
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.ID != s.ID || snap.Input != "var a=1;" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !s.Connected() {
		t.Fatal("expected session to be connected")
	}
}

func TestWSInputUpdatesStats(t *testing.T) {
	srv, mgr := newTestServer(t, renamer)
	s := mgr.Create()
	conn := connect(t, srv, s.ID)

	if err := conn.WriteJSON(map[string]string{"type": "input", "data": "abcd"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg := readUntil(t, conn, string(session.EventStats))
	var st struct {
		Input string `json:"input"`
	}
	if err := json.Unmarshal(msg.Data, &st); err != nil {
		t.Fatal(err)
	}
	if st.Input != "4 bytes" {
		t.Fatalf("expected 4 bytes, got %q", st.Input)
	}
	if got := s.Snapshot().Input; got != "abcd" {
		t.Fatalf("expected input abcd, got %q", got)
	}
}

func TestWSDragEvents(t *testing.T) {
	srv, mgr := newTestServer(t, renamer)
	s := mgr.Create()
	conn := connect(t, srv, s.ID)

	conn.WriteJSON(map[string]string{"type": "dragenter"})
	msg := readUntil(t, conn, string(session.EventDrag))
	if string(msg.Data) != "true" {
		t.Fatalf("expected drag true, got %s", msg.Data)
	}

	conn.WriteJSON(map[string]string{"type": "dragleave"})
	msg = readUntil(t, conn, string(session.EventDrag))
	if string(msg.Data) != "false" {
		t.Fatalf("expected drag false, got %s", msg.Data)
	}
}

func TestWSClipboardRoundTrip(t *testing.T) {
	srv, mgr := newTestServer(t, renamer)
	s := mgr.Create()
	s.SetInput("var a=1;")
	s.Obfuscate()
	conn := connect(t, srv, s.ID)
	// Ends a copy still waiting on the page, so server shutdown cannot block.
	t.Cleanup(func() { mgr.Kill(s.ID) })

	done := make(chan *http.Response, 1)
	go func() {
		resp, err := http.Post(srv.URL+"/api/sessions/"+s.ID+"/copy", "application/json", nil)
		if err != nil {
			done <- nil
			return
		}
		done <- resp
	}()

	req := readUntil(t, conn, string(session.EventClipboard))
	var text string
	if err := json.Unmarshal(req.Data, &text); err != nil {
		t.Fatal(err)
	}
	if text != "var _0x1=1;" {
		t.Fatalf("unexpected clipboard text %q", text)
	}
	conn.WriteJSON(map[string]any{"type": "clipboard-result", "id": req.ID, "ok": true})

	select {
	case resp := <-done:
		if resp == nil {
			t.Fatal("copy request failed")
		}
		snap := decodeSnapshot(t, resp)
		if snap.Status.Message != session.MsgCopied || !snap.Status.OK {
			t.Fatalf("unexpected status %+v", snap.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("copy did not complete")
	}
}

func TestWSClipboardRejected(t *testing.T) {
	srv, mgr := newTestServer(t, renamer)
	s := mgr.Create()
	s.SetInput("a")
	s.Obfuscate()
	conn := connect(t, srv, s.ID)
	t.Cleanup(func() { mgr.Kill(s.ID) })

	done := make(chan *http.Response, 1)
	go func() {
		resp, _ := http.Post(srv.URL+"/api/sessions/"+s.ID+"/copy", "application/json", nil)
		done <- resp
	}()

	req := readUntil(t, conn, string(session.EventClipboard))
	conn.WriteJSON(map[string]any{"type": "clipboard-result", "id": req.ID, "ok": false})

	select {
	case resp := <-done:
		if resp == nil {
			t.Fatal("copy request failed")
		}
		snap := decodeSnapshot(t, resp)
		if snap.Status.Message != session.MsgCopyFailed || snap.Status.OK {
			t.Fatalf("unexpected status %+v", snap.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("copy did not complete")
	}
}

func TestWSClosedOnKill(t *testing.T) {
	srv, mgr := newTestServer(t, renamer)
	s := mgr.Create()
	conn := connect(t, srv, s.ID)

	if err := mgr.Kill(s.ID); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	readUntil(t, conn, "closed")
}

func TestWSDisplacement(t *testing.T) {
	srv, mgr := newTestServer(t, renamer)
	s := mgr.Create()

	first := connect(t, srv, s.ID)
	connect(t, srv, s.ID)

	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg wsMsg
		if err := first.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type == "closed" {
			t.Fatal("displaced client must not receive closed")
		}
	}
	if !s.Connected() {
		t.Fatal("expected second client to remain connected")
	}
}
