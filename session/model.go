package session

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"obfuscator-web/binding"
	"obfuscator-web/notify"
	"obfuscator-web/options"
	"obfuscator-web/stats"
	"obfuscator-web/transform"
)

// DownloadName is the file name offered for the obfuscated output.
const DownloadName = "obfuscated.js"

// Status messages.
const (
	MsgReady             = "Ready"
	MsgFileLoaded        = "File loaded"
	MsgFileFailed        = "Failed to read file"
	MsgNothingToCopy     = "Nothing to copy"
	MsgCopied            = "Copied"
	MsgCopiedToast       = "Copied to clipboard"
	MsgCopyFailed        = "Copy failed"
	MsgNothingToDownload = "Nothing to download"
	MsgDownloaded        = "Downloaded"
	MsgCleared           = "Cleared"
	MsgOptionsReset      = "Options reset"
)

// Session-level event types, in addition to the notify ones.
const (
	EventStats     notify.EventType = "stats"
	EventDrag      notify.EventType = "drag"
	EventOptions   notify.EventType = "options"
	EventClipboard notify.EventType = "clipboard"
)

// Session is one open page: its text buffers, status line, toasts and drag
// state. Handlers are serialised by mu.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	input      string
	output     string
	lastActive time.Time

	hub       *notify.Hub
	invoker   *transform.Invoker
	opts      *options.Manager
	clipboard Clipboard
	bridge    *clientClipboard
	drop      DropZone
	log       *zap.Logger

	clientMu  sync.Mutex
	kickChan  chan struct{}
	connected bool

	stopReset func()
	done      chan struct{}
	closeOnce sync.Once
}

// Info is the listing view of a session.
type Info struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	Connected  bool      `json:"connected"`
}

// Snapshot is the full view of a session.
type Snapshot struct {
	Info
	Input    string         `json:"input"`
	Output   string         `json:"output"`
	Status   notify.Status  `json:"status"`
	Stats    stats.Stats    `json:"stats"`
	Dragging bool           `json:"dragging"`
	Toasts   []notify.Toast `json:"toasts"`
	Loaded   bool           `json:"loaded"`
}

// FileOpener is a user-selected or dropped file.
type FileOpener interface {
	Open() (io.ReadCloser, error)
}

// Hub returns the session's notification hub.
func (s *Session) Hub() *notify.Hub {
	return s.hub
}

// Done returns a channel that is closed when the session is killed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Info returns the listing view.
func (s *Session) Info() Info {
	s.mu.Lock()
	last := s.lastActive
	s.mu.Unlock()
	return Info{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastActive: last,
		Connected:  s.Connected(),
	}
}

// Snapshot returns buffers, status, stats and toasts.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	in, out, last := s.input, s.output, s.lastActive
	s.mu.Unlock()
	return Snapshot{
		Info: Info{
			ID:         s.ID,
			CreatedAt:  s.CreatedAt,
			LastActive: last,
			Connected:  s.Connected(),
		},
		Input:    in,
		Output:   out,
		Status:   s.hub.Status(),
		Stats:    stats.Compute(in, out),
		Dragging: s.drop.Dragging(),
		Toasts:   s.hub.Toasts(),
		Loaded:   s.invoker.Loaded(),
	}
}

// SetInput replaces the input buffer.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.input = text
	s.publishStats()
}

// Obfuscate runs the transform on the input buffer. The output buffer is
// only replaced on success, or cleared when there is nothing to obfuscate.
func (s *Session) Obfuscate() transform.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	out := s.invoker.Invoke(s.input, s.readOptions, s.hub)
	switch {
	case out.Empty:
		s.output = ""
		s.publishStats()
	case out.State == transform.Success:
		s.output = out.Output
		s.publishStats()
	}
	return out
}

// readOptions returns the persisted options, re-saving them as the page
// does when it reads its controls before a run.
func (s *Session) readOptions() options.Options {
	o := s.opts.Load()
	s.opts.Save(o)
	return o
}

// LoadFile replaces the input buffer with the full text of r.
func (s *Session) LoadFile(r io.Reader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadFile(r)
}

func (s *Session) loadFile(r io.Reader) {
	s.touch()
	raw, err := io.ReadAll(r)
	if err != nil {
		s.log.Warn("file read failed", zap.String("session", s.ID), zap.Error(err))
		s.hub.SetStatus(MsgFileFailed, false)
		return
	}
	s.input = decodeText(raw)
	s.publishStats()
	s.hub.SetStatus(MsgFileLoaded, true)
}

// OpenFile loads a selected file.
func (s *Session) OpenFile(f FileOpener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openFile(f)
}

func (s *Session) openFile(f FileOpener) {
	rc, err := f.Open()
	if err != nil {
		s.log.Warn("file open failed", zap.String("session", s.ID), zap.Error(err))
		s.hub.SetStatus(MsgFileFailed, false)
		return
	}
	defer rc.Close()
	s.loadFile(rc)
}

// decodeText decodes raw as UTF-8, dropping a byte order mark and replacing
// invalid sequences.
func decodeText(raw []byte) string {
	text := strings.TrimPrefix(string(raw), "\uFEFF")
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	return text
}

func (s *Session) DragEnter() { s.setDragging(true) }

func (s *Session) DragOver() { s.setDragging(true) }

func (s *Session) DragLeave() { s.setDragging(false) }

func (s *Session) setDragging(v bool) {
	if s.drop.set(v) {
		s.hub.Publish(notify.Event{Type: EventDrag, Data: v})
	}
}

// Drop ends a drag and loads the first dropped file. A drop carrying no
// files is ignored.
func (s *Session) Drop(files []FileOpener) {
	s.setDragging(false)
	if len(files) == 0 || files[0] == nil {
		return
	}
	s.OpenFile(files[0])
}

// Copy writes the output buffer to the client clipboard. The session lock
// is not held while waiting on the clipboard.
func (s *Session) Copy(ctx context.Context) error {
	s.mu.Lock()
	s.touch()
	text := s.output
	s.mu.Unlock()

	if text == "" {
		s.hub.SetStatus(MsgNothingToCopy, true)
		s.hub.Toast(MsgNothingToCopy, notify.Failure)
		return nil
	}
	if err := s.clipboard.WriteText(ctx, text); err != nil {
		s.log.Info("clipboard write failed", zap.String("session", s.ID), zap.Error(err))
		s.hub.SetStatus(MsgCopyFailed, false)
		s.hub.Toast(MsgCopyFailed, notify.Failure)
		return err
	}
	s.hub.SetStatus(MsgCopied, true)
	s.hub.Toast(MsgCopiedToast, notify.Success)
	return nil
}

// Download writes the output buffer to w. It reports false, writing
// nothing, when the output is empty.
func (s *Session) Download(w io.Writer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.output == "" {
		s.hub.SetStatus(MsgNothingToDownload, true)
		return false, nil
	}
	if _, err := io.WriteString(w, s.output); err != nil {
		return true, err
	}
	s.hub.SetStatus(MsgDownloaded, true)
	return true, nil
}

// Clear empties both buffers.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.input = ""
	s.output = ""
	s.publishStats()
	s.hub.SetStatus(MsgCleared, true)
}

// ResetOptions restores the default options. Every session re-renders its
// controls through the reset listener.
func (s *Session) ResetOptions() options.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	o := s.opts.Reset()
	s.hub.SetStatus(MsgOptionsReset, true)
	return o
}

// ResolveClipboard completes a pending clipboard request made to the
// connected client. It reports whether id was pending.
func (s *Session) ResolveClipboard(id string, ok bool) bool {
	if s.bridge == nil {
		return false
	}
	return s.bridge.resolve(id, ok)
}

// SetClient marks a client as connected. If a previous client is connected
// it is kicked: its kick channel is closed so the websocket handler can close
// that connection. Returns a kick channel that will be closed if this client
// is itself later displaced.
func (s *Session) SetClient() <-chan struct{} {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	if s.kickChan != nil {
		close(s.kickChan)
	}
	kick := make(chan struct{})
	s.kickChan = kick
	s.connected = true
	return kick
}

// ClearClient is called when a connection ends. It only updates state if
// kick still belongs to the current client.
func (s *Session) ClearClient(kick <-chan struct{}) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	if s.kickChan != nil && (<-chan struct{})(s.kickChan) == kick {
		s.kickChan = nil
		s.connected = false
	}
}

// Connected reports whether a client is attached.
func (s *Session) Connected() bool {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.connected
}

func (s *Session) publishStats() {
	st := stats.Compute(s.input, s.output)
	s.hub.Publish(notify.Event{Type: EventStats, Data: st})
}

func (s *Session) publishOptions(o options.Options) {
	f := binding.NewFields()
	binding.SyncFromConfig(f, o)
	s.hub.Publish(notify.Event{Type: EventOptions, Data: f})
}

// touch records activity. Caller must hold s.mu.
func (s *Session) touch() {
	s.lastActive = time.Now()
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		if s.stopReset != nil {
			s.stopReset()
		}
		close(s.done)
		s.hub.Close()
	})
}
