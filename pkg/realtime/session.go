package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/vobuild/vobuild/pkg/chat"
	"github.com/vobuild/vobuild/pkg/fault"
)

// State is the connection state of a voice session.
type State int

const (
	StateIdle State = iota
	StateNegotiating
	StateConnected
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Update is a snapshot of observable session state, delivered on every
// change. Message is set when the update was caused by a transcript append.
type Update struct {
	State    State
	Speaking bool
	Message  *chat.Message
}

// transport carries outbound control events and owns the underlying
// connection resources (data channel, peer connection or socket, and the
// microphone when one was acquired).
type transport interface {
	send([]byte) error
	close() error
}

// Session is one live voice conversation. All state is owned by a single
// dispatch goroutine; inbound control messages are queued and processed in
// transport order.
type Session struct {
	log       *slog.Logger
	transport transport

	queue   chan []byte
	updates chan Update
	quit    chan struct{}
	done    chan struct{}

	closeOnce sync.Once

	mu            sync.Mutex
	state         State
	speaking      bool
	remoteID      string
	transcript    []chat.Message
	updatesClosed bool
	audioFn       func(pcm []byte)
}

// newSession creates a session in the negotiating state and starts its
// dispatch goroutine. The transport may be attached later, before the
// session is handed to the caller.
func newSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		log:     logger,
		state:   StateNegotiating,
		queue:   make(chan []byte, 100),
		updates: make(chan Update, 32),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Speaking reports whether the agent is currently producing audio. Never
// true unless the session is connected.
func (s *Session) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// RemoteID returns the agent-assigned session ID, if known.
func (s *Session) RemoteID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteID
}

// Updates returns the state change channel. Updates are dropped if the
// receiver falls behind; poll State and Transcript for authoritative state.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// SendText sends a user text message and asks the agent to respond.
func (s *Session) SendText(text string) error {
	if s.State() != StateConnected {
		return fault.New(fault.KindNegotiation, "session is not connected")
	}
	if err := s.sendEvent(textMessageEvent(text)); err != nil {
		return err
	}
	if err := s.sendEvent(responseCreateEvent()); err != nil {
		return err
	}
	s.appendMessage(chat.New(chat.RoleUser, text))
	return nil
}

// Close tears the session down. Safe to call from any state and more than
// once; all transport resources, including the microphone, are released.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done

		s.mu.Lock()
		s.state = StateClosed
		s.speaking = false
		s.mu.Unlock()

		if s.transport != nil {
			err = s.transport.close()
		}

		s.emit(Update{State: StateClosed})

		s.mu.Lock()
		s.updatesClosed = true
		close(s.updates)
		s.mu.Unlock()

		s.log.Info("session closed")
	})
	return err
}

// enqueue hands a raw inbound message to the dispatch goroutine. Messages
// arriving after close are dropped.
func (s *Session) enqueue(raw []byte) {
	select {
	case <-s.quit:
	case s.queue <- raw:
	}
}

// markConnected moves the session from negotiating to connected. Called on
// data channel open, on the first control event, or on the first inbound
// RTP packet, whichever lands first.
func (s *Session) markConnected() {
	s.mu.Lock()
	if s.state != StateNegotiating {
		s.mu.Unlock()
		return
	}
	s.state = StateConnected
	s.mu.Unlock()

	s.log.Info("session connected")
	s.emit(Update{State: StateConnected})
}

// setAudioOut installs the sink that receives the agent's decoded audio.
func (s *Session) setAudioOut(fn func(pcm []byte)) {
	s.mu.Lock()
	s.audioFn = fn
	s.mu.Unlock()
}

// handleMedia processes one inbound media payload. Audio arriving at all
// proves the session is live; the decoded frame goes to the playback sink
// when one is installed.
func (s *Session) handleMedia(payload []byte) {
	s.markConnected()
	if len(payload) == 0 {
		return
	}
	s.mu.Lock()
	fn := s.audioFn
	s.mu.Unlock()
	if fn != nil {
		fn(decodeMulaw(payload))
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case raw := <-s.queue:
			s.dispatch(raw)
		}
	}
}

// dispatch processes one inbound control message. Unparseable messages are
// logged and dropped with no state change.
func (s *Session) dispatch(raw []byte) {
	event, err := parseEvent(raw)
	if err != nil {
		s.log.Warn("dropping unparseable event", "err", err, "len", len(raw))
		return
	}

	// Any control event proves the channel is live.
	s.markConnected()

	switch event.Type {
	case EventTypeSessionCreated:
		if event.Session != nil {
			s.mu.Lock()
			s.remoteID = event.Session.ID
			s.mu.Unlock()
			s.log.Debug("remote session created", "remote_id", event.Session.ID)
		}

	case EventTypeConversationItemCreated:
		s.handleItemCreated(event.Item)

	case EventTypeResponseAudioDelta:
		s.setSpeaking(true)

	case EventTypeResponseAudioDone:
		s.setSpeaking(false)

	case EventTypeSpeechStarted, EventTypeSpeechStopped:
		s.log.Debug("speech detection", "type", event.Type)

	case EventTypeError:
		if event.Error != nil {
			s.log.Warn("agent reported error", "detail", event.Error.String())
		}

	default:
		s.log.Debug("ignoring event", "type", event.Type)
	}
}

func (s *Session) handleItemCreated(item *ConversationItem) {
	if item == nil {
		return
	}
	text := item.Text()
	if text == "" {
		return
	}
	role := chat.RoleAssistant
	if item.Role == string(chat.RoleUser) {
		role = chat.RoleUser
	}
	s.appendMessage(chat.New(role, text))
}

func (s *Session) appendMessage(msg chat.Message) {
	s.mu.Lock()
	s.transcript = append(s.transcript, msg)
	state, speaking := s.state, s.speaking
	s.mu.Unlock()

	s.emit(Update{State: state, Speaking: speaking, Message: &msg})
}

func (s *Session) setSpeaking(speaking bool) {
	s.mu.Lock()
	if s.state != StateConnected || s.speaking == speaking {
		s.mu.Unlock()
		return
	}
	s.speaking = speaking
	state := s.state
	s.mu.Unlock()

	s.emit(Update{State: state, Speaking: speaking})
}

func (s *Session) emit(update Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updatesClosed {
		return
	}
	select {
	case s.updates <- update:
	default:
	}
}

func (s *Session) sendEvent(event map[string]any) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if s.log.Enabled(context.Background(), slog.LevelDebug) {
		detail := string(raw)
		if len(detail) > 500 {
			detail = detail[:500] + "..."
		}
		s.log.Debug("sending event", "content", detail)
	}
	return s.transport.send(raw)
}
