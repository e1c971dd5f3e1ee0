package chat

import (
	"context"

	"github.com/seenimoa/energybot/internal/nlu"
)

// State is the lifecycle state of a conversation.
type State int

const (
	Running State = iota
	Terminated
)

func (s State) String() string {
	if s == Terminated {
		return "terminated"
	}
	return "running"
}

// Session is one conversation. It is not safe for concurrent use; every
// utterance is fully answered before the next is accepted.
type Session struct {
	d     *Dispatcher
	state State
}

// NewSession starts a conversation in the Running state.
func (d *Dispatcher) NewSession() *Session {
	d.metrics.SessionStarted()
	return &Session{d: d, state: Running}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Handle answers one utterance. An exit word ends the session before the
// text is interpreted; afterwards Handle returns ErrSessionTerminated.
func (s *Session) Handle(ctx context.Context, text string) (Reply, error) {
	if s.state == Terminated {
		return Reply{}, ErrSessionTerminated
	}
	if nlu.IsExit(text) {
		s.d.metrics.RecordIntent(string(nlu.IntentExit))
		s.terminate()
		return Reply{Text: msgFarewell, Intent: nlu.IntentExit, Terminated: true}, nil
	}
	return s.d.Dispatch(ctx, text), nil
}

// Close ends the session without an exit utterance, e.g. on interrupt.
// It returns the farewell text and is a no-op after termination.
func (s *Session) Close() string {
	s.terminate()
	return msgFarewell
}

func (s *Session) terminate() {
	if s.state == Terminated {
		return
	}
	s.state = Terminated
	s.d.metrics.SessionEnded()
}
