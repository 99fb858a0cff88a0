package chat

import (
	"iter"
	"slices"
)

// Session is the state of one conversation. Values are treated as immutable:
// transitions build a new Session and never modify a shared History array.
type Session struct {
	ID              string    `json:"id"`
	ActivePersonaID string    `json:"activePersonaId"`
	History         []Message `json:"messages"`
	Pending         bool      `json:"pending"`
	LastError       string    `json:"error,omitempty"`
}

// Len returns the number of messages in the history.
func (s Session) Len() int {
	return len(s.History)
}

// Last returns the newest message.
func (s Session) Last() (Message, bool) {
	if len(s.History) == 0 {
		return Message{}, false
	}
	return s.History[len(s.History)-1], true
}

// Messages yields the history in insertion order. The sequence can be ranged
// over any number of times.
func (s Session) Messages() iter.Seq[Message] {
	history := s.History
	return func(yield func(Message) bool) {
		for _, m := range history {
			if !yield(m) {
				return
			}
		}
	}
}

// Transcript returns the user and assistant messages, which are the ones
// rendered as chat bubbles.
func (s Session) Transcript() []Message {
	visible := make([]Message, 0, len(s.History))
	for m := range s.Messages() {
		if m.Role != RoleSystem {
			visible = append(visible, m)
		}
	}
	return visible
}

// Clone returns a copy whose History does not alias s.
func (s Session) Clone() Session {
	s.History = slices.Clone(s.History)
	return s
}

// WithMessage returns a copy of s with m appended.
func (s Session) WithMessage(m Message) Session {
	next := s
	next.History = append(slices.Clip(s.History), m)
	return next
}
