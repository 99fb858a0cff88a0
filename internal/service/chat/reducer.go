package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/kinnect/kinnect-chat/backend/internal/model/chat"
	"github.com/kinnect/kinnect-chat/backend/internal/model/persona"
)

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// PersonaSelected switches the active persona and injects its directive.
type PersonaSelected struct {
	Persona   persona.Persona
	MessageID string
	At        time.Time
}

// UserTextSubmitted appends typed user input.
type UserTextSubmitted struct {
	Text      string
	MessageID string
	At        time.Time
}

// FileSubmitted appends the synthetic message describing a picked file.
type FileSubmitted struct {
	File      chat.FileDescriptor
	MessageID string
	At        time.Time
}

// ExchangeSucceeded records the backend reply.
type ExchangeSucceeded struct {
	Reply chat.Message
}

// ExchangeFailed records a failed round trip. History is left as it was.
type ExchangeFailed struct {
	Err error
}

func (PersonaSelected) isEvent()   {}
func (UserTextSubmitted) isEvent() {}
func (FileSubmitted) isEvent()     {}
func (ExchangeSucceeded) isEvent() {}
func (ExchangeFailed) isEvent()    {}

// Transition is the outcome of Reduce.
type Transition struct {
	Session chat.Session
	// StartExchange asks the caller to send Session.History to the backend.
	StartExchange bool
	// Ignored marks a submission dropped by the input guard.
	Ignored bool
}

// FileMessage builds the user message content for an uploaded file.
func FileMessage(name string) string {
	return "I've uploaded a file named " + name + ". Please help me analyze its contents and provide insights."
}

// Initialize builds the starting session for persona p.
func Initialize(sessionID string, p persona.Persona, welcomeID string, at time.Time) chat.Session {
	return chat.Session{
		ID:              sessionID,
		ActivePersonaID: p.ID,
		History: []chat.Message{{
			ID:        welcomeID,
			Role:      chat.RoleAssistant,
			Content:   p.WelcomeText,
			CreatedAt: at,
		}},
	}
}

// Reduce applies ev to s. It never modifies s.
//
// A persona switch while an exchange is pending is rejected with
// ErrExchangeInFlight. Text and file submissions while pending are ignored.
func Reduce(s chat.Session, ev Event) (Transition, error) {
	switch ev := ev.(type) {
	case PersonaSelected:
		if ev.Persona.ID == "" {
			return Transition{Session: s}, ErrUnknownPersona
		}
		if s.Pending {
			return Transition{Session: s}, ErrExchangeInFlight
		}
		next := s.WithMessage(chat.Message{
			ID:        ev.MessageID,
			Role:      chat.RoleSystem,
			Content:   ev.Persona.Directive(),
			CreatedAt: ev.At,
		})
		next.ActivePersonaID = ev.Persona.ID
		return begin(next), nil

	case UserTextSubmitted:
		if s.Pending || strings.TrimSpace(ev.Text) == "" {
			return Transition{Session: s, Ignored: true}, nil
		}
		return begin(s.WithMessage(chat.Message{
			ID:        ev.MessageID,
			Role:      chat.RoleUser,
			Content:   ev.Text,
			CreatedAt: ev.At,
		})), nil

	case FileSubmitted:
		if strings.TrimSpace(ev.File.Name) == "" {
			return Transition{Session: s}, ErrFileNameRequired
		}
		if s.Pending {
			return Transition{Session: s, Ignored: true}, nil
		}
		return begin(s.WithMessage(chat.Message{
			ID:        ev.MessageID,
			Role:      chat.RoleUser,
			Content:   FileMessage(ev.File.Name),
			CreatedAt: ev.At,
		})), nil

	case ExchangeSucceeded:
		if !s.Pending {
			return Transition{Session: s}, ErrNoExchange
		}
		reply := ev.Reply
		reply.Role = chat.RoleAssistant
		next := s.WithMessage(reply)
		next.Pending = false
		return Transition{Session: next}, nil

	case ExchangeFailed:
		if !s.Pending {
			return Transition{Session: s}, ErrNoExchange
		}
		next := s
		next.Pending = false
		if ev.Err != nil {
			next.LastError = ev.Err.Error()
		} else {
			next.LastError = ErrBackendUnavailable.Error()
		}
		return Transition{Session: next}, nil

	default:
		return Transition{Session: s}, fmt.Errorf("unsupported event %T", ev)
	}
}

func begin(s chat.Session) Transition {
	s.Pending = true
	s.LastError = ""
	return Transition{Session: s, StartExchange: true}
}
