package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() Session {
	return Session{
		ActivePersonaID: "general",
		History: []Message{
			{ID: "1", Role: RoleAssistant, Content: "welcome"},
			{ID: "2", Role: RoleSystem, Content: "directive"},
			{ID: "3", Role: RoleUser, Content: "hi"},
		},
	}
}

func TestMessagesIsRestartable(t *testing.T) {
	s := sampleSession()
	seq := s.Messages()

	var first, second []string
	for m := range seq {
		first = append(first, m.ID)
	}
	for m := range seq {
		second = append(second, m.ID)
	}

	assert.Equal(t, []string{"1", "2", "3"}, first)
	assert.Equal(t, first, second)
}

func TestMessagesStopsEarly(t *testing.T) {
	count := 0
	for range sampleSession().Messages() {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestTranscriptHidesSystemMessages(t *testing.T) {
	visible := sampleSession().Transcript()
	require.Len(t, visible, 2)
	assert.Equal(t, RoleAssistant, visible[0].Role)
	assert.Equal(t, RoleUser, visible[1].Role)
}

func TestWithMessageDoesNotAlias(t *testing.T) {
	base := sampleSession()
	base.History = append(make([]Message, 0, 10), base.History...)

	a := base.WithMessage(Message{ID: "a"})
	b := base.WithMessage(Message{ID: "b"})

	assert.Equal(t, 3, base.Len())
	last, _ := a.Last()
	assert.Equal(t, "a", last.ID)
	last, _ = b.Last()
	assert.Equal(t, "b", last.ID)
}
