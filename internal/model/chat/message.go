package chat

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one append-only entry of a session history.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// FileDescriptor is what the file picker hands over. Only Name is ever used.
type FileDescriptor struct {
	Name        string `json:"name"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// AcceptedFileExtensions is the advisory filter offered to the file picker.
var AcceptedFileExtensions = []string{".csv", ".xlsx", ".xls", ".json"}
