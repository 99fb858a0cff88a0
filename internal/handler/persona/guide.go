package persona

import (
	"github.com/kinnect/kinnect-chat/backend/internal/model/chat"
	"github.com/kinnect/kinnect-chat/backend/internal/model/persona"
)

// Guide is the static content of the "Guide" tab.
type Guide struct {
	Title              string   `json:"title"`
	Welcome            string   `json:"welcome"`
	Features           []string `json:"features"`
	GettingStarted     []string `json:"gettingStarted"`
	DefaultPersonaID   string   `json:"defaultPersonaId"`
	AcceptedExtensions []string `json:"acceptedExtensions"`
}

func newGuide(def persona.Persona) Guide {
	return Guide{
		Title:   "Welcome to Kinnect Data Solutions!",
		Welcome: "I can assist you with general data needs or guide you to specialized solutions tailored for your industry.",
		Features: []string{
			"Industry Selector: Select your specialized sector from the sidebar",
			"Getting Started Guide: Step-by-step guidance for system interaction",
			"Sub-Sector Chatboxes: Tailored support for each industry",
			"File Upload: Support for data analysis and processing",
		},
		GettingStarted: []string{
			"Select your industry from the left sidebar",
			"Upload your data files for analysis",
			"Ask questions specific to your needs",
			"Receive tailored guidance and solutions",
		},
		DefaultPersonaID:   def.ID,
		AcceptedExtensions: append([]string(nil), chat.AcceptedFileExtensions...),
	}
}
