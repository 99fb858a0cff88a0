package persona

// Persona describes one industry assistant offered in the selector.
type Persona struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	WelcomeText string `json:"welcomeText" yaml:"welcomeText"`
	Icon        string `json:"icon,omitempty" yaml:"icon,omitempty"` // lucide icon name, render data only
}

// Seed provides the built-in industry catalog. The first entry is the default persona.
func Seed() []Persona {
	return []Persona{
		{
			ID:          "general",
			Name:        "Main Guide",
			Description: "General assistance and guidance",
			WelcomeText: "Welcome to Kinnect Data Solutions! I can assist you with general data needs or guide you to specialized solutions tailored for your industry.",
			Icon:        "users-2",
		},
		{
			ID:          "healthcare",
			Name:        "Healthcare",
			Description: "Patient records, medical research, and compliance tracking",
			WelcomeText: "Ask me about managing patient records, organizing research data, or ensuring compliance with healthcare regulations. Simply type your need, and I'll guide you.",
			Icon:        "hospital",
		},
		{
			ID:          "finance",
			Name:        "Finance",
			Description: "Financial reporting, budget tracking, and investment management",
			WelcomeText: "I specialize in handling financial data. Whether it's budget tracking, investment management, or generating financial reports, just let me know what you need.",
			Icon:        "line-chart",
		},
		{
			ID:          "government",
			Name:        "Government",
			Description: "Census data, public policy, and municipal records",
			WelcomeText: "Looking for help with government-related data? I can assist with census data, public policy organization, or managing municipal records.",
			Icon:        "building-2",
		},
		{
			ID:          "retail",
			Name:        "Retail",
			Description: "Inventory, sales trends, and customer insights",
			WelcomeText: "Retail data is my specialty. Type your request to learn about inventory, sales trends, or customer insights.",
			Icon:        "shopping-bag",
		},
		{
			ID:          "nonprofit",
			Name:        "Not-for-Profit",
			Description: "Donor management, volunteer tracking, and grant reporting",
			WelcomeText: "I can help with donor management, volunteer organization, or grant reporting. Share your needs to get started.",
			Icon:        "heart",
		},
		{
			ID:          "sports",
			Name:        "Sports",
			Description: "Performance metrics, game stats, and fan engagement",
			WelcomeText: "For sports-related data, ask me about performance metrics, game stats, or fan engagement analysis.",
			Icon:        "trophy",
		},
		{
			ID:          "social-media",
			Name:        "Social Media",
			Description: "Engagement tracking, trends, and influencer impact",
			WelcomeText: "I specialize in analyzing social media trends, engagement data, and influencer impact. Let me know what you'd like to explore.",
			Icon:        "share-2",
		},
	}
}

// Directive is the system message injected when a session switches to p.
func (p Persona) Directive() string {
	return "You are a specialized AI assistant for " + p.Name + " data solutions. " + p.WelcomeText
}
