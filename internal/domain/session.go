package domain

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is owned by the single in-flight task; it is not safe for
// concurrent use and needs no locking.
type Session struct {
	ID        string
	History   []Message
	LoopCount int
}

func NewSession(systemPrompt string) *Session {
	s := &Session{}
	if systemPrompt != "" {
		s.History = append(s.History, Message{Role: RoleSystem, Content: systemPrompt})
	}

	return s
}

func (s *Session) Append(messages ...Message) {
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		s.History = append(s.History, m)
	}
}
