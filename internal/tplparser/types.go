package tplparser

// Message is one role-tagged turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Family identifies the chat-template dialect of a model family. The family
// is fixed when a session is constructed; rendering never re-detects it
// per token.
type Family string

const (
	FamilyUnknown Family = ""
	FamilyChatML  Family = "chatml"
	FamilyGemma   Family = "gemma"
	FamilyMistral Family = "mistral"
)

// RenderOptions carries everything a family renderer needs.
type RenderOptions struct {
	Family              Family
	BOSToken            string
	EOSToken            string
	AddBOS              bool
	AddGenerationPrompt bool
	Messages            []Message
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

func validRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
