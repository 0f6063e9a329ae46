package tplparser

import (
	"fmt"
	"strings"
)

// Mistral wraps user turns in [INST] blocks and closes each assistant turn
// with the EOS token. A leading system message is prepended to the first
// user turn.
func renderMistral(opts RenderOptions) (string, error) {
	var b strings.Builder

	if !opts.AddBOS && opts.BOSToken != "" {
		b.WriteString(opts.BOSToken)
	}

	msgs := opts.Messages
	systemPrompt := ""
	if msgs[0].Role == RoleSystem {
		systemPrompt = msgs[0].Content
		msgs = msgs[1:]
	}
	if len(msgs) == 0 {
		return "", &TemplateError{Reason: "mistral requires a user turn to carry the system prompt"}
	}

	if err := validateAlternation(msgs); err != nil {
		return "", err
	}

	for i, m := range msgs {
		switch m.Role {
		case RoleUser:
			b.WriteString("[INST] ")
			if i == 0 && systemPrompt != "" {
				b.WriteString(systemPrompt)
				b.WriteString("\n\n")
			}
			b.WriteString(m.Content)
			b.WriteString(" [/INST]")
		case RoleAssistant:
			b.WriteString(" ")
			b.WriteString(m.Content)
			b.WriteString(opts.EOSToken)
		}
	}
	return b.String(), nil
}

func validateAlternation(msgs []Message) error {
	for i, m := range msgs {
		if m.Role == RoleSystem {
			return &TemplateError{Reason: "mistral allows a system message only at the start"}
		}
		wantUser := i%2 == 0
		if wantUser && m.Role != RoleUser || !wantUser && m.Role != RoleAssistant {
			return &TemplateError{Reason: fmt.Sprintf("mistral requires user/assistant alternation, got %q at turn %d", m.Role, i)}
		}
	}
	return nil
}
