package tplparser

import "strings"

// Gemma has no system turn. A leading system message is folded into the
// first user turn, the way the reference template does it.
func renderGemma(opts RenderOptions) (string, error) {
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
		return "", &TemplateError{Reason: "gemma requires a user turn to carry the system prompt"}
	}

	for i, m := range msgs {
		role := m.Role
		if role == RoleAssistant {
			role = "model"
		}
		if role == RoleSystem {
			return "", &TemplateError{Reason: "gemma allows a system message only at the start"}
		}
		b.WriteString("<start_of_turn>")
		b.WriteString(role)
		b.WriteString("\n")
		if i == 0 && systemPrompt != "" {
			b.WriteString(systemPrompt)
			b.WriteString("\n\n")
		}
		b.WriteString(m.Content)
		b.WriteString("<end_of_turn>\n")
	}

	if opts.AddGenerationPrompt {
		b.WriteString("<start_of_turn>model\n")
	}
	return b.String(), nil
}
