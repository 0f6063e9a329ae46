package tplparser

import (
	"fmt"
	"strings"
)

// Detect resolves the template family for a model, first by architecture
// name, then by signature substrings of the raw chat_template string.
// ok=false means no renderer matches.
func Detect(arch, template string) (Family, bool) {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "qwen2", "qwen3", "lfm2", "chatml":
		return FamilyChatML, true
	case "gemma", "gemma2", "gemma3", "gemma3_text":
		return FamilyGemma, true
	case "mistral", "mistral3", "ministral":
		return FamilyMistral, true
	}
	switch {
	case strings.Contains(template, "<|im_start|>") && strings.Contains(template, "<|im_end|>"):
		return FamilyChatML, true
	case strings.Contains(template, "<start_of_turn>"):
		return FamilyGemma, true
	case strings.Contains(template, "[INST]"):
		return FamilyMistral, true
	}
	return FamilyUnknown, false
}

// Render flattens a conversation into the single prompt string the model
// family expects. An empty conversation or a role the family cannot place
// yields a TemplateError.
func Render(opts RenderOptions) (string, error) {
	if len(opts.Messages) == 0 {
		return "", &TemplateError{Reason: "empty conversation"}
	}
	for _, m := range opts.Messages {
		if !validRole(m.Role) {
			return "", &TemplateError{Reason: fmt.Sprintf("unsupported role %q", m.Role)}
		}
	}
	switch opts.Family {
	case FamilyChatML:
		return renderChatML(opts), nil
	case FamilyGemma:
		return renderGemma(opts)
	case FamilyMistral:
		return renderMistral(opts)
	default:
		return "", &TemplateError{Reason: fmt.Sprintf("unsupported template family %q", string(opts.Family))}
	}
}
