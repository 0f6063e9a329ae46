package tplparser

import "strings"

func renderChatML(opts RenderOptions) string {
	var b strings.Builder

	// Emit the BOS token textually only when the tokenizer does not add it.
	if !opts.AddBOS && opts.BOSToken != "" {
		b.WriteString(opts.BOSToken)
	}

	for _, m := range opts.Messages {
		b.WriteString("<|im_start|>")
		b.WriteString(m.Role)
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString("<|im_end|>\n")
	}

	if opts.AddGenerationPrompt {
		b.WriteString("<|im_start|>assistant\n")
	}
	return b.String()
}
