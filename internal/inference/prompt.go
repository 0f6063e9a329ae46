package inference

import (
	"github.com/kigichang/mospeada/internal/tokenizer"
	"github.com/kigichang/mospeada/internal/tplparser"
)

// PromptBuilder renders a conversation into the model's chat format and
// encodes it. The template family is fixed at construction.
type PromptBuilder struct {
	family   tplparser.Family
	tok      tokenizer.Tokenizer
	bosToken string
	eosToken string
	addBOS   bool
}

func NewPromptBuilder(family tplparser.Family, tok tokenizer.Tokenizer, bosToken, eosToken string, addBOS bool) *PromptBuilder {
	return &PromptBuilder{
		family:   family,
		tok:      tok,
		bosToken: bosToken,
		eosToken: eosToken,
		addBOS:   addBOS,
	}
}

// Render produces the prompt text for a conversation. With NoTemplate the
// last user message is used verbatim.
func (b *PromptBuilder) Render(req *Request) (string, error) {
	if req.NoTemplate {
		return lastUserText(req.Messages), nil
	}
	return tplparser.Render(tplparser.RenderOptions{
		Family:              b.family,
		BOSToken:            b.bosToken,
		EOSToken:            b.eosToken,
		AddBOS:              b.addBOS,
		AddGenerationPrompt: true,
		Messages:            req.Messages,
	})
}

// BuildPromptTokens renders and encodes a conversation, wrapping failures
// with the stage they occurred in.
func (b *PromptBuilder) BuildPromptTokens(req *Request) ([]int, error) {
	text, err := b.Render(req)
	if err != nil {
		return nil, &SessionError{Stage: StageRender, Err: err}
	}
	ids, err := b.tok.Encode(text)
	if err != nil {
		return nil, &SessionError{Stage: StageEncode, Err: err}
	}
	return ids, nil
}

func lastUserText(msgs []tokenizer.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == tplparser.RoleUser {
			return msgs[i].Content
		}
	}
	if len(msgs) > 0 {
		return msgs[len(msgs)-1].Content
	}
	return ""
}
