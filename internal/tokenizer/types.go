package tokenizer

import "github.com/kigichang/mospeada/internal/tplparser"

// Message represents a chat message for template rendering.
type Message = tplparser.Message
