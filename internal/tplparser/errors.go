package tplparser

// TemplateError reports a conversation the active template cannot render.
type TemplateError struct {
	Reason string
}

func (e *TemplateError) Error() string {
	return "chat template: " + e.Reason
}
