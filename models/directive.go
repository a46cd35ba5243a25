package models

// DirectiveType is one carrier instruction kind.
type DirectiveType string

const (
	DirectiveSpeak    DirectiveType = "speak"
	DirectiveGather   DirectiveType = "gather"
	DirectiveHangup   DirectiveType = "hangup"
	DirectiveRedirect DirectiveType = "redirect"
)

// Directive is one ordered instruction returned to the telephony layer.
// Rendering into carrier markup happens outside the orchestrator.
type Directive struct {
	Type     DirectiveType `json:"type"`
	Text     string        `json:"text,omitempty"`     // speak
	AudioRef string        `json:"audioRef,omitempty"` // speak, when synthesis produced a cached asset
	URL      string        `json:"url,omitempty"`      // redirect
}

// Speak builds a speak directive.
func Speak(text, audioRef string) Directive {
	return Directive{Type: DirectiveSpeak, Text: text, AudioRef: audioRef}
}

// Gather asks the carrier to capture the next utterance.
func Gather() Directive {
	return Directive{Type: DirectiveGather}
}

// Hangup terminates the call.
func Hangup() Directive {
	return Directive{Type: DirectiveHangup}
}
