package conversations

import "fmt"

// Kind tells who produced a turn and how it is closed.
type Kind int

const (
	// KindUserUtterance is free user speech, closed by endpointing.
	KindUserUtterance Kind = iota
	// KindControlAssertion is user speech closed once the user takes the
	// controls ("I have control").
	KindControlAssertion
	// KindControlRelinquish is user speech closed once the user hands the
	// controls back ("You have control").
	KindControlRelinquish
	// KindAssistantResponse is a streamed completion.
	KindAssistantResponse
	// KindScriptedPrompt is prepared text shown in full.
	KindScriptedPrompt
	// KindScriptedEvent is prepared text revealed along a word timeline.
	KindScriptedEvent
)

var kindNames = map[Kind]string{
	KindUserUtterance:     "user_utterance",
	KindControlAssertion:  "control_assertion",
	KindControlRelinquish: "control_relinquish",
	KindAssistantResponse: "assistant_response",
	KindScriptedPrompt:    "scripted_prompt",
	KindScriptedEvent:     "scripted_event",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseKind(name string) (Kind, error) {
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown turn kind %q", name)
}

// IsUser reports whether the turn is filled by transcription.
func (k Kind) IsUser() bool {
	return k == KindUserUtterance || k == KindControlAssertion || k == KindControlRelinquish
}

func (k Kind) IsScripted() bool {
	return k == KindScriptedPrompt || k == KindScriptedEvent
}

// Reveals reports whether the turn exposes its text through RevealedText
// rather than DisplayText.
func (k Kind) Reveals() bool {
	return k == KindAssistantResponse || k == KindScriptedEvent
}

// Subkind narrows a scripted event down to the moment it belongs to.
type Subkind string

const (
	SubkindNone    Subkind = ""
	SubkindSelect  Subkind = "select"
	SubkindBegin   Subkind = "begin"
	SubkindWarn    Subkind = "warn"
	SubkindFatal   Subkind = "fatal"
	SubkindSuccess Subkind = "success"
)

func ParseSubkind(name string) (Subkind, error) {
	switch subkind := Subkind(name); subkind {
	case SubkindNone, SubkindSelect, SubkindBegin, SubkindWarn, SubkindFatal, SubkindSuccess:
		return subkind, nil
	}
	return SubkindNone, fmt.Errorf("unknown scripted event subkind %q", name)
}
