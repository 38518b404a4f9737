package orchestration

import (
	"testing"

	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/llms"
)

func TestToMessagesMapsKindsToRoles(t *testing.T) {
	user := conversations.NewTurn(conversations.KindUserUtterance)
	user.AppendFinalizedText("What is the heading?")
	empty := conversations.NewTurn(conversations.KindUserUtterance)
	control := conversations.NewTurn(conversations.KindControlAssertion)
	control.AppendFinalizedText("I have control.")
	assistant := conversations.NewTurn(conversations.KindAssistantResponse)
	assistant.AppendPendingText("Heading two seven zero.")
	scripted := conversations.NewTurn(conversations.KindScriptedEvent, conversations.WithText("Engine failure."))

	var snapshots []conversations.TurnSnapshot
	for _, turn := range []*conversations.Turn{user, empty, control, assistant, scripted} {
		snapshots = append(snapshots, turn.Snapshot())
	}

	want := []llms.Message{
		{Role: llms.MessageRoleUser, Content: "What is the heading?"},
		{Role: llms.MessageRoleUser, Content: "I have control."},
		{Role: llms.MessageRoleAssistant, Content: "Heading two seven zero."},
		{Role: llms.MessageRoleAssistant, Content: "Engine failure."},
	}
	got := toMessages(snapshots)
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected message %d to be %+v, got %+v", i, want[i], got[i])
		}
	}
}
