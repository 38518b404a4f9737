package orchestration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/llms"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestOrchestrator(llm *testLLM, synth *testSynthesizer, session *testSession, opts ...OrchestratorOption) *Orchestrator {
	base := []OrchestratorOption{
		WithDecodePipelineOptions(testDecoderOption()),
		WithRevealRate(60000),
	}
	if llm != nil {
		base = append(base, WithStreamingLLM(llm))
	}
	if synth != nil {
		base = append(base, WithSpeechSynthesizer(synth))
	}
	if session != nil {
		base = append(base, WithTranscriptionSession(session))
	}
	return NewOrchestrator(append(base, opts...)...)
}

func TestPhaseString(t *testing.T) {
	if got := PhaseRespondingAudio.String(); got != "responding_audio" {
		t.Fatalf("unexpected phase name %q", got)
	}
	if got := Phase(42).String(); got != "unknown" {
		t.Fatalf("expected unknown phase name, got %q", got)
	}
}

func TestRespondStreamsSpeaksAndRevealsResponse(t *testing.T) {
	llm := &testLLM{stream: testStream{chunks: []string{"Hello", " there.", " How are", " you?"}}}
	synth := &testSynthesizer{}
	o := newTestOrchestrator(llm, synth, nil, WithAutoTurnTaking(false), WithSystemContext("Be brief."))
	defer o.Close()

	if err := o.Respond(context.Background(), "Hi?", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Respond(context.Background(), "Again?", ""); !errors.Is(err, ErrResponding) {
		t.Fatalf("expected ErrResponding while a response runs, got %v", err)
	}

	waitFor(t, "response to finish", o.IsRespondingFinished)

	turns := o.Turns()
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	response := turns[0]
	if response.Kind != conversations.KindAssistantResponse || response.IsActive {
		t.Fatalf("expected an inactive assistant turn, got %+v", response)
	}
	if response.DisplayText != "Hello there. How are you?" {
		t.Fatalf("unexpected response text %q", response.DisplayText)
	}
	if response.RevealedText != "Hello there. How are you? " {
		t.Fatalf("unexpected revealed text %q", response.RevealedText)
	}

	if got := synth.synthesized(); len(got) != 2 || got[0] != "Hello there." || got[1] != " How are you?" {
		t.Fatalf("unexpected synthesized sentences %q", got)
	}

	prompt := llm.prompt(0)
	if len(prompt) != 2 {
		t.Fatalf("expected system and question messages, got %+v", prompt)
	}
	if prompt[0] != (llms.Message{Role: llms.MessageRoleSystem, Content: "Be brief."}) {
		t.Fatalf("unexpected system message %+v", prompt[0])
	}
	if prompt[1] != (llms.Message{Role: llms.MessageRoleUser, Content: "Hi?"}) {
		t.Fatalf("unexpected question message %+v", prompt[1])
	}
	if o.Phase() != PhaseIdle {
		t.Fatalf("expected idle phase, got %s", o.Phase())
	}
}

func TestRespondFallsBackToClockWhenDeviceFails(t *testing.T) {
	llm := &testLLM{stream: testStream{chunks: []string{"Roger", " that."}}}
	output := &brokenAudioOutput{}
	o := newTestOrchestrator(llm, &testSynthesizer{}, nil, WithAutoTurnTaking(false), WithAudioOutput(output))
	defer o.Close()

	if err := o.Respond(context.Background(), "Copy?", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, "response to finish", o.IsRespondingFinished)

	response := o.Turns()[0]
	if response.IsActive {
		t.Fatalf("expected response turn to be closed")
	}
	if response.RevealedText != "Roger that. " {
		t.Fatalf("expected response to be revealed without a device, got %q", response.RevealedText)
	}
	if starts, stops := output.calls(); starts != 1 || stops != 0 {
		t.Fatalf("expected 1 start and no device stop, got %d and %d", starts, stops)
	}
}

func TestRespondWithoutLLM(t *testing.T) {
	o := newTestOrchestrator(nil, nil, nil)
	defer o.Close()

	if err := o.Respond(context.Background(), "", ""); !errors.Is(err, ErrNoLLM) {
		t.Fatalf("expected ErrNoLLM, got %v", err)
	}
	if !o.IsRespondingFinished() {
		t.Fatalf("expected a rejected response not to change state")
	}
}

func TestCompletionFailureEndsTurnWithPartialText(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	llm := &testLLM{stream: testStream{chunks: []string{"Partial answer"}, err: errors.New("connection reset")}}
	synth := &testSynthesizer{}
	o := newTestOrchestrator(llm, synth, nil, WithAutoTurnTaking(false), WithMetrics(metrics))
	defer o.Close()

	if err := o.Respond(context.Background(), "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, "response to finish", o.IsRespondingFinished)

	turns := o.Turns()
	if turns[0].DisplayText != "Partial answer" || turns[0].IsActive {
		t.Fatalf("expected an inactive turn with the partial text, got %+v", turns[0])
	}
	if got := synth.synthesized(); len(got) != 1 || got[0] != "Partial answer" {
		t.Fatalf("expected the partial text to be spoken, got %q", got)
	}
	if got := testutil.ToFloat64(metrics.completionFailures); got != 1 {
		t.Fatalf("expected 1 completion failure, got %v", got)
	}
}

func TestAutoTurnTakingAlternatesListeningAndResponding(t *testing.T) {
	llm := &testLLM{stream: testStream{chunks: []string{"It is sunny."}}}
	session := newTestSession()
	o := newTestOrchestrator(llm, &testSynthesizer{}, session)
	defer o.Close()

	if err := o.StartListening(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !o.IsListening() || o.Phase() != PhaseListeningForUser {
		t.Fatalf("expected to be listening, got phase %s", o.Phase())
	}
	if err := o.StartListening(context.Background()); !errors.Is(err, ErrListening) {
		t.Fatalf("expected ErrListening, got %v", err)
	}
	if err := o.Respond(context.Background(), "", ""); !errors.Is(err, ErrListening) {
		t.Fatalf("expected ErrListening, got %v", err)
	}

	sink := session.awaitStart(t)
	sink.AppendFinalizedText("What is the weather?")
	sink.Deactivate()

	session.awaitStart(t)
	waitFor(t, "listening to resume", o.IsListening)

	turns := o.Turns()
	if len(turns) != 3 {
		t.Fatalf("expected user, assistant and new user turns, got %d", len(turns))
	}
	if turns[0].Kind != conversations.KindUserUtterance || turns[0].DisplayText != "What is the weather?" {
		t.Fatalf("unexpected first turn %+v", turns[0])
	}
	if turns[1].Kind != conversations.KindAssistantResponse || turns[1].DisplayText != "It is sunny." {
		t.Fatalf("unexpected response turn %+v", turns[1])
	}
	if turns[2].Kind != conversations.KindUserUtterance || !turns[2].IsActive {
		t.Fatalf("expected a fresh listened turn, got %+v", turns[2])
	}

	prompt := llm.prompt(0)
	if len(prompt) != 1 || prompt[0] != (llms.Message{Role: llms.MessageRoleUser, Content: "What is the weather?"}) {
		t.Fatalf("expected the user turn to be sent, got %+v", prompt)
	}

	if err := o.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	starts, stops, _ := session.counts()
	if starts != 2 || stops != 2 {
		t.Fatalf("expected 2 starts and 2 stops, got %d and %d", starts, stops)
	}
}

func TestStopListeningDoesNotRespond(t *testing.T) {
	llm := &testLLM{stream: testStream{chunks: []string{"Unused."}}}
	session := newTestSession()
	o := newTestOrchestrator(llm, &testSynthesizer{}, session)
	defer o.Close()

	if err := o.StartListening(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sink := session.awaitStart(t)
	sink.AppendFinalizedText("Never mind.")

	if err := o.StopListening(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.IsListening() {
		t.Fatalf("expected listening to stop")
	}
	if err := o.StopListening(context.Background()); !errors.Is(err, speechtotext.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if llm.calls() != 0 {
		t.Fatalf("expected no response after a manual stop, got %d", llm.calls())
	}
	if turns := o.Turns(); len(turns) != 1 || turns[0].IsActive {
		t.Fatalf("expected one closed user turn, got %+v", turns)
	}
}

func TestControlTurnClosesWithoutResponse(t *testing.T) {
	llm := &testLLM{stream: testStream{chunks: []string{"Unused."}}}
	session := newTestSession()
	o := newTestOrchestrator(llm, &testSynthesizer{}, session)
	defer o.Close()

	if err := o.StartListeningFor(context.Background(), conversations.KindAssistantResponse); !errors.Is(err, ErrInvalidTurnKind) {
		t.Fatalf("expected ErrInvalidTurnKind, got %v", err)
	}
	if err := o.StartListeningFor(context.Background(), conversations.KindControlAssertion); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sink := session.awaitStart(t)
	sink.AppendFinalizedText("I think control is fine.")
	if !sink.IsActive() {
		t.Fatalf("expected the turn to stay open without the phrase")
	}
	sink.AppendFinalizedText("I have control.")

	waitFor(t, "listening to stop", func() bool { return !o.IsListening() })
	time.Sleep(30 * time.Millisecond)
	if llm.calls() != 0 {
		t.Fatalf("expected control turns not to be answered, got %d calls", llm.calls())
	}
	if turns := o.Turns(); len(turns) != 1 || turns[0].Kind != conversations.KindControlAssertion {
		t.Fatalf("expected one control turn, got %+v", turns)
	}
}

func TestStartListeningWithoutSession(t *testing.T) {
	o := newTestOrchestrator(nil, nil, nil)
	defer o.Close()

	if err := o.StartListening(context.Background()); !errors.Is(err, ErrNoTranscriptionSession) {
		t.Fatalf("expected ErrNoTranscriptionSession, got %v", err)
	}
	if o.IsListening() || len(o.Turns()) != 0 {
		t.Fatalf("expected a rejected start not to change state")
	}
}

func TestSendAudioFramesForSession(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	session := newTestSession()
	o := newTestOrchestrator(nil, nil, session, WithFrameDuration(10*time.Millisecond), WithMetrics(metrics))
	defer o.Close()

	if err := o.SendAudio(make([]byte, 320)); !errors.Is(err, speechtotext.ErrNoTurnBound) {
		t.Fatalf("expected ErrNoTurnBound before listening, got %v", err)
	}

	if err := o.StartListening(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 10 ms at 16 kHz linear16 is 320 bytes.
	if err := o.SendAudio(make([]byte, 800)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, frames := session.counts(); frames != 2 {
		t.Fatalf("expected 2 frames, got %d", frames)
	}
	if got := testutil.ToFloat64(metrics.framesSent); got != 2 {
		t.Fatalf("expected 2 sent frames, got %v", got)
	}
}

func TestAddScriptedTurnRevealsWordsInOrder(t *testing.T) {
	o := newTestOrchestrator(nil, nil, nil)
	defer o.Close()

	err := o.AddScriptedTurn(context.Background(), conversations.KindUserUtterance, nil)
	if !errors.Is(err, ErrInvalidTurnKind) {
		t.Fatalf("expected ErrInvalidTurnKind, got %v", err)
	}

	words := []conversations.TimedWord{
		{Text: "failure.", Start: 20 * time.Millisecond},
		{Text: "Engine", Start: 0},
	}
	if err := o.AddScriptedTurn(context.Background(), conversations.KindScriptedEvent, words); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, "scripted turn to finish", func() bool {
		turns := o.Turns()
		return len(turns) == 1 && !turns[0].IsActive
	})
	turn := o.Turns()[0]
	if turn.DisplayText != "Engine failure." {
		t.Fatalf("unexpected scripted text %q", turn.DisplayText)
	}
	if turn.RevealedText != "Engine failure. " {
		t.Fatalf("unexpected revealed text %q", turn.RevealedText)
	}
}

func TestAddScriptedPromptIsNotRevealed(t *testing.T) {
	o := newTestOrchestrator(nil, nil, nil)
	defer o.Close()

	words := []conversations.TimedWord{
		{Text: "Say", Start: 0},
		{Text: "altitude.", Start: 10 * time.Millisecond},
	}
	if err := o.AddScriptedTurn(context.Background(), conversations.KindScriptedPrompt, words); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turns := o.Turns()
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if turns[0].IsActive {
		t.Fatalf("expected prompt turn to be inactive")
	}
	if turns[0].DisplayText != "Say altitude." {
		t.Fatalf("unexpected prompt text %q", turns[0].DisplayText)
	}

	time.Sleep(30 * time.Millisecond)
	if got := o.Turns()[0].RevealedText; got != "" {
		t.Fatalf("expected no revealed text for a prompt, got %q", got)
	}
}

func TestCloseCancelsResponseAndIsIdempotent(t *testing.T) {
	llm := &testLLM{stream: testStream{chunks: []string{"Thinking"}, block: true}}
	o := newTestOrchestrator(llm, &testSynthesizer{}, nil)

	if err := o.Respond(context.Background(), "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, "completion to start", func() bool { return llm.calls() == 1 })
	if o.Phase() != PhaseStreamingResponse {
		t.Fatalf("expected streaming phase, got %s", o.Phase())
	}

	closed := make(chan error, 1)
	go func() { closed <- o.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("unexpected close error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for close")
	}

	if turns := o.Turns(); len(turns) != 1 || turns[0].IsActive {
		t.Fatalf("expected the response turn to be closed, got %+v", turns)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("expected repeated close to succeed, got %v", err)
	}
	if err := o.StartListening(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := o.Respond(context.Background(), "", ""); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
