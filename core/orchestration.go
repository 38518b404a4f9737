package orchestration

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/audio/oggopus"
	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/llms"
	"github.com/koscakluka/ema-voice/core/speechtotext"
	"go.opentelemetry.io/otel/codes"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseListeningForUser
	// PhaseAwaitingUserFinal is a listened turn that was closed but not yet
	// handed over to a response.
	PhaseAwaitingUserFinal
	PhaseStreamingResponse
	// PhaseRespondingAudio is a complete response whose audio or reveal has
	// not drained yet.
	PhaseRespondingAudio
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseListeningForUser:
		return "listening_for_user"
	case PhaseAwaitingUserFinal:
		return "awaiting_user_final"
	case PhaseStreamingResponse:
		return "streaming_response"
	case PhaseRespondingAudio:
		return "responding_audio"
	}
	return "unknown"
}

// Orchestrator alternates between listening to the user and answering. At
// most one of capture and the response pipeline is active at a time.
type Orchestrator struct {
	llm               LLMWithStream
	synthesizer       SpeechSynthesizer
	session           TranscriptionSession
	audioInputClient  AudioInput
	audioOutputClient AudioOutput
	inputEncodingInfo audio.EncodingInfo
	frameDuration     time.Duration
	autoTurnTaking    bool
	revealInterval    time.Duration
	systemContext     string
	metrics           *Metrics
	pipelineOpts      []oggopus.PipelineOption

	audioInput  *audioInput
	audioOutput *audioOutput
	history     *conversations.History

	// opMu serializes listen and respond transitions.
	opMu sync.Mutex

	mu           sync.Mutex
	listening    bool
	listenTurn   *conversations.Turn
	responding   bool
	responseTurn *conversations.Turn
	closed       bool

	baseContext context.Context
	cancel      context.CancelFunc
	tasks       sync.WaitGroup
	closeOnce   sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		frameDuration:  audio.DefaultFrameDuration,
		autoTurnTaking: true,
		revealInterval: revealInterval(DefaultRevealRate),
		history:        conversations.NewHistory(),
		baseContext:    ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.audioInput = newAudioInput(o.audioInputClient, o.inputEncodingInfo, o.frameDuration, o.sendFrame)
	o.audioOutput = newAudioOutput(o.audioOutputClient)
	return o
}

// StartListening binds a new user utterance turn and starts capture.
func (o *Orchestrator) StartListening(ctx context.Context) error {
	return o.StartListeningFor(ctx, conversations.KindUserUtterance)
}

// StartListeningFor binds a new user turn of the given kind and starts
// capture.
func (o *Orchestrator) StartListeningFor(ctx context.Context, kind conversations.Kind) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if err := o.checkIdle("start listening"); err != nil {
		return err
	}
	return o.startListening(ctx, kind)
}

// StopListening stops capture and closes the listened turn. The closed turn
// is not answered automatically.
func (o *Orchestrator) StopListening(ctx context.Context) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if !o.IsListening() {
		logger.Warn("stop listening called while not listening")
		return speechtotext.ErrNotRunning
	}
	return o.stopListening(ctx)
}

// Respond answers the conversation so far. question, when set, is sent as
// the last user message; an empty systemContext falls back to the
// configured one.
func (o *Orchestrator) Respond(ctx context.Context, question string, systemContext string) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if err := o.checkIdle("respond"); err != nil {
		return err
	}
	return o.startResponse(ctx, question, systemContext)
}

// AddScriptedTurn appends a prepared turn whose words are revealed at their
// start offsets.
func (o *Orchestrator) AddScriptedTurn(ctx context.Context, kind conversations.Kind, words []conversations.TimedWord) error {
	return o.AddScript(ctx, conversations.Script{Kind: kind, Words: words})
}

func (o *Orchestrator) AddScript(_ context.Context, script conversations.Script) error {
	if !script.Kind.IsScripted() {
		return fmt.Errorf("%w: %s is not a scripted turn", ErrInvalidTurnKind, script.Kind)
	}

	words := slices.Clone(script.Words)
	slices.SortStableFunc(words, func(a, b conversations.TimedWord) int { return cmp.Compare(a.Start, b.Start) })
	script.Words = words

	turn := conversations.NewTurn(script.Kind,
		conversations.WithSubkind(script.Subkind),
		conversations.WithText(script.Text()),
	)
	if script.Kind.Reveals() {
		if !o.goTask(func() { revealScript(o.baseContext, turn, words) }) {
			return ErrClosed
		}
	} else {
		turn.Deactivate()
	}
	o.history.Append(turn)
	return nil
}

// SendAudio pushes host captured PCM16 audio to the listened turn.
func (o *Orchestrator) SendAudio(pcm []byte) error {
	if !o.IsListening() {
		return speechtotext.ErrNoTurnBound
	}
	_, err := o.audioInput.Write(pcm)
	return err
}

// Turns returns snapshots of every turn, oldest first.
func (o *Orchestrator) Turns() []conversations.TurnSnapshot {
	return o.history.Snapshots()
}

func (o *Orchestrator) IsListening() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.listening
}

// IsRespondingFinished reports whether no response is being produced,
// played or revealed.
func (o *Orchestrator) IsRespondingFinished() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.responding
}

func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case o.responding:
		if o.responseTurn != nil && o.responseTurn.IsActive() {
			return PhaseStreamingResponse
		}
		return PhaseRespondingAudio
	case o.listening:
		if o.listenTurn != nil && !o.listenTurn.IsActive() {
			return PhaseAwaitingUserFinal
		}
		return PhaseListeningForUser
	}
	return PhaseIdle
}

// Close cancels every task, waits for them, stops the transcription session
// and releases the audio devices. Repeated calls do nothing.
func (o *Orchestrator) Close() error {
	var err error
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.mu.Unlock()

		o.cancel()
		o.tasks.Wait()

		o.opMu.Lock()
		if o.IsListening() {
			err = o.stopListening(context.Background())
		}
		o.opMu.Unlock()

		if stopErr := o.audioOutput.Stop(); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
		if err != nil {
			logger.Error("failed to close orchestrator cleanly", "error", err)
		}
	})
	return err
}

func (o *Orchestrator) checkIdle(operation string) error {
	o.mu.Lock()
	var err error
	switch {
	case o.closed:
		err = ErrClosed
	case o.listening:
		err = ErrListening
	case o.responding:
		err = ErrResponding
	}
	o.mu.Unlock()

	if err != nil {
		logger.Warn("rejected "+operation, "error", err)
	}
	return err
}

func (o *Orchestrator) startListening(ctx context.Context, kind conversations.Kind) error {
	if !kind.IsUser() {
		return fmt.Errorf("%w: %s is not a user turn", ErrInvalidTurnKind, kind)
	}
	if o.session == nil {
		return ErrNoTranscriptionSession
	}

	_, span := tracer.Start(ctx, "start listening")
	defer span.End()

	turn := conversations.NewTurn(kind)
	if err := o.session.Start(o.baseContext, turn); err != nil {
		err = fmt.Errorf("failed to start transcription: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := o.audioInput.Start(o.baseContext); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if stopErr := o.session.Stop(context.Background()); stopErr != nil {
			logger.Warn("failed to stop transcription after capture failure", "error", stopErr)
		}
		return err
	}

	o.history.Append(turn)
	o.mu.Lock()
	o.listening = true
	o.listenTurn = turn
	o.mu.Unlock()

	if !o.goTask(func() { o.watchUserTurn(turn) }) {
		o.stopListening(context.Background())
		return ErrClosed
	}
	return nil
}

func (o *Orchestrator) stopListening(ctx context.Context) error {
	o.mu.Lock()
	turn := o.listenTurn
	o.listening = false
	o.listenTurn = nil
	o.mu.Unlock()

	err := o.audioInput.Stop()
	if o.session != nil {
		if stopErr := o.session.Stop(ctx); stopErr != nil && !errors.Is(stopErr, speechtotext.ErrNotRunning) {
			err = errors.Join(err, fmt.Errorf("failed to stop transcription: %w", stopErr))
		}
	}
	if turn != nil {
		turn.Deactivate()
	}
	return err
}

// watchUserTurn hands a closed user utterance over to a response when turns
// are taken automatically.
func (o *Orchestrator) watchUserTurn(turn *conversations.Turn) {
	select {
	case <-o.baseContext.Done():
		return
	case <-turn.Done():
	}

	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.mu.Lock()
	current := o.listenTurn == turn && !o.closed
	o.mu.Unlock()
	if !current {
		return
	}

	if err := o.stopListening(context.Background()); err != nil {
		logger.Warn("failed to stop listening after the user turn ended", "error", err)
	}

	if !o.autoTurnTaking || turn.Kind() != conversations.KindUserUtterance {
		return
	}
	if strings.TrimSpace(turn.DisplayText()) == "" {
		return
	}
	if err := o.startResponse(o.baseContext, "", ""); err != nil {
		logger.Error("failed to respond to the user turn", "error", err, "turn_id", turn.ID())
	}
}

func (o *Orchestrator) startResponse(_ context.Context, question string, systemContext string) error {
	if o.llm == nil {
		return ErrNoLLM
	}

	messages := toMessages(o.history.Snapshots())
	if question = strings.TrimSpace(question); question != "" {
		messages = append(messages, llms.Message{Role: llms.MessageRoleUser, Content: question})
	}
	if systemContext == "" {
		systemContext = o.systemContext
	}

	turn := conversations.NewTurn(conversations.KindAssistantResponse)
	pipeline := &responsePipeline{
		llm:            o.llm,
		synthesizer:    o.synthesizer,
		audioOutput:    o.audioOutput,
		metrics:        o.metrics,
		revealInterval: o.revealInterval,
		pipelineOpts:   o.pipelineOpts,
	}

	o.mu.Lock()
	o.responding = true
	o.responseTurn = turn
	o.mu.Unlock()

	started := o.goTask(func() {
		if err := pipeline.Run(o.baseContext, turn, messages, systemContext); err != nil {
			logger.Error("response failed", "error", err, "turn_id", turn.ID())
		}
		o.finishResponse(turn)
	})
	if !started {
		turn.Deactivate()
		o.mu.Lock()
		o.responding = false
		o.responseTurn = nil
		o.mu.Unlock()
		return ErrClosed
	}
	o.history.Append(turn)
	return nil
}

func (o *Orchestrator) finishResponse(turn *conversations.Turn) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.mu.Lock()
	if o.responseTurn == turn {
		o.responding = false
		o.responseTurn = nil
	}
	closed := o.closed
	o.mu.Unlock()

	if closed || !o.autoTurnTaking || o.baseContext.Err() != nil {
		return
	}
	if err := o.startListening(o.baseContext, conversations.KindUserUtterance); err != nil {
		logger.Error("failed to resume listening after the response", "error", err)
	}
}

func (o *Orchestrator) sendFrame(frame []byte) {
	if o.session == nil {
		return
	}
	err := o.session.SendAudio(frame)
	o.metrics.frameSent(err)
}

// goTask runs f as a task joined by Close. It reports false once the
// orchestrator is closed.
func (o *Orchestrator) goTask(f func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}

	o.tasks.Add(1)
	go func() {
		defer o.tasks.Done()
		f()
	}()
	return true
}
