package assemblyai

type messageType string

const (
	messageTypePartialTranscript messageType = "PartialTranscript"
	messageTypeFinalTranscript   messageType = "FinalTranscript"
	messageTypeSessionBegins     messageType = "SessionBegins"
	messageTypeSessionTerminated messageType = "SessionTerminated"
)

// audioMessage carries one PCM16 frame; encoding/json base64 encodes the
// bytes.
type audioMessage struct {
	AudioData []byte `json:"audio_data"`
}

type terminateMessage struct {
	TerminateSession bool `json:"terminate_session"`
}

type inboundMessage struct {
	MessageType messageType `json:"message_type"`
	Text        string      `json:"text"`

	SessionID string `json:"session_id"`
	ExpiresAt string `json:"expires_at"`

	AudioStart int     `json:"audio_start"`
	AudioEnd   int     `json:"audio_end"`
	Confidence float64 `json:"confidence"`

	Error string `json:"error"`
}
