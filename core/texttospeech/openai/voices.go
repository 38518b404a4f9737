package openai

type openAIVoice string

const (
	VoiceAlloy   openAIVoice = "alloy"
	VoiceEcho    openAIVoice = "echo"
	VoiceFable   openAIVoice = "fable"
	VoiceOnyx    openAIVoice = "onyx"
	VoiceNova    openAIVoice = "nova"
	VoiceShimmer openAIVoice = "shimmer"
)

func GetAvailableVoices() []openAIVoice {
	return []openAIVoice{VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer}
}
