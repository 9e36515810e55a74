package catalog

import (
	"strings"

	"modelrouter/internal/core"
)

var (
	speechRecognitionMarkers = []string{"whisper", "transcri", "speech-to-text", "distil-large"}
	textToSpeechMarkers      = []string{"tts", "text-to-speech", "melotts", "aura-", "bark", "kokoro"}
	imageGenerationMarkers   = []string{"flux", "stable-diffusion", "sdxl", "dall-e", "imagen", "image", "dreamshaper", "lucid-origin", "phoenix"}
	visionMarkers            = []string{"vision", "llava", "-vl", "pixtral", "uform"}
	videoMarkers             = []string{"video", "sora", "veo", "mochi", "wan2"}
)

// InferCapabilities guesses capability flags from the model id. The first matching
// marker group wins, in the order speech recognition, text-to-speech, image or vision,
// video. Anything else is treated as a general chat model.
func InferCapabilities(modelID string) core.ModelCapabilities {
	id := strings.ToLower(modelID)

	switch {
	case containsAny(id, speechRecognitionMarkers):
		return core.ModelCapabilities{AudioSpeech: true}
	case containsAny(id, textToSpeechMarkers):
		return core.ModelCapabilities{AudioSpeech: true}
	case containsAny(id, imageGenerationMarkers):
		return core.ModelCapabilities{Images: true}
	case containsAny(id, visionMarkers):
		return core.ModelCapabilities{Chat: true, Vision: true}
	case containsAny(id, videoMarkers):
		return core.ModelCapabilities{Video: true}
	default:
		return core.ModelCapabilities{Chat: true, Reasoning: true, Speed: true, Coding: true}
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// DefaultRatings scores 1 for every supported capability and 0 otherwise.
func DefaultRatings(caps core.ModelCapabilities) core.ModelRatings {
	var r core.ModelRatings
	for _, c := range core.AllCapabilities {
		v := 0
		if caps.Has(c) {
			v = 1
		}
		*r.Field(c) = &v
	}
	return r
}
