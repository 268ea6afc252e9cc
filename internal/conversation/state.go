package conversation

import "strings"

type State int

const (
	StateIdle State = iota
	StateListening
	StateProcessing
	StateSpeaking
	StateError
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateListening:  "listening",
	StateProcessing: "processing",
	StateSpeaking:   "speaking",
	StateError:      "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

const Farewell = "Later."

var exitPhrases = []string{
	"goodbye", "bye", "exit", "quit", "stop",
	"that's all", "thanks alfred", "thank you alfred",
	"i'm done", "we're done",
}

// IsExitPhrase reports whether text contains one of the phrases that end
// a conversation. Matching is case-insensitive and by substring.
func IsExitPhrase(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, p := range exitPhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}
