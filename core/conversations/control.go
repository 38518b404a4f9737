package conversations

import (
	"strings"
	"unicode"
)

var (
	assertionPhrases = []string{
		"i have control",
		"i have the control",
		"i have the flight controls",
		"i have the flight control",
		"i have the controls",
	}
	relinquishPhrases = []string{
		"you have control",
		"you have the control",
		"you have the flight controls",
		"you have the flight control",
		"you have the controls",
	}
)

// closesTurn reports whether a final transcript ends a turn of the given kind.
func closesTurn(kind Kind, transcript string) bool {
	switch kind {
	case KindControlAssertion:
		return containsPhrase(transcript, assertionPhrases)
	case KindControlRelinquish:
		return containsPhrase(transcript, relinquishPhrases)
	}
	return false
}

// containsPhrase matches whole words, ignoring case and punctuation.
func containsPhrase(text string, phrases []string) bool {
	normalized := " " + normalizeWords(text) + " "
	for _, phrase := range phrases {
		if strings.Contains(normalized, " "+phrase+" ") {
			return true
		}
	}
	return false
}

func normalizeWords(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	return strings.Join(words, " ")
}
