package conversations

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TimedWord is a word of a scripted turn with its offset from the moment the
// turn starts revealing.
type TimedWord struct {
	Text  string
	Start time.Duration
}

// Script is a prepared turn.
type Script struct {
	Kind    Kind
	Subkind Subkind
	Words   []TimedWord
}

func (s Script) Text() string {
	words := make([]string, 0, len(s.Words))
	for _, word := range s.Words {
		words = append(words, word.Text)
	}
	return strings.Join(words, " ")
}

// ScriptLibrary maps script names to scripts.
type ScriptLibrary map[string]Script

type scriptFile struct {
	Scripts map[string]struct {
		Kind    string `yaml:"kind"`
		Subkind string `yaml:"subkind"`
		Words   []struct {
			Text    string `yaml:"text"`
			StartMS int64  `yaml:"start_ms"`
		} `yaml:"words"`
	} `yaml:"scripts"`
}

var ErrInvalidScript = errors.New("invalid script")

// LoadScriptLibrary reads scripts in the form
//
//	scripts:
//	  steep_turn_select:
//	    kind: scripted_event
//	    subkind: select
//	    words:
//	      - {text: "Let's", start_ms: 0}
//	      - {text: "begin.", start_ms: 250}
func LoadScriptLibrary(r io.Reader) (ScriptLibrary, error) {
	var file scriptFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return ScriptLibrary{}, nil
		}
		return nil, fmt.Errorf("failed to decode script library: %w", err)
	}

	library := make(ScriptLibrary, len(file.Scripts))
	for name, raw := range file.Scripts {
		kind, err := ParseKind(raw.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidScript, name, err)
		}
		if !kind.IsScripted() {
			return nil, fmt.Errorf("%w %q: kind %s is not scripted", ErrInvalidScript, name, kind)
		}
		subkind, err := ParseSubkind(raw.Subkind)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidScript, name, err)
		}

		script := Script{Kind: kind, Subkind: subkind}
		for _, word := range raw.Words {
			if word.StartMS < 0 {
				return nil, fmt.Errorf("%w %q: negative start for %q", ErrInvalidScript, name, word.Text)
			}
			script.Words = append(script.Words, TimedWord{
				Text:  word.Text,
				Start: time.Duration(word.StartMS) * time.Millisecond,
			})
		}
		sort.SliceStable(script.Words, func(i, j int) bool {
			return script.Words[i].Start < script.Words[j].Start
		})
		library[name] = script
	}

	return library, nil
}
