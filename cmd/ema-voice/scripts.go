package main

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/koscakluka/ema-voice/core/conversations"
)

type namedScript struct {
	name   string
	script conversations.Script
}

// loadScripts reads the script library sorted by name. An empty path yields
// no scripts.
func loadScripts(path string) ([]namedScript, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scripts file: %w", err)
	}
	defer f.Close()

	library, err := conversations.LoadScriptLibrary(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load scripts from %s: %w", path, err)
	}

	scripts := make([]namedScript, 0, len(library))
	for _, name := range slices.Sorted(maps.Keys(library)) {
		scripts = append(scripts, namedScript{name: name, script: library[name]})
	}
	return scripts, nil
}
