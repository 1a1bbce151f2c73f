package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed prompts
var embeddedPrompts embed.FS

// placeholders is the number of %s verbs each known prompt is formatted with.
var placeholders = map[string]int{
	driven.PromptAnswerSystem: 0,
	driven.PromptAnswer:       2,
}

// PromptStore serves prompt templates from <dir>/<name>.txt.
//
// The directory is seeded with the built-in templates on first Load, never
// overwriting an edited file. A missing or malformed file falls back to the
// built-in template so a bad edit cannot break answering.
type PromptStore struct {
	dir string

	mu     sync.Mutex
	seeded bool
	cache  map[string]string
}

// NewPromptStore returns a store rooted at dir, or ~/.folio/prompts when dir is empty.
// No I/O happens until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".folio", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template called name.
func (s *PromptStore) Load(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prompt, ok := s.cache[name]; ok {
		return prompt, nil
	}

	if !s.seeded {
		if err := s.seed(); err != nil {
			logger.Warn("prompts: %v, using built-in templates", err)
		}
		s.seeded = true
	}

	prompt, err := s.read(name)
	if err != nil {
		fallback, ok := defaultPrompt(name)
		if !ok {
			return "", fmt.Errorf("load prompt %q: %w", name, err)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("prompt %s ignored: %v", name, err)
		}
		prompt = fallback
	}

	s.cache[name] = prompt
	return prompt, nil
}

// Reload drops cached templates so the next Load reads the files again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+".txt"))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if err := checkPlaceholders(name, prompt); err != nil {
		return "", err
	}
	return prompt, nil
}

// seed copies every built-in file that does not exist yet into the directory.
func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}

	entries, err := embeddedPrompts.ReadDir("prompts")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		target := filepath.Join(s.dir, entry.Name())
		if _, err := os.Stat(target); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := embeddedPrompts.ReadFile("prompts/" + entry.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0600); err != nil {
			return fmt.Errorf("write %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// defaultPrompt returns the built-in template called name.
func defaultPrompt(name string) (string, bool) {
	data, err := embeddedPrompts.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// checkPlaceholders rejects an edited template whose %s verbs no longer match
// the arguments it will be formatted with.
func checkPlaceholders(name, prompt string) error {
	want, ok := placeholders[name]
	if !ok {
		return nil
	}
	if got := strings.Count(prompt, "%s"); got != want {
		return fmt.Errorf("expected %d %%s placeholders, found %d", want, got)
	}
	return nil
}
