package translate

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/text/language"

	"sjsage522/opinionworker/services/metrics"
)

// Translator maps text from one locale to another
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Func adapts a function to the Translator interface
type Func func(ctx context.Context, text, source, target string) (string, error)

// Translate calls f
func (f Func) Translate(ctx context.Context, text, source, target string) (string, error) {
	return f(ctx, text, source, target)
}

// Identity returns every text unchanged
var Identity Translator = Func(func(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
})

// Static translates through a fixed phrase table and fails on unknown phrases
type Static map[string]string

// Translate looks text up in the table
func (s Static) Translate(_ context.Context, text, source, target string) (string, error) {
	out, ok := s[text]
	if !ok {
		return "", fmt.Errorf("no %s->%s translation for %q", source, target, text)
	}
	return out, nil
}

// ValidateLocale checks that code is a well-formed BCP 47 language tag
func ValidateLocale(code string) error {
	if _, err := language.Parse(code); err != nil {
		return fmt.Errorf("invalid locale %q: %w", code, err)
	}
	return nil
}

type memoKey struct {
	text, source, target string
}

// Memo remembers translations for the lifetime of one extraction run.
// Failures are not remembered.
type Memo struct {
	next Translator
	mu   sync.Mutex
	seen map[memoKey]string
}

// NewMemo wraps next with an empty memo
func NewMemo(next Translator) *Memo {
	return &Memo{next: next, seen: make(map[memoKey]string)}
}

// Translate returns a remembered translation or asks the wrapped translator
func (m *Memo) Translate(ctx context.Context, text, source, target string) (string, error) {
	key := memoKey{text, source, target}

	m.mu.Lock()
	out, ok := m.seen[key]
	m.mu.Unlock()
	if ok {
		metrics.ObserveTranslation("memo")
		return out, nil
	}

	out, err := m.next.Translate(ctx, text, source, target)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.seen[key] = out
	m.mu.Unlock()
	return out, nil
}
