package render

import (
	"errors"
	"strings"
)

// ErrMissingTranslator is passed to MissingTranslationHandler when no
// Translator is configured.
var ErrMissingTranslator = errors.New("render: translator not configured")

// Translator resolves a message key for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate implements Translator.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// MissingTranslationHandler picks the string used when a key cannot be
// translated.
type MissingTranslationHandler func(locale, key, fallback string, err error) string

// Localizer translates field labels with a fallback to the built-in English
// text. The zero value always returns the fallback.
type Localizer struct {
	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler
}

// Text returns the translation of key, or fallback when the key is empty or
// untranslatable.
func (l Localizer) Text(key, fallback string, args ...any) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	if l.Translator == nil {
		return l.missing(key, fallback, ErrMissingTranslator)
	}
	result, err := l.Translator.Translate(l.Locale, key, args...)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return l.missing(key, fallback, err)
}

func (l Localizer) missing(key, fallback string, err error) string {
	if l.OnMissing != nil {
		return l.OnMissing(l.Locale, key, fallback, err)
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return key
}
