package prompt

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrScriptExhausted is returned by Script when no answer is left.
var ErrScriptExhausted = errors.New("prompt: script exhausted")

// Answer is one scripted reply. Only the field matching the prompt kind is
// read.
type Answer struct {
	Text    string
	Confirm bool
	Index   int
	Err     error
}

// Script is a Driver replaying canned answers in order. Input answers are
// run through the prompt validator. Info lines are recorded.
type Script struct {
	mu      sync.Mutex
	answers []Answer
	asked   []string
	info    []string
}

// NewScript returns a driver replaying answers.
func NewScript(answers ...Answer) *Script {
	return &Script{answers: answers}
}

// Asked returns the prompt messages in order.
func (s *Script) Asked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.asked...)
}

// Lines returns the info lines in order.
func (s *Script) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.info...)
}

func (s *Script) next(message string) (Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, message)
	if len(s.answers) == 0 {
		return Answer{}, fmt.Errorf("%w at %q", ErrScriptExhausted, message)
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, answer.Err
}

// Input implements Driver.
func (s *Script) Input(_ context.Context, cfg InputConfig) (string, error) {
	answer, err := s.next(cfg.Message)
	if err != nil {
		return "", err
	}
	if cfg.Validator != nil {
		if err := cfg.Validator(answer.Text); err != nil {
			return "", err
		}
	}
	return answer.Text, nil
}

// Confirm implements Driver.
func (s *Script) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	answer, err := s.next(cfg.Message)
	return answer.Confirm, err
}

// Select implements Driver.
func (s *Script) Select(_ context.Context, cfg SelectConfig) (int, error) {
	answer, err := s.next(cfg.Message)
	if err != nil {
		return 0, err
	}
	if answer.Index < 0 || answer.Index >= len(cfg.Options) {
		return 0, fmt.Errorf("prompt: scripted index %d out of range for %q", answer.Index, cfg.Message)
	}
	return answer.Index, nil
}

// Info implements Driver.
func (s *Script) Info(_ context.Context, msg string) error {
	s.mu.Lock()
	s.info = append(s.info, msg)
	s.mu.Unlock()
	return nil
}
