package services

import (
	"context"
	"sync"
)

// MockLLM is a mock implementation of LLMService for testing
type MockLLM struct {
	InitModelFunc  func(ctx context.Context, modelName string) error
	NewSessionFunc func(ctx context.Context, cfg SessionConfig) (ChatSession, error)
	PingFunc       func(ctx context.Context) error

	// Track calls for testing
	InitModelCalls  []string
	NewSessionCalls []SessionConfig

	mu sync.Mutex // protects all fields above
}

// Ensure MockLLM implements LLMService interface
var _ LLMService = (*MockLLM)(nil)

// NewMockLLM creates a new mock generation service
func NewMockLLM() *MockLLM {
	return &MockLLM{
		InitModelCalls:  make([]string, 0),
		NewSessionCalls: make([]SessionConfig, 0),
	}
}

// InitModel mocks model initialization
func (m *MockLLM) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)

	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

// NewSession mocks session creation. By default it returns an empty
// scripted session that replies "Mock response" to everything.
func (m *MockLLM) NewSession(ctx context.Context, cfg SessionConfig) (ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.NewSessionCalls = append(m.NewSessionCalls, cfg)

	if m.NewSessionFunc != nil {
		return m.NewSessionFunc(ctx, cfg)
	}
	return &MockSession{}, nil
}

// Ping mocks the readiness check
func (m *MockLLM) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Close mocks closing the backend
func (m *MockLLM) Close() error {
	return nil
}

// Sessions returns a copy of the session configs seen so far
func (m *MockLLM) Sessions() []SessionConfig {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SessionConfig, len(m.NewSessionCalls))
	copy(out, m.NewSessionCalls)
	return out
}

// MockSession is a scripted ChatSession. Replies are consumed in
// order; when the script runs out it falls back to "Mock response".
type MockSession struct {
	Replies  []string
	SendFunc func(ctx context.Context, text string) (string, error)

	// Track calls for testing
	SendCalls []string

	mu sync.Mutex
}

// Ensure MockSession implements ChatSession interface
var _ ChatSession = (*MockSession)(nil)

// Send mocks a model turn
func (s *MockSession) Send(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SendCalls = append(s.SendCalls, text)

	if s.SendFunc != nil {
		return s.SendFunc(ctx, text)
	}
	if len(s.Replies) > 0 {
		reply := s.Replies[0]
		s.Replies = s.Replies[1:]
		return reply, nil
	}
	return "Mock response", nil
}

// Inputs returns a copy of the texts sent to the session
func (s *MockSession) Inputs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.SendCalls))
	copy(out, s.SendCalls)
	return out
}
