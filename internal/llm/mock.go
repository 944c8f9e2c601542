package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response string
	Err      error

	LastHistory []Turn
	LastPrompt  string
}

func (m *MockClient) Generate(_ context.Context, history []Turn, prompt string) (string, error) {
	m.LastHistory = history
	m.LastPrompt = prompt
	return m.Response, m.Err
}
