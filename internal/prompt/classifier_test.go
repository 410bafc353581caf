package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/waypoint/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	text string
	err  error
	req  llm.GenerateRequest
}

func (s *stubLLM) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.GenerateResponse{Text: s.text}, nil
}

func (s *stubLLM) Available(context.Context) bool { return true }

func TestLLMClassifier_ParsesJSON(t *testing.T) {
	stub := &stubLLM{text: "```json\n{\"action\":\"replace_category\",\"category\":\"food\",\"confidence\":.85}\n```"}
	c := NewLLMClassifier(stub)

	got, err := c.Classify(context.Background(), Wrap("get food"))
	require.NoError(t, err)
	assert.Equal(t, ActionReplaceCategory, got.Action)
	assert.Equal(t, "food", got.Category)
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)

	assert.Equal(t, llm.TaskClassify, stub.req.Task)
	assert.True(t, stub.req.JSON)
	assert.NotContains(t, stub.req.SystemPrompt, "get food")
	assert.Contains(t, stub.req.UserPrompt, "get food")
}

func TestLLMClassifier_RejectsInvalidOutput(t *testing.T) {
	tests := []string{
		"no json here",
		`{"action":"fly","confidence":0.9}`,
		`{"action":"replace_category","category":"","confidence":0.9}`,
		`{"action":"skip","confidence":1.4}`,
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			_, err := NewLLMClassifier(&stubLLM{text: text}).Classify(context.Background(), "x")
			assert.ErrorIs(t, err, llm.ErrInvalidOutput)
		})
	}
}

func TestLLMClassifier_WrapsClientError(t *testing.T) {
	_, err := NewLLMClassifier(&stubLLM{err: llm.ErrOllamaUnavailable}).Classify(context.Background(), "x")
	assert.True(t, errors.Is(err, llm.ErrOllamaUnavailable))
}

func TestWrap(t *testing.T) {
	assert.Equal(t, BoundaryStart+"\nhi\n"+BoundaryEnd, Wrap("hi"))
}
