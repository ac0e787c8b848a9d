package chat

import (
	"encoding/json"
	"strings"
)

// Completion is the text produced by one exchange.
type Completion struct {
	Model        string
	Text         string
	FinishReason string
	Usage        *Usage

	// Fragments is the number of deltas received when streaming.
	Fragments int

	// Raw is the undecoded response body for non-streaming calls.
	Raw json.RawMessage
}

// Usage holds token counts when the provider reports them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// completionView is a tolerant view over a non-streaming response. Missing
// keys decode to zero values rather than failing.
type completionView struct {
	Model   string `json:"model"`
	Choices []struct {
		Message *struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
}

// decodeCompletion reads choices[0].message.content. Content may be a string
// or an array of typed parts; text parts are concatenated.
func decodeCompletion(body []byte) (*Completion, error) {
	var view completionView
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, err
	}

	c := &Completion{
		Model: view.Model,
		Usage: view.Usage,
		Raw:   body,
	}

	if len(view.Choices) == 0 {
		return c, nil
	}

	choice := view.Choices[0]
	c.FinishReason = choice.FinishReason
	if choice.Message != nil {
		c.Text = contentText(choice.Message.Content)
	}

	return c, nil
}

func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []ContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	var b strings.Builder
	for _, p := range parts {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
