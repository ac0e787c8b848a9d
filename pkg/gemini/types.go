package gemini

import "encoding/json"

// Request is the body of a generateContent call.
type Request struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is one turn of the conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is either text or inline binary data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries base64-encoded bytes such as an image.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GenerationConfig holds the sampling parameters.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// NewRequest builds a single-turn request: the prompt, then the image when
// one is given.
func NewRequest(prompt string, image *InlineData, cfg *GenerationConfig) Request {
	parts := []Part{{Text: prompt}}
	if image != nil {
		parts = append(parts, Part{InlineData: image})
	}

	return Request{
		Contents:         []Content{{Parts: parts}},
		GenerationConfig: cfg,
	}
}

// responseView is a tolerant view over a generateContent response.
type responseView struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Result is the outcome of a successful call.
type Result struct {
	Model        string
	Text         string
	FinishReason string
	Raw          json.RawMessage
}

// decodeResult reads candidates[0].content.parts[0].text.
func decodeResult(model string, body []byte) (*Result, error) {
	var view responseView
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, err
	}

	r := &Result{Model: model, Raw: body}
	if len(view.Candidates) == 0 {
		if view.PromptFeedback != nil && view.PromptFeedback.BlockReason != "" {
			r.FinishReason = view.PromptFeedback.BlockReason
		}
		return r, nil
	}

	c := view.Candidates[0]
	r.FinishReason = c.FinishReason
	if c.Content != nil && len(c.Content.Parts) > 0 {
		r.Text = c.Content.Parts[0].Text
	}

	return r, nil
}
