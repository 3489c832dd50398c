package openai

// --- OpenAI Chat Completions API Types ---
// Compatible with OpenAI and OpenAI-shaped endpoints.

// Request is the chat completions request format.
type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// Message is one chat turn. Content is a plain string for text chat and
// a []ContentPart for vision requests.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is a polymorphic element of a multi-part message.
type ContentPart struct {
	Type string `json:"type"` // "text" | "image_url"

	Text string `json:"text,omitempty"`

	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an image as a data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// Response is the chat completions response format.
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
	Model   string   `json:"model"`
}

type Choice struct {
	Message      ReplyMessage `json:"message"`
	FinishReason string       `json:"finish_reason"`
}

// ReplyMessage is the assistant message in a response; content is always
// a string on the way back.
type ReplyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Audio Transcription Types ---

// TranscriptionResponse is the /v1/audio/transcriptions response.
type TranscriptionResponse struct {
	Text string `json:"text"`
}
