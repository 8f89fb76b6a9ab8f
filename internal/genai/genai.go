// Package genai is the boundary to the generative backend: image
// generation, image editing and short text generation.
package genai

import "context"

// Payload is an encoded image returned by the backend.
type Payload struct {
	MIME string
	Data []byte
}

// TextRequest is a single text generation call.
type TextRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// ImageGenerator produces base images from a prompt.
type ImageGenerator interface {
	// GenerateImages returns up to n images. Fewer than n is not an error.
	GenerateImages(ctx context.Context, prompt string, n int) ([]Payload, error)
}

// ImageEditor edits an existing image per instruction.
type ImageEditor interface {
	// EditImage returns nil, nil when the backend produced no usable image.
	EditImage(ctx context.Context, image []byte, mime, instruction string) (*Payload, error)
}

// TextGenerator produces plain text.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}
