package enrichment

import (
	"context"
	"fmt"

	"lotsort/internal/photo"
	"lotsort/internal/services/llm"
)

// Describer produces one description for all images of a lot.
type Describer interface {
	DescribeLot(ctx context.Context, images []photo.Image) (string, error)
}

// DescriberFunc adapts a function to Describer.
type DescriberFunc func(ctx context.Context, images []photo.Image) (string, error)

// DescribeLot calls f.
func (f DescriberFunc) DescribeLot(ctx context.Context, images []photo.Image) (string, error) {
	return f(ctx, images)
}

// LLMDescriber describes lots with the chat completion client.
type LLMDescriber struct {
	client *llm.Client
}

// NewLLMDescriber wraps client as a Describer.
func NewLLMDescriber(client *llm.Client) *LLMDescriber {
	return &LLMDescriber{client: client}
}

// DescribeLot forwards the lot images to the client and tags service failures with ErrService.
func (d *LLMDescriber) DescribeLot(ctx context.Context, images []photo.Image) (string, error) {
	payload := make([]llm.Image, len(images))
	for i, img := range images {
		payload[i] = llm.Image{Name: img.Name, ContentType: img.ContentType, Data: img.Data}
	}
	text, err := d.client.DescribeLot(ctx, payload)
	if err != nil {
		if llm.IsServiceError(err) {
			return "", fmt.Errorf("%w: %w", ErrService, err)
		}
		return "", err
	}
	return text, nil
}
