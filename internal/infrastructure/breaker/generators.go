package breaker

import (
	"context"

	"github.com/ai-content-platform/internal/domain"
)

type textGenerator interface {
	Complete(ctx context.Context, prompt string) (*domain.TextResult, error)
	Configured() bool
}

type imageGenerator interface {
	Generate(ctx context.Context, req domain.ImageRequest) (string, error)
	Configured() bool
}

// Text guards a text generator.
type Text struct {
	next textGenerator
	b    *Breaker
}

func NewText(next textGenerator, b *Breaker) *Text { return &Text{next: next, b: b} }

func (t *Text) Configured() bool { return t.next.Configured() }

func (t *Text) Complete(ctx context.Context, prompt string) (*domain.TextResult, error) {
	out, err := t.b.execute(func() (interface{}, error) {
		return t.next.Complete(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.TextResult), nil
}

// Image guards an image generator.
type Image struct {
	next imageGenerator
	b    *Breaker
}

func NewImage(next imageGenerator, b *Breaker) *Image { return &Image{next: next, b: b} }

func (i *Image) Configured() bool { return i.next.Configured() }

func (i *Image) Generate(ctx context.Context, req domain.ImageRequest) (string, error) {
	out, err := i.b.execute(func() (interface{}, error) {
		return i.next.Generate(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
