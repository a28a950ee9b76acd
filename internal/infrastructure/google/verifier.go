package google

import (
	"context"
	"fmt"

	"github.com/ai-content-platform/internal/domain"
	"google.golang.org/api/idtoken"
)

// Payload is the subset of a Google ID token the session layer needs.
// Email is empty unless Google reports it as verified.
type Payload struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}

// ValidateFunc matches idtoken.Validate.
type ValidateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Verifier checks ID tokens minted for one OAuth client.
type Verifier struct {
	clientID string
	validate ValidateFunc
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify returns domain.ErrNotConfigured without a client id and
// domain.ErrUnauthorized for any token Google rejects.
func (v *Verifier) Verify(ctx context.Context, token string) (*Payload, error) {
	if v.clientID == "" {
		return nil, fmt.Errorf("google sign-in: %w", domain.ErrNotConfigured)
	}
	p, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google token: %w", domain.ErrUnauthorized)
	}
	out := &Payload{
		Sub:     p.Subject,
		Name:    claim(p, "name"),
		Picture: claim(p, "picture"),
	}
	if verified, _ := p.Claims["email_verified"].(bool); verified {
		out.Email = claim(p, "email")
	}
	return out, nil
}

func claim(p *idtoken.Payload, key string) string {
	s, _ := p.Claims[key].(string)
	return s
}
