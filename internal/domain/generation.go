package domain

// ModelCosts is the price in USD per 1K tokens (or per image) for each model.
var ModelCosts = map[string]float64{
	"gpt-3.5-turbo-0125": 0.0005,
	"gpt-4-0125-preview": 0.01,
	"dall-e-3":           0.04,
	"dall-e-2":           0.02,
	"stable-diffusion":   0.008,
}

// TokenCost prices totalTokens for model; unknown models cost nothing.
func TokenCost(model string, totalTokens int64) float64 {
	return float64(totalTokens) / 1000 * ModelCosts[model]
}

type TextRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type TextUsage struct {
	TotalTokens int64   `json:"total_tokens"`
	Cost        float64 `json:"cost"`
}

type TextResult struct {
	Text         string    `json:"text"`
	Model        string    `json:"model"`
	Usage        TextUsage `json:"usage"`
	GenerationMS int64     `json:"generation_ms"`
}

type ImageRequest struct {
	Prompt    string `json:"prompt" validate:"required"`
	ImageSize string `json:"imageSize" validate:"omitempty,oneof=square_hd square portrait_4_3 portrait_16_9 landscape_4_3 landscape_16_9"`
	NumSteps  int    `json:"numSteps" validate:"omitempty,min=1,max=12"`
	Style     string `json:"style"`
}

// WithDefaults fills the fields the proxy used to default.
func (r ImageRequest) WithDefaults() ImageRequest {
	if r.ImageSize == "" {
		r.ImageSize = "landscape_4_3"
	}
	if r.NumSteps == 0 {
		r.NumSteps = 4
	}
	if r.Style == "" {
		r.Style = "base"
	}
	return r
}

type ImageResult struct {
	URL          string `json:"url"`
	ArchiveURL   string `json:"archive_url,omitempty"`
	GenerationMS int64  `json:"generation_ms"`
}

// SignInResult is returned by a successful identity-provider sign-in.
type SignInResult struct {
	Bearer string      `json:"Bearer"`
	UserID string      `json:"user_id"`
	Email  string      `json:"email,omitempty"`
	Plan   Plan        `json:"plan"`
	Stats  *UsageStats `json:"stats,omitempty"`
}
