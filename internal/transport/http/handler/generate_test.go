package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ai-content-platform/internal/application/usage"
	"github.com/ai-content-platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockGenerationSvc struct{ mock.Mock }

func (m *mockGenerationSvc) Text(ctx context.Context, userID string, plan domain.Plan, req domain.TextRequest) (*domain.TextResult, error) {
	args := m.Called(ctx, userID, plan, req)
	res, _ := args.Get(0).(*domain.TextResult)
	return res, args.Error(1)
}

func (m *mockGenerationSvc) Image(ctx context.Context, userID string, plan domain.Plan, req domain.ImageRequest) (*domain.ImageResult, error) {
	args := m.Called(ctx, userID, plan, req)
	res, _ := args.Get(0).(*domain.ImageResult)
	return res, args.Error(1)
}

func TestGenerateText_PassesPlanFromClaims(t *testing.T) {
	svc := &mockGenerationSvc{}
	svc.On("Text", mock.Anything, "u1", domain.PlanPro, domain.TextRequest{Prompt: "haiku"}).
		Return(&domain.TextResult{Text: "an old pond", Model: "gpt-3.5-turbo-0125"}, nil)
	h := NewGenerateHandler(svc)

	rr := httptest.NewRecorder()
	body := jsonBody(t, domain.TextRequest{Prompt: "haiku"})
	h.Text(rr, authed(httptest.NewRequest(http.MethodPost, "/v1/generate/text", body), "u1", "pro"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "an old pond", decode[domain.TextResult](t, rr).Text)
	svc.AssertExpectations(t)
}

func TestGenerateText_InvalidBody(t *testing.T) {
	h := NewGenerateHandler(&mockGenerationSvc{})
	rr := httptest.NewRecorder()
	h.Text(rr, authed(httptest.NewRequest(http.MethodPost, "/v1/generate/text", jsonBody(t, "{")), "u1", "free"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGenerateText_MissingClaims(t *testing.T) {
	h := NewGenerateHandler(&mockGenerationSvc{})
	rr := httptest.NewRecorder()
	h.Text(rr, httptest.NewRequest(http.MethodPost, "/v1/generate/text", jsonBody(t, "{}")))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGenerateImage_LimitReached(t *testing.T) {
	svc := &mockGenerationSvc{}
	svc.On("Image", mock.Anything, "u1", domain.PlanFree, mock.Anything).
		Return(nil, &usage.LimitError{Period: "daily", Limit: 100})
	h := NewGenerateHandler(svc)

	rr := httptest.NewRecorder()
	body := jsonBody(t, domain.ImageRequest{Prompt: "a cat"})
	h.Image(rr, authed(httptest.NewRequest(http.MethodPost, "/v1/generate/image", body), "u1", "free"))

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "daily usage limit of 100 generations reached", decode[MessageEnvelope](t, rr).Error)
}

func TestGenerateImage_UpstreamErrors(t *testing.T) {
	cases := map[error]int{
		domain.ErrUpstreamUnauthorized: http.StatusBadGateway,
		domain.ErrUpstreamUnavailable:  http.StatusServiceUnavailable,
		domain.ErrNotConfigured:        http.StatusServiceUnavailable,
	}
	for err, want := range cases {
		svc := &mockGenerationSvc{}
		svc.On("Image", mock.Anything, "u1", domain.PlanFree, mock.Anything).Return(nil, err)
		h := NewGenerateHandler(svc)

		rr := httptest.NewRecorder()
		body := jsonBody(t, domain.ImageRequest{Prompt: "a cat"})
		h.Image(rr, authed(httptest.NewRequest(http.MethodPost, "/v1/generate/image", body), "u1", "free"))
		assert.Equal(t, want, rr.Code, err.Error())
	}
}

func TestGenerateImage_HappyPath(t *testing.T) {
	svc := &mockGenerationSvc{}
	svc.On("Image", mock.Anything, "u1", domain.PlanFree, domain.ImageRequest{Prompt: "a cat", NumSteps: 2}).
		Return(&domain.ImageResult{URL: "https://fal.media/cat.png", GenerationMS: 1200}, nil)
	h := NewGenerateHandler(svc)

	rr := httptest.NewRecorder()
	body := jsonBody(t, `{"prompt":"a cat","numSteps":2}`)
	h.Image(rr, authed(httptest.NewRequest(http.MethodPost, "/v1/generate/image", body), "u1", "free"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://fal.media/cat.png", decode[domain.ImageResult](t, rr).URL)
	svc.AssertExpectations(t)
}
