package session

import (
	"context"
	"errors"
	"testing"

	"github.com/ai-content-platform/internal/application/notification"
	"github.com/ai-content-platform/internal/domain"
	"github.com/ai-content-platform/internal/infrastructure/google"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) Verify(ctx context.Context, token string) (*google.Payload, error) {
	args := m.Called(ctx, token)
	p, _ := args.Get(0).(*google.Payload)
	return p, args.Error(1)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, email, plan string) (string, error) {
	args := m.Called(userID, email, plan)
	return args.String(0), args.Error(1)
}

type mockStats struct{ mock.Mock }

func (m *mockStats) PreserveUserStats(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockStats) RestoreUserStats(ctx context.Context, userID string) (*domain.UsageStats, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).(*domain.UsageStats)
	return s, args.Error(1)
}

func newTestService(t *testing.T) (Service, *mockVerifier, *mockSigner, *mockStats, *notification.Hub) {
	t.Helper()
	v, sg, st := &mockVerifier{}, &mockSigner{}, &mockStats{}
	hub := notification.NewHub(0)
	t.Cleanup(hub.Dispose)
	return NewService(v, sg, st, hub, domain.PlanFree), v, sg, st, hub
}

func TestSignInWithGoogle(t *testing.T) {
	svc, v, sg, st, _ := newTestService(t)
	ctx := context.Background()
	restored := &domain.UsageStats{Total: domain.Counts{Text: 4}}
	v.On("Verify", ctx, "tok").Return(&google.Payload{Sub: "sub-1", Email: "a@example.com"}, nil)
	sg.On("Sign", "sub-1", "a@example.com", "free").Return("jwt", nil)
	st.On("RestoreUserStats", ctx, "sub-1").Return(restored, nil)

	res, err := svc.SignInWithGoogle(ctx, " tok ")
	require.NoError(t, err)
	assert.Equal(t, "jwt", res.Bearer)
	assert.Equal(t, "sub-1", res.UserID)
	assert.Equal(t, domain.PlanFree, res.Plan)
	assert.Same(t, restored, res.Stats)
	v.AssertExpectations(t)
	sg.AssertExpectations(t)
	st.AssertExpectations(t)
}

func TestSignInWithGoogle_RestoreFailureStillSignsIn(t *testing.T) {
	svc, v, sg, st, _ := newTestService(t)
	ctx := context.Background()
	v.On("Verify", ctx, "tok").Return(&google.Payload{Sub: "sub-1"}, nil)
	sg.On("Sign", "sub-1", "", "free").Return("jwt", nil)
	st.On("RestoreUserStats", ctx, "sub-1").Return(&domain.UsageStats{}, errors.New("throttled"))

	res, err := svc.SignInWithGoogle(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "jwt", res.Bearer)
}

func TestSignInWithGoogle_Rejections(t *testing.T) {
	svc, v, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SignInWithGoogle(ctx, "")
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	v.On("Verify", ctx, "bad").Return(nil, domain.ErrUnauthorized)
	_, err = svc.SignInWithGoogle(ctx, "bad")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	v.On("Verify", ctx, "nosub").Return(&google.Payload{}, nil)
	_, err = svc.SignInWithGoogle(ctx, "nosub")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSignOut(t *testing.T) {
	svc, _, _, st, hub := newTestService(t)
	ctx := context.Background()
	st.On("PreserveUserStats", ctx, "u1").Return(nil)

	require.NoError(t, svc.SignOut(ctx, "u1"))
	notes := hub.For("u1").Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "Logged out successfully", notes[0].Title)
	assert.Equal(t, domain.NotificationSuccess, notes[0].Type)
}

func TestSignOut_PreserveFailure(t *testing.T) {
	svc, _, _, st, hub := newTestService(t)
	ctx := context.Background()
	boom := errors.New("down")
	st.On("PreserveUserStats", ctx, "u1").Return(boom)

	assert.ErrorIs(t, svc.SignOut(ctx, "u1"), boom)
	notes := hub.For("u1").Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "Logout failed", notes[0].Title)
}
