package team

import (
	"context"
	"testing"

	"agency_os_backend/internal/events"
	"agency_os_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	to, name, url string
	calls         int
}

func (s *recordingSender) SendInviteEmail(_ context.Context, toEmail, displayName, signInURL string) error {
	s.calls++
	s.to, s.name, s.url = toEmail, displayName, signInURL
	return nil
}

func TestHandleSendsInviteOnlyWhenRequested(t *testing.T) {
	sender := &recordingSender{}
	m := &Module{sender: sender, appBaseURL: "https://app.agency.io", log: logger.Discard()}

	require.NoError(t, m.Handle(context.Background(), events.GhostProfileCreated{
		ProfileID: uuid.New(), Email: "sam@agency.io", DisplayName: "Sam", SendInvite: false,
	}))
	assert.Equal(t, 0, sender.calls)

	require.NoError(t, m.Handle(context.Background(), events.GhostProfileCreated{
		ProfileID: uuid.New(), Email: "sam@agency.io", DisplayName: "Sam", SendInvite: true,
	}))
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "sam@agency.io", sender.to)
	assert.Equal(t, "https://app.agency.io/login", sender.url)
}
