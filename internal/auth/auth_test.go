package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimengo/crimengo/internal/model"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager("test-secret", time.Hour)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, VerifyPassword(hash, "hunter2"))
	assert.False(t, VerifyPassword(hash, "hunter3"))
	assert.False(t, VerifyPassword("not-a-hash", "hunter2"))
}

func TestIssueAndParse(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Issue(model.User{Username: "admin", IsAdmin: true})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "admin", claims.Subject)
}

func TestParse_WrongSecret(t *testing.T) {
	m := newTestManager(t)
	other := NewManager("different-secret", time.Hour)

	token, err := m.Issue(model.User{Username: "admin"})
	require.NoError(t, err)

	_, err = other.Parse(token)
	require.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	m := newTestManager(t)
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, err := m.Issue(model.User{Username: "admin"})
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = m.Parse(token)
	require.Error(t, err)
}

func TestParse_Garbage(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Parse("not.a.token")
	require.Error(t, err)
}

func TestNewManager_DefaultTTL(t *testing.T) {
	m := NewManager("s", 0)
	assert.Equal(t, DefaultTokenTTL, m.ttl)
}
