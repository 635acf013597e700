package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issued := time.Now()
	token, err := signToken("alice", "terminal_1", issued)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := parseToken(token, "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", claims["user_id"])
	assert.Equal(t, "terminal_1", claims["terminal"])
	assert.Equal(t, float64(issued.Unix()), claims["timestamp"])
}

func TestTokenRejectsWrongUserKey(t *testing.T) {
	token, err := signToken("alice", "terminal_1", time.Now())
	require.NoError(t, err)

	// a token signed for alice must not validate as bob's
	_, err = parseToken(token, "bob")
	assert.Error(t, err)
}

func TestTokenRejectsGarbage(t *testing.T) {
	_, err := parseToken("not-a-token", "alice")
	assert.Error(t, err)
}

func TestNewTerminalUnique(t *testing.T) {
	a := newTerminal(time.Now())
	b := newTerminal(time.Now().Add(time.Nanosecond))
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "terminal_")
}
