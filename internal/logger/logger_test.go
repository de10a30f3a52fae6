package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDevelopment(t *testing.T) {
	l, err := New("development", "debug")
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewProduction(t *testing.T) {
	l, err := New("production", "info")
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewBadLevel(t *testing.T) {
	_, err := New("development", "shout")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	assert.NotNil(t, Nop())
}
