package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterAndExecute(t *testing.T) {
	r := NewRegistry(&bytes.Buffer{})
	r.Register("test", "A test command", func(args string) string {
		return "result:" + args
	})

	out, found := r.Execute("/test hello")
	assert.True(t, found)
	assert.Equal(t, "result:hello", out)
}

func TestExecuteUnknown(t *testing.T) {
	r := NewRegistry(&bytes.Buffer{})
	out, found := r.Execute("/nope")
	assert.True(t, found)
	assert.Contains(t, out, "Unknown command")
}

func TestExecuteNotACommand(t *testing.T) {
	r := NewRegistry(&bytes.Buffer{})
	_, found := r.Execute("just a message")
	assert.False(t, found)
}

func TestIsCommand(t *testing.T) {
	assert.True(t, IsCommand("/help"))
	assert.True(t, IsCommand("  /quit"))
	assert.False(t, IsCommand("hello"))
}

func TestDefaultsQuit(t *testing.T) {
	r := NewRegistry(&bytes.Buffer{})
	RegisterDefaults(r, Callbacks{})

	out, found := r.Execute("/quit")
	assert.True(t, found)
	assert.Equal(t, "__QUIT__", out)

	out, _ = r.Execute("/exit")
	assert.Equal(t, "__QUIT__", out)
}

func TestDefaultsClear(t *testing.T) {
	cleared := false
	r := NewRegistry(&bytes.Buffer{})
	RegisterDefaults(r, Callbacks{OnClear: func() { cleared = true }})

	out, found := r.Execute("/clear")
	assert.True(t, found)
	assert.True(t, cleared)
	assert.Contains(t, out, "cleared")
}

func TestDefaultsThinking(t *testing.T) {
	var got string
	r := NewRegistry(&bytes.Buffer{})
	RegisterDefaults(r, Callbacks{OnThinking: func(args string) string {
		got = args
		return "ok"
	}})

	out, found := r.Execute("/thinking off")
	assert.True(t, found)
	assert.Equal(t, "off", got)
	assert.Equal(t, "ok", out)
}

func TestHelpListsCommands(t *testing.T) {
	r := NewRegistry(&bytes.Buffer{})
	RegisterDefaults(r, Callbacks{})

	out, found := r.Execute("/help")
	assert.True(t, found)
	assert.Contains(t, out, "/model")
	assert.Contains(t, out, "/thinking")
	assert.Contains(t, out, "/system")
}
