package notify

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// TestLogNotifier_NotifyUser verifies notifications are logged and printed
func TestLogNotifier_NotifyUser(t *testing.T) {
	var logs, out bytes.Buffer
	n := New(zerolog.New(&logs), &out)

	n.NotifyUser("rule ads failed")

	assert.Contains(t, logs.String(), `"message":"rule ads failed"`)
	assert.Contains(t, logs.String(), `"kind":"notification"`)
	assert.Equal(t, "! rule ads failed\n", out.String())
}

// TestLogNotifier_LogError verifies errors carry their cause
func TestLogNotifier_LogError(t *testing.T) {
	var logs bytes.Buffer
	n := New(zerolog.New(&logs), nil)

	n.LogError("title strip failed", errors.New("bad pattern"))

	assert.Contains(t, logs.String(), `"level":"error"`)
	assert.Contains(t, logs.String(), `"error":"bad pattern"`)
}

// TestRecorder verifies messages are kept in order
func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.NotifyUser("a")
	r.NotifyUser("b")
	r.LogError("c", errors.New("d"))
	r.LogError("e", nil)

	assert.Equal(t, []string{"a", "b"}, r.Notifications)
	assert.Equal(t, []string{"c: d", "e"}, r.Errors)
}
