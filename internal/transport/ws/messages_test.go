package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	msg := newMessage("error", ErrorPayload{Code: "stale_question", Reason: "stale question index"})

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","payload":{"code":"stale_question","reason":"stale question index"}}`, string(data))
}

func TestMessageDecodeSubmitAnswer(t *testing.T) {
	raw := []byte(`{"type":"submit_answer","payload":{"questionIndex":2,"text":"my answer"}}`)

	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	require.Equal(t, MsgSubmitAnswer, msg.Type)

	var payload SubmitAnswerPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, 2, payload.QuestionIndex)
	assert.Equal(t, "my answer", payload.Text)
}
