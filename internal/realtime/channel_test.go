package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannel(t *testing.T) {
	id := uuid.New()

	ch, err := ParseChannel("chat." + id.String())
	require.NoError(t, err)
	assert.Equal(t, ChatChannel(id), ch)

	ch, err = ParseChannel("private-conversation." + id.String())
	require.NoError(t, err)
	assert.Equal(t, ConversationChannel(id), ch)
	assert.Equal(t, "conversation."+id.String(), ch.String())
}

func TestParseChannelRejects(t *testing.T) {
	for _, name := range []string{
		"",
		"chat",
		"chat.",
		"chat.not-a-uuid",
		"chat." + uuid.Nil.String(),
		"presence." + uuid.NewString(),
		"private-private-chat." + uuid.NewString(),
	} {
		_, err := ParseChannel(name)
		assert.Error(t, err, name)
	}
}
