package service

import (
	"context"
	"testing"
	"time"

	"github.com/quocanhngo/chatcore/internal/apperror"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/internal/service/servicetest"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock hands out strictly increasing times so message order is deterministic
type clock struct {
	t time.Time
}

func (c *clock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	mem      *servicetest.Memory
	pub      *servicetest.Publisher
	notifier *servicetest.Notifier

	convs  *ConversationService
	msgs   *MessageService
	typing *TypingService

	alice, bob, carol, dave model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem := servicetest.New()
	pub := &servicetest.Publisher{}
	notifier := &servicetest.Notifier{}
	clk := &clock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}

	convs := NewConversationService(mem.Conversations(), mem.Messages(), mem.Users(), logger.Nop())
	convs.now = clk.Now
	msgs := NewMessageService(mem.Conversations(), mem.Messages(), mem.Users(), pub, notifier, logger.Nop())
	msgs.now = clk.Now

	return &fixture{
		mem:      mem,
		pub:      pub,
		notifier: notifier,
		convs:    convs,
		msgs:     msgs,
		typing:   NewTypingService(mem.Conversations(), mem.Users(), pub),
		alice:    mem.AddUser("Alice"),
		bob:      mem.AddUser("Bob"),
		carol:    mem.AddUser("Carol"),
		dave:     mem.AddUser("Dave"),
	}
}

func (f *fixture) direct(t *testing.T, a, b model.User) *model.Conversation {
	t.Helper()
	conv, err := f.convs.StartConversation(context.Background(), a.ID, b.ID)
	require.NoError(t, err)
	return conv
}

func (f *fixture) send(t *testing.T, from model.User, conv *model.Conversation, text string) *model.MessageView {
	t.Helper()
	view, err := f.msgs.SendMessage(context.Background(), from.ID, conv.ID, text)
	require.NoError(t, err)
	return view
}

func assertKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperror.KindOf(err), err.Error())
}
