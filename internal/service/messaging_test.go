package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulBabatuyi/socialnet/internal/apperr"
	"github.com/PaulBabatuyi/socialnet/internal/events"
)

func TestSendRequiresTextOrImages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")
	b := f.register(t, "Bobby Roe", "bobby01", "b@x.com")

	_, err := f.messaging.Send(ctx, a, a, b, SendInput{Text: "  ", Images: []string{""}})
	assert.True(t, apperr.Is(err, apperr.Validation))

	res, err := f.messaging.Send(ctx, a, a, b, SendInput{Images: []string{"https://img/1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/1"}, res.Message.Images)
	assert.Equal(t, "alice01", res.Message.Sender.Username)
	assert.Equal(t, "bobby01", res.Message.Receiver.Username)
	assert.Len(t, res.Messages, 1)
}

func TestSendToSelf(t *testing.T) {
	f := newFixture()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")

	_, err := f.messaging.Send(context.Background(), a, a, a, SendInput{Text: "hi"})
	require.True(t, apperr.Is(err, apperr.Validation))
	assert.Equal(t, msgSelfMessage, apperr.Message(err))
}

func TestSendAsSomeoneElse(t *testing.T) {
	f := newFixture()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")
	b := f.register(t, "Bobby Roe", "bobby01", "b@x.com")

	_, err := f.messaging.Send(context.Background(), a, b, a, SendInput{Text: "hi"})
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestMessagesShareOneConversationPerPair(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")
	b := f.register(t, "Bobby Roe", "bobby01", "b@x.com")
	c := f.register(t, "Carol Poe", "carol01", "c@x.com")

	first, err := f.messaging.Send(ctx, a, "", b, SendInput{Text: "hi bob"})
	require.NoError(t, err)
	second, err := f.messaging.Send(ctx, b, b, a, SendInput{Text: "hi alice"})
	require.NoError(t, err)
	assert.Equal(t, first.Message.Conversation, second.Message.Conversation)
	require.Len(t, second.Messages, 2)
	assert.Equal(t, "hi bob", second.Messages[0].Text)
	assert.Equal(t, "hi alice", second.Messages[1].Text)

	other, err := f.messaging.Send(ctx, c, c, a, SendInput{Text: "hey"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Message.Conversation, other.Message.Conversation)

	convs, err := f.messaging.Conversations(ctx, a)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	// most recently updated first
	assert.Equal(t, "hey", convs[0].Text)
	assert.Equal(t, "hi alice", convs[1].Text)
	assert.Len(t, convs[1].Recipients, 2)

	convs, err = f.messaging.Conversations(ctx, b)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestMessagesHistoryAccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")
	b := f.register(t, "Bobby Roe", "bobby01", "b@x.com")
	c := f.register(t, "Carol Poe", "carol01", "c@x.com")
	_, err := f.messaging.Send(ctx, a, a, b, SendInput{Text: "hi"})
	require.NoError(t, err)

	// either party may read, in either argument order
	msgs, err := f.messaging.Messages(ctx, b, a, b)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	msgs, err = f.messaging.Messages(ctx, a, b, a)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = f.messaging.Messages(ctx, c, a, b)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	_, err = f.messaging.Messages(ctx, a, a, a)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestSendNotifiesReceiverAndPublishes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")
	b := f.register(t, "Bobby Roe", "bobby01", "b@x.com")

	res, err := f.messaging.Send(ctx, a, a, b, SendInput{Text: "ping"})
	require.NoError(t, err)

	require.Len(t, f.notifier.sent[b], 1)
	assert.Equal(t, res.Message, f.notifier.sent[b][0])
	assert.Empty(t, f.notifier.sent[a])
	assert.Contains(t, f.pub.types(), events.MessageSent)
}

func TestSendUnknownReceiver(t *testing.T) {
	f := newFixture()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")

	_, err := f.messaging.Send(context.Background(), a, a, "0123456789ab0123456789ab", SendInput{Text: "hi"})
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
