package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/PaulBabatuyi/socialnet/internal/apperr"
	"github.com/PaulBabatuyi/socialnet/internal/data"
	"github.com/PaulBabatuyi/socialnet/internal/events"
	"github.com/PaulBabatuyi/socialnet/internal/normalize"
	"github.com/PaulBabatuyi/socialnet/internal/validate"
)

const msgSelfMessage = "You cannot send message to yourself!"

// MessagingService implements direct messages between two users.
type MessagingService struct {
	d Deps
}

// NewMessagingService returns a MessagingService backed by d.
func NewMessagingService(d Deps) *MessagingService {
	return &MessagingService{d: d.withDefaults()}
}

// SendInput is the body of a send request.
type SendInput struct {
	Text   string   `json:"text"`
	Images []string `json:"images"`
}

// SendResult is the created message and the pair's history including it.
type SendResult struct {
	Message  MessageView   `json:"message"`
	Messages []MessageView `json:"messages"`
}

// Messages returns the history between senderID and receiverID, oldest
// first. The caller must be one of the two.
func (s *MessagingService) Messages(ctx context.Context, userID, senderID, receiverID string) ([]MessageView, error) {
	user, err := loadUser(ctx, s.d, userID, msgUserNotFound)
	if err != nil {
		return nil, err
	}
	sender, err := parseID(senderID, "sender")
	if err != nil {
		return nil, err
	}
	receiver, err := parseID(receiverID, "receiver")
	if err != nil {
		return nil, err
	}
	if sender == receiver {
		return nil, apperr.New(apperr.Validation, msgSelfMessage)
	}
	if user.ID != sender && user.ID != receiver {
		return nil, apperr.New(apperr.Forbidden, "You can only read your own conversations!")
	}

	msgs, err := s.d.Messages.GetMessageHistory(ctx, sender, receiver, 0)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return s.d.messageViews(ctx, msgs)
}

// Conversations returns the conversations userID takes part in, most
// recently updated first.
func (s *MessagingService) Conversations(ctx context.Context, userID string) ([]ConversationView, error) {
	user, err := loadUser(ctx, s.d, userID, msgUserNotFound)
	if err != nil {
		return nil, err
	}
	convs, err := s.d.Conversations.ListConversationsForUser(ctx, user.ID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return s.d.conversationViews(ctx, convs)
}

// Send stores a message from senderID to receiverID. The conversation upsert
// and the message insert form one unit. The receiver's live connections are
// notified on a best effort basis.
func (s *MessagingService) Send(ctx context.Context, userID, senderID, receiverID string, in SendInput) (*SendResult, error) {
	if senderID == "" {
		senderID = userID
	}
	user, err := loadUser(ctx, s.d, userID, msgUserNotFound)
	if err != nil {
		return nil, err
	}
	sender, err := loadUser(ctx, s.d, senderID, "Sender not found!")
	if err != nil {
		return nil, err
	}
	receiver, err := loadUser(ctx, s.d, receiverID, "Reciever not found!")
	if err != nil {
		return nil, err
	}
	if sender.ID != user.ID {
		return nil, apperr.New(apperr.Forbidden, "You can only send messages as yourself!")
	}

	text := strings.TrimSpace(in.Text)
	images := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		if !normalize.Blank(img) {
			images = append(images, strings.TrimSpace(img))
		}
	}
	if err := validate.Message(text, images); err != nil {
		return nil, err
	}
	if sender.ID == receiver.ID {
		return nil, apperr.New(apperr.Validation, msgSelfMessage)
	}

	var msg *data.Message
	err = s.d.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		conv, err := s.d.Conversations.UpsertConversation(ctx, sender.ID, receiver.ID, text, images)
		if err != nil {
			return err
		}
		msg, err = s.d.Messages.SaveMessage(ctx, &data.Message{
			Conversation: conv.ID,
			Text:         text,
			Images:       images,
			Sender:       sender.ID,
			Receiver:     receiver.ID,
		})
		return err
	})
	if err != nil {
		return nil, storeErr(err, "")
	}

	created, err := s.d.messageViews(ctx, []*data.Message{msg})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, apperr.New(apperr.NotFound, "Reciever not found!")
	}
	history, err := s.d.Messages.GetMessageHistory(ctx, sender.ID, receiver.ID, 0)
	if err != nil {
		return nil, storeErr(err, "")
	}
	listing, err := s.d.messageViews(ctx, history)
	if err != nil {
		return nil, err
	}

	if s.d.Notifier != nil {
		if err := s.d.Notifier.SendToUser(receiver.ID.Hex(), created[0]); err != nil {
			// offline receivers read the message from history later
			s.d.Logger.Debug("live delivery skipped",
				zap.String("receiver", receiver.ID.Hex()), zap.Error(err))
		}
	}
	s.d.publish(ctx, events.MessageSent, sender.ID, receiver.ID)
	return &SendResult{Message: created[0], Messages: listing}, nil
}
