package notification

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/pkg/logger"
	"github.com/quocanhngo/chatcore/pkg/metrics"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const maxBodyLength = 120

// DeviceLister returns a user's registered push devices
type DeviceLister interface {
	GetUserDevices(ctx context.Context, userID uuid.UUID) ([]model.UserDevice, error)
}

// PresenceChecker reports whether a user has a live websocket on this instance
type PresenceChecker interface {
	IsUserOnline(userID uuid.UUID) bool
}

// MulticastSender is the part of the FCM client used here
type MulticastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMNotifier pushes new-message notifications to recipients who are not connected
type FCMNotifier struct {
	client   MulticastSender
	devices  DeviceLister
	presence PresenceChecker
	log      *logger.Logger
}

// NewFCMNotifier initializes Firebase from a credentials file.
// It returns nil (push disabled) when no file is configured or Firebase cannot start.
func NewFCMNotifier(ctx context.Context, credentialsFile string, devices DeviceLister, presence PresenceChecker, log *logger.Logger) *FCMNotifier {
	log = log.Named("fcm")
	if credentialsFile == "" {
		log.Warn("Firebase credentials not provided, push notifications disabled")
		return nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		log.Warn("failed to initialize Firebase app, push notifications disabled", zap.Error(err))
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		log.Warn("failed to get messaging client, push notifications disabled", zap.Error(err))
		return nil
	}

	log.Info("Firebase FCM initialized")
	return NewNotifier(client, devices, presence, log)
}

// NewNotifier builds a notifier around an existing sender
func NewNotifier(client MulticastSender, devices DeviceLister, presence PresenceChecker, log *logger.Logger) *FCMNotifier {
	return &FCMNotifier{client: client, devices: devices, presence: presence, log: log}
}

// NotifyMessage sends in the background; the caller's request is never held up by FCM
func (n *FCMNotifier) NotifyMessage(ctx context.Context, msg *model.Message, sender *model.User, recipients []uuid.UUID) {
	if n == nil || n.client == nil || len(recipients) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		for _, id := range recipients {
			if err := n.notifyUser(ctx, id, msg, sender); err != nil {
				metrics.RecordPush(metrics.OutcomeFailed)
				n.log.Warn("push notification failed", zap.String("user_id", id.String()), zap.Error(err))
			}
		}
	}()
}

func (n *FCMNotifier) notifyUser(ctx context.Context, userID uuid.UUID, msg *model.Message, sender *model.User) error {
	if n.presence != nil && n.presence.IsUserOnline(userID) {
		return nil
	}

	devices, err := n.devices.GetUserDevices(ctx, userID)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.FCMToken)
	}

	br, err := n.client.SendEachForMulticast(ctx, BuildMessage(tokens, msg, sender))
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	metrics.PushNotifications.WithLabelValues(metrics.OutcomePublished).Add(float64(br.SuccessCount))
	if br.FailureCount > 0 {
		metrics.PushNotifications.WithLabelValues(metrics.OutcomeFailed).Add(float64(br.FailureCount))
		for idx, resp := range br.Responses {
			if !resp.Success {
				n.log.Warn("FCM failure", zap.String("device_type", devices[idx].DeviceType), zap.Error(resp.Error))
			}
		}
	}
	return nil
}

// BuildMessage renders the multicast payload for one message
func BuildMessage(tokens []string, msg *model.Message, sender *model.User) *messaging.MulticastMessage {
	title := "New message"
	if sender != nil && sender.Name != "" {
		title = sender.Name
	}
	body := []rune(msg.Text)
	if len(body) > maxBodyLength {
		body = append(body[:maxBodyLength-1], '…')
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  string(body),
		},
		Data: map[string]string{
			"type":            "new_message",
			"message_id":      msg.ID.String(),
			"conversation_id": msg.ConversationID.String(),
			"sender_id":       msg.SenderID.String(),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
}
