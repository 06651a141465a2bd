package notification

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	authdomain "quotedesk-backend/internal/auth/domain"
	authrepo "quotedesk-backend/internal/auth/repository"
	threaddto "quotedesk-backend/internal/thread/dto"
	threadusecase "quotedesk-backend/internal/thread/usecase"
	"quotedesk-backend/pkg/fcm"
	gmailpkg "quotedesk-backend/pkg/gmail"

	"cloud.google.com/go/pubsub"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail publishes on mailbox changes.
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service consumes Gmail push notifications, records client replies against
// quote threads, and pushes FCM notifications to the quote owner's devices.
type Service struct {
	pubsubClient  *pubsub.Client
	userRepo      authrepo.UserRepository
	deviceRepo    authrepo.DeviceTokenRepository
	fcmClient     *fcm.Client
	gmailService  *gmailpkg.Service
	threadUsecase threadusecase.ThreadUsecase
	projectID     string
	topicName     string
	subName       string
}

func NewService(projectID, topicName, credentialsFile string, userRepo authrepo.UserRepository, deviceRepo authrepo.DeviceTokenRepository, fcmClient *fcm.Client, gmailService *gmailpkg.Service, threadUsecase threadusecase.ThreadUsecase) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Service{
		pubsubClient:  client,
		userRepo:      userRepo,
		deviceRepo:    deviceRepo,
		fcmClient:     fcmClient,
		gmailService:  gmailService,
		threadUsecase: threadUsecase,
		projectID:     projectID,
		topicName:     topicName,
		subName:       topicName + "-sub", // Convention: topic-sub
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting reply listener with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic does not exist, cannot create subscription")
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	log.Printf("[PubSub] Notification for %s (historyId: %d)", notification.EmailAddress, notification.HistoryID)

	user, err := s.userRepo.FindByEmail(notification.EmailAddress)
	if err != nil {
		log.Printf("[PubSub] Error finding user by email %s: %v", notification.EmailAddress, err)
		return
	}
	if user == nil {
		log.Printf("[PubSub] No account for mailbox %s", notification.EmailAddress)
		return
	}

	// Persistent dedupe: only process history strictly newer than the last
	// recorded checkpoint, and advance it afterwards.
	if user.LastHistoryID != 0 && notification.HistoryID <= user.LastHistoryID {
		return
	}

	startID := user.LastHistoryID
	if startID == 0 {
		startID = notification.HistoryID
	}

	onTokenRefresh := func(token *oauth2.Token) error {
		return s.userRepo.UpdateGoogleTokens(user.ID, token.AccessToken, token.RefreshToken)
	}

	history, err := s.gmailService.ListHistory(ctx, user.GoogleAccessToken, user.GoogleRefreshToken, startID, onTokenRefresh)
	if err != nil {
		log.Printf("[PubSub] Failed to list history for %s: %v", user.ID, err)
		return
	}

	for _, h := range history {
		for _, added := range h.MessagesAdded {
			s.processIncomingMessage(ctx, user, added.Message.Id, onTokenRefresh)
		}
	}

	if err := s.userRepo.UpdateHistoryID(user.ID, notification.HistoryID); err != nil {
		log.Printf("[PubSub] Failed to advance history id for %s: %v", user.ID, err)
	}
}

// processIncomingMessage fetches the full message and hands it to the thread
// layer. Emails outside every quote conversation are dropped silently.
func (s *Service) processIncomingMessage(ctx context.Context, user *authdomain.User, messageID string, onTokenRefresh gmailpkg.TokenUpdateFunc) {
	full, err := s.gmailService.GetMessage(ctx, user.GoogleAccessToken, user.GoogleRefreshToken, messageID, onTokenRefresh)
	if err != nil {
		log.Printf("[PubSub] Failed to fetch message %s: %v", messageID, err)
		return
	}

	from := headerValue(full, "From")
	// Skip the user's own outbound mail echoed back by the watch.
	if strings.Contains(strings.ToLower(from), strings.ToLower(user.Email)) {
		return
	}

	reply := &threaddto.InboundReply{
		ProviderMessageID: full.Id,
		ProviderThreadID:  full.ThreadId,
		InReplyTo:         headerValue(full, "In-Reply-To"),
		References:        headerValue(full, "References"),
		From:              from,
		Subject:           headerValue(full, "Subject"),
		Body:              extractBody(full),
		ReceivedAt:        time.UnixMilli(full.InternalDate),
	}

	recorded, err := s.threadUsecase.RecordInboundReply(user.ID, reply)
	if err != nil {
		log.Printf("[PubSub] Failed to record reply %s: %v", messageID, err)
		return
	}
	if recorded == nil {
		return
	}

	log.Printf("[PubSub] Recorded client reply on quote %s for user %s", recorded.QuoteID, user.ID)
	s.notifyDevices(user.ID, reply.From, reply.Subject, recorded.QuoteID)
}

func (s *Service) notifyDevices(userID, from, subject, quoteID string) {
	if s.fcmClient == nil || s.deviceRepo == nil {
		return
	}

	tokens, err := s.deviceRepo.FindByUserID(userID)
	if err != nil {
		log.Printf("[FCM] Error getting device tokens for user %s: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	if len(subject) > 100 {
		subject = subject[:97] + "..."
	}

	failed, err := s.fcmClient.SendToDevices(context.Background(), tokenStrings, fcm.Notification{
		Title: fmt.Sprintf("Reply from %s", from),
		Body:  subject,
		Data: map[string]string{
			"type":         "quote_reply",
			"quote_id":     quoteID,
			"click_action": fmt.Sprintf("/quotes/%s/history", quoteID),
		},
	})
	if err != nil {
		log.Printf("[FCM] Error sending notifications: %v", err)
		return
	}

	if len(failed) > 0 {
		log.Printf("[FCM] Cleaning up %d failed tokens", len(failed))
		if err := s.deviceRepo.DeleteTokens(failed); err != nil {
			log.Printf("[FCM] Failed to delete stale tokens: %v", err)
		}
	}
}

func headerValue(msg *gmailapi.Message, name string) string {
	if msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// extractBody pulls the first text part of the message, preferring plain text.
// Falls back to the snippet when the payload carries no decodable text.
func extractBody(msg *gmailapi.Message) string {
	if msg.Payload == nil {
		return msg.Snippet
	}
	if body := findTextPart(msg.Payload, "text/plain"); body != "" {
		return body
	}
	if body := findTextPart(msg.Payload, "text/html"); body != "" {
		return body
	}
	return msg.Snippet
}

func findTextPart(part *gmailapi.MessagePart, mimeType string) string {
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		decoded, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return ""
		}
		return string(decoded)
	}
	for _, p := range part.Parts {
		if body := findTextPart(p, mimeType); body != "" {
			return body
		}
	}
	return ""
}
