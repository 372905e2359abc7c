package service

import (
	"context"
	"strconv"

	apperrors "pushrelay/internal/errors"
	"pushrelay/internal/models"
	"pushrelay/internal/privacy"
	"pushrelay/internal/store"
	"pushrelay/pkg/expo"

	"github.com/sirupsen/logrus"
)

// WebhookAck is the outcome of one inbound webhook event. Filtered events
// acknowledge without doing anything; Reason says why.
type WebhookAck struct {
	Handled     bool   `json:"handled"`
	Reason      string `json:"reason,omitempty"`
	Sent        int    `json:"sent"`
	Deactivated int    `json:"deactivated"`
}

// WebhookService turns accepted chat-platform events into persisted
// consultation messages and push notifications.
type WebhookService struct {
	store  store.Store
	push   expo.Client
	logger *logrus.Logger
}

// NewWebhookService wires the webhook receiver to its collaborators.
func NewWebhookService(st store.Store, push expo.Client, logger *logrus.Logger) *WebhookService {
	return &WebhookService{
		store:  st,
		push:   push,
		logger: logger,
	}
}

// HandleChatwootEvent processes one ticketing-style event: filter, resolve
// the consultation by conversation id, attribute the sender, persist the
// message, and push-notify the consultation's user when the message came from
// the staff side.
func (s *WebhookService) HandleChatwootEvent(ctx context.Context, payload *models.ChatwootWebhookPayload) (*WebhookAck, error) {
	if payload.Event != models.EventMessageCreated {
		return &WebhookAck{Reason: "ignored event type"}, nil
	}
	if payload.IsOutgoing() {
		return &WebhookAck{Reason: "outgoing message"}, nil
	}
	if !payload.SenderIsAgent() && !payload.SenderIsContact() {
		return &WebhookAck{Reason: "unsupported sender type"}, nil
	}

	conversationID := strconv.FormatInt(payload.Conversation.ID, 10)
	consultation, err := s.store.ConsultationByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &models.ConsultationMessage{
		ConsultationID: consultation.ID,
		Content:        payload.Message.Content,
		IsRead:         false,
	}

	fromStaff := payload.SenderIsAgent()
	if fromStaff {
		msg.UserID, msg.MessageType, err = s.attributeStaffSender(ctx, consultation)
		if err != nil {
			return nil, err
		}
	} else {
		msg.UserID = consultation.UserID
		msg.MessageType = models.MessageTypeUser
	}

	if err := s.store.InsertConsultationMessage(ctx, msg); err != nil {
		return nil, err
	}

	ack := &WebhookAck{Handled: true}
	if !fromStaff {
		// The end user wrote the message; nothing to push back at them.
		return ack, nil
	}

	title := payload.Sender.Name
	if title == "" {
		title = "New message"
	}

	sent, deactivated, err := s.notifyUser(ctx, consultation.UserID, title, payload.Message.Content, map[string]interface{}{
		"type":            "consultation_message",
		"consultation_id": consultation.ID,
	})
	if err != nil {
		return nil, err
	}
	if sent == 0 && deactivated == 0 {
		ack.Reason = "no active devices"
	}
	ack.Sent = sent
	ack.Deactivated = deactivated
	return ack, nil
}

// attributeStaffSender applies the sender-role policy: the assigned
// consultant when there is one, otherwise the first admin/author profile
// (ordered by id), otherwise the consultation's user with system attribution.
func (s *WebhookService) attributeStaffSender(ctx context.Context, consultation *models.Consultation) (string, string, error) {
	if consultation.ConsultantID != nil && *consultation.ConsultantID != "" {
		return *consultation.ConsultantID, models.MessageTypeConsultant, nil
	}

	staff, err := s.store.FirstStaffProfile(ctx)
	if err != nil {
		return "", "", err
	}
	if staff != nil {
		return staff.ID, models.MessageTypeConsultant, nil
	}

	return consultation.UserID, models.MessageTypeSystem, nil
}

// HandleChatEvent processes one generic chat-message event: filter, resolve
// the user from the contact identifier, and push-notify their devices.
func (s *WebhookService) HandleChatEvent(ctx context.Context, payload *models.ChatWebhookPayload) (*WebhookAck, error) {
	if payload.Event != models.EventMessageCreated {
		return &WebhookAck{Reason: "ignored event type"}, nil
	}
	if payload.MessageType == models.MessageDirectionOutgoing {
		return &WebhookAck{Reason: "outgoing message"}, nil
	}
	if payload.SenderType != models.SenderTypeContact {
		return &WebhookAck{Reason: "unsupported sender type"}, nil
	}
	if payload.ContactID == "" {
		return nil, apperrors.NewValidationError("contact_id", "contact identifier is required")
	}

	title := payload.Title
	if title == "" {
		title = "New message"
	}

	sent, deactivated, err := s.notifyUser(ctx, payload.ContactID, title, payload.Content, map[string]interface{}{
		"type": "chat_message",
	})
	if err != nil {
		return nil, err
	}

	ack := &WebhookAck{Handled: true, Sent: sent, Deactivated: deactivated}
	if sent == 0 && deactivated == 0 {
		// Absence of a subscribed device is an expected steady state.
		ack.Reason = "no active devices"
	}
	return ack, nil
}

// notifyUser builds one push message per active token and submits them in a
// single gateway call. The webhook path never sees enough tokens to need
// chunking.
func (s *WebhookService) notifyUser(ctx context.Context, userID, title, body string, data map[string]interface{}) (sent, deactivated int, err error) {
	tokens, err := s.store.ActiveDeviceTokens(ctx, []string{userID})
	if err != nil {
		return 0, 0, err
	}
	if len(tokens) == 0 {
		s.logger.WithField("user_id", privacy.MaskUserID(userID)).Debug("No active device tokens")
		return 0, 0, nil
	}

	messages := make([]expo.PushMessage, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, expo.PushMessage{
			To:       token.PushToken,
			Sound:    "default",
			Title:    title,
			Body:     body,
			Data:     data,
			Priority: "high",
		})
	}

	tickets, err := s.push.SendMessages(ctx, messages)
	if err != nil {
		return 0, 0, apperrors.NewPushGatewayError("/--/api/v2/push/send", 0, err)
	}

	// Tickets line up 1:1 with the submitted messages.
	for i, ticket := range tickets {
		if ticket.Status == expo.TicketStatusOK {
			sent++
			continue
		}
		if ticket.IsDeviceNotRegistered() {
			token := messages[i].To
			if derr := s.store.DeactivateDeviceToken(ctx, token); derr != nil {
				s.logger.WithError(derr).WithField("token", privacy.MaskToken(token)).Warn("Failed to deactivate device token")
				continue
			}
			deactivated++
		}
	}

	return sent, deactivated, nil
}
