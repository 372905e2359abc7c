package models

// Chat-platform webhook event types
const (
	EventMessageCreated = "message_created"
)

// Message direction flags as sent by the chat platform
const (
	MessageDirectionIncoming = "incoming"
	MessageDirectionOutgoing = "outgoing"
)

// Sender types as sent by the chat platform
const (
	SenderTypeContact = "contact"
	SenderTypeAgent   = "agent"
	SenderTypeUser    = "user" // agent accounts in the ticketing tool
)

// ChatwootWebhookPayload is the ticketing-style event shape with nested
// message/conversation/sender objects.
type ChatwootWebhookPayload struct {
	Event   string `json:"event"`
	Message struct {
		ID          int64  `json:"id"`
		Content     string `json:"content"`
		MessageType string `json:"message_type"`
	} `json:"message"`
	Conversation struct {
		ID int64 `json:"id"`
	} `json:"conversation"`
	Sender struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"sender"`
}

// ChatWebhookPayload is the generic chat-message event shape. The contact
// identifier carries the application user ID directly.
type ChatWebhookPayload struct {
	Event       string `json:"event"`
	MessageType string `json:"message_type"`
	Content     string `json:"content"`
	SenderType  string `json:"sender_type"`
	ContactID   string `json:"contact_id"`
	Title       string `json:"title,omitempty"`
}

// IsOutgoing reports whether the ticketing message was sent by the system
// side of the conversation rather than received into it.
func (p *ChatwootWebhookPayload) IsOutgoing() bool {
	return p.Message.MessageType == MessageDirectionOutgoing
}

// SenderIsAgent reports whether the ticketing sender is a staff account.
func (p *ChatwootWebhookPayload) SenderIsAgent() bool {
	return p.Sender.Type == SenderTypeAgent || p.Sender.Type == SenderTypeUser
}

// SenderIsContact reports whether the ticketing sender is the end user.
func (p *ChatwootWebhookPayload) SenderIsContact() bool {
	return p.Sender.Type == SenderTypeContact
}
