package models

// Consultation message sender attribution types.
const (
	MessageTypeUser       = "user"
	MessageTypeConsultant = "consultant"
	MessageTypeSystem     = "system"
)

// Profile roles eligible as a fallback consultant when a consultation has no
// assigned one.
const (
	RoleAdmin  = "admin"
	RoleAuthor = "author"
)

// Consultation links an end user, an optional assigned consultant, and the
// external chat conversation the support tool keeps for them. Read-only from
// this system's perspective.
type Consultation struct {
	ID                     string  `json:"id"`
	UserID                 string  `json:"user_id"`
	ConsultantID           *string `json:"consultant_id,omitempty"`
	ChatwootConversationID string  `json:"chatwoot_conversation_id"`
}

// ConsultationMessage is the persisted mirror of one accepted inbound chat
// message.
type ConsultationMessage struct {
	ConsultationID string `json:"consultation_id"`
	UserID         string `json:"user_id"`
	Content        string `json:"content"`
	MessageType    string `json:"message_type"`
	IsRead         bool   `json:"is_read"`
}

// Profile is a user profile row; only the fields this system reads.
type Profile struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}
