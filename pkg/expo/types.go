package expo

// Ticket statuses returned by the gateway
const (
	TicketStatusOK    = "ok"
	TicketStatusError = "error"
)

// ErrDeviceNotRegistered is the only ticket error code that means the token
// is dead and must be deactivated. Other codes are transient or message-level
// and leave the token alone.
const ErrDeviceNotRegistered = "DeviceNotRegistered"

// PushMessage is one gateway message addressed to one device token. Built in
// memory, sent, discarded; never persisted.
type PushMessage struct {
	To        string                 `json:"to"`
	Sound     string                 `json:"sound,omitempty"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Priority  string                 `json:"priority,omitempty"`
	ChannelID string                 `json:"channelId,omitempty"`
}

// PushTicket is the gateway's per-message delivery-attempt result. The
// response ticket array is positionally aligned 1:1 with the submitted
// message array; that alignment is a protocol invariant of the gateway, and
// reconciliation depends on it.
type PushTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details *struct {
		Error string `json:"error"`
	} `json:"details,omitempty"`
}

// IsDeviceNotRegistered reports whether this ticket condemns its token.
func (t PushTicket) IsDeviceNotRegistered() bool {
	return t.Status == TicketStatusError && t.Details != nil && t.Details.Error == ErrDeviceNotRegistered
}

// SendResponse is the gateway's envelope around the ticket array.
type SendResponse struct {
	Data []PushTicket `json:"data"`
}

// Chunk splits messages into fixed-size sub-batches. Concatenating the chunks
// in order reconstructs the input; every chunk except possibly the last has
// exactly size elements.
func Chunk(messages []PushMessage, size int) [][]PushMessage {
	if size <= 0 || len(messages) == 0 {
		return nil
	}

	chunks := make([][]PushMessage, 0, (len(messages)+size-1)/size)
	for start := 0; start < len(messages); start += size {
		end := start + size
		if end > len(messages) {
			end = len(messages)
		}
		chunks = append(chunks, messages[start:end])
	}
	return chunks
}
