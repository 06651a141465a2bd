package domain

import "time"

// Email type tags stored on each message. A revision send is distinguished from
// the original send so history can label entries without joining the quote table.
const (
	EmailTypeQuoteSent    = "quote_sent"
	EmailTypeRevisionSent = "revision_sent"
	EmailTypeReply        = "reply_received"
)

// Message directions
const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

// QuoteEmailMessage is one sent or received email tied to the specific quote
// revision it concerns. Messages across a whole family are queried together to
// reconstruct one conversation with a recipient.
type QuoteEmailMessage struct {
	ID      string `json:"id" gorm:"primaryKey"`
	UserID  string `json:"user_id" gorm:"index:idx_user_quote;not null"`
	QuoteID string `json:"quote_id" gorm:"index:idx_user_quote;not null"`

	Recipient string `json:"recipient" gorm:"index;not null"`
	CC        string `json:"cc,omitempty"`
	BCC       string `json:"bcc,omitempty"`
	Subject   string `json:"subject"`
	Body      string `json:"body" gorm:"type:text"`

	// Attachments is a comma-separated list of attachment filenames.
	Attachments string `json:"attachments,omitempty"`
	PDFAttached bool   `json:"pdf_attached"`

	// Provider-assigned ids, used to continue the thread in the mail provider's UI.
	ProviderMessageID string `json:"provider_message_id" gorm:"index"`
	ProviderThreadID  string `json:"provider_thread_id" gorm:"index"`

	EmailType string    `json:"email_type" gorm:"not null"`
	Direction string    `json:"direction" gorm:"not null"`
	Read      bool      `json:"read" gorm:"default:false"`
	SentAt    time.Time `json:"sent_at" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (QuoteEmailMessage) TableName() string {
	return "quote_email_messages"
}

// RevisionContext describes the revision a send concerns, so the stored message
// body stays self-describing even if the revision row is later pruned.
type RevisionContext struct {
	IsRevision    bool
	VersionNumber string
	RevisionNotes string
	RootQuoteID   string
}

// ThreadLookup is the result of locating the conversation with a recipient
// across a quote family. Zero values mean no prior messages exist.
type ThreadLookup struct {
	ProviderThreadID *string    `json:"provider_thread_id"`
	LastSentAt       *time.Time `json:"last_sent_at"`
	MessageCount     int        `json:"message_count"`
}

// MessageSummary is one entry of a family-wide conversation timeline.
type MessageSummary struct {
	ID          string    `json:"id"`
	QuoteID     string    `json:"quote_id"`
	RootQuoteID string    `json:"root_quote_id"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Recipient   string    `json:"recipient"`
	Direction   string    `json:"direction"`
	SentAt      time.Time `json:"sent_at"`

	// RevisionTag is "revision" when the stored email type marks a revision
	// send, "original" otherwise.
	RevisionTag string `json:"revision_tag"`
}
