package dto

import (
	"mime/multipart"
	"time"

	threaddomain "quotedesk-backend/internal/thread/domain"
)

type SendQuoteRequest struct {
	To      string                  `form:"to" binding:"required,email"`
	CC      string                  `form:"cc"`
	BCC     string                  `form:"bcc"`
	Subject string                  `form:"subject"`
	Body    string                  `form:"body"`
	Files   []*multipart.FileHeader `form:"files"`
}

// InboundReply is one received email as reported by a sync source (Gmail push
// or IMAP polling).
type InboundReply struct {
	ProviderMessageID string
	ProviderThreadID  string
	InReplyTo         string
	References        string
	From              string
	Subject           string
	Body              string
	ReceivedAt        time.Time
}

type HistoryResponse struct {
	Messages []threaddomain.MessageSummary `json:"messages"`
}
