package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	authrepo "quotedesk-backend/internal/auth/repository"
	quotedomain "quotedesk-backend/internal/quote/domain"
	threaddomain "quotedesk-backend/internal/thread/domain"
	threaddto "quotedesk-backend/internal/thread/dto"
	"quotedesk-backend/internal/thread/repository"
	"quotedesk-backend/pkg/config"
	gmailpkg "quotedesk-backend/pkg/gmail"

	"golang.org/x/oauth2"
)

// threadUsecase implements ThreadUsecase interface
type threadUsecase struct {
	messageRepo repository.MessageRepository
	quotes      QuoteDirectory
	userRepo    authrepo.UserRepository
	mailSender  MailSender
	inbox       InboxFetcher
	summarizer  NoteSummarizer
	config      *config.Config
}

// NewThreadUsecase creates a new instance of threadUsecase
func NewThreadUsecase(messageRepo repository.MessageRepository, quotes QuoteDirectory, userRepo authrepo.UserRepository, mailSender MailSender, inbox InboxFetcher, cfg *config.Config) ThreadUsecase {
	return &threadUsecase{
		messageRepo: messageRepo,
		quotes:      quotes,
		userRepo:    userRepo,
		mailSender:  mailSender,
		inbox:       inbox,
		config:      cfg,
	}
}

// FindThread resolves the quote's family and returns the most recent prior
// message to the recipient, if any, along with the total message count.
func (u *threadUsecase) FindThread(userID, quoteID, recipient string) (*threaddomain.ThreadLookup, error) {
	family, err := u.resolveFamilyIDs(userID, quoteID)
	if err != nil {
		return nil, err
	}

	messages, err := u.messageRepo.FindMessages(repository.MessageFilter{
		UserID:    userID,
		QuoteIDs:  family,
		Recipient: recipient,
	})
	if err != nil {
		return nil, err
	}

	lookup := &threaddomain.ThreadLookup{MessageCount: len(messages)}
	if len(messages) == 0 {
		return lookup, nil
	}

	latest := messages[0]
	if latest.ProviderThreadID != "" {
		threadID := latest.ProviderThreadID
		lookup.ProviderThreadID = &threadID
	}
	sentAt := latest.SentAt
	lookup.LastSentAt = &sentAt
	return lookup, nil
}

// RecordSent persists one outbound message. For revision sends the stored body
// gets a trailing annotation naming the version, the notes, and the root quote,
// so the raw message stays meaningful without joining the quote table.
func (u *threadUsecase) RecordSent(userID, quoteID, rootID string, msg *threaddomain.QuoteEmailMessage, revCtx threaddomain.RevisionContext) error {
	msg.UserID = userID
	msg.QuoteID = quoteID
	msg.Direction = threaddomain.DirectionOutbound
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}

	if revCtx.IsRevision {
		msg.EmailType = threaddomain.EmailTypeRevisionSent
		revCtx.RevisionNotes = u.condenseNotes(revCtx.RevisionNotes)
		msg.Body += revisionAnnotation(revCtx)
	} else {
		msg.EmailType = threaddomain.EmailTypeQuoteSent
	}

	if err := u.messageRepo.Insert(msg); err != nil {
		return fmt.Errorf("%w: %v", quotedomain.ErrWriteFailed, err)
	}
	return nil
}

// maxAnnotationNotes bounds the raw notes an annotation carries before the AI
// summary kicks in.
const maxAnnotationNotes = 280

// condenseNotes shortens long revision notes via the AI service. Best effort:
// the raw notes are kept when the service is absent or fails.
func (u *threadUsecase) condenseNotes(notes string) string {
	if u.summarizer == nil || len(notes) <= maxAnnotationNotes {
		return notes
	}
	summary, err := u.summarizer.SummarizeRevisionNotes(context.Background(), notes)
	if err != nil || summary == "" {
		log.Printf("[Thread] Failed to summarize revision notes, keeping raw notes: %v", err)
		return notes
	}
	return summary
}

func revisionAnnotation(revCtx threaddomain.RevisionContext) string {
	var b strings.Builder
	b.WriteString("\n\n---\n")
	fmt.Fprintf(&b, "Revision %s of quote %s", revCtx.VersionNumber, revCtx.RootQuoteID)
	if revCtx.RevisionNotes != "" {
		fmt.Fprintf(&b, "\nChanges: %s", revCtx.RevisionNotes)
	}
	return b.String()
}

// GetHistory returns the family-wide conversation oldest first. A caller who
// does not own the family gets ErrUnauthorized, never another tenant's data.
func (u *threadUsecase) GetHistory(userID, quoteID string) ([]threaddomain.MessageSummary, error) {
	rootID, err := u.quotes.ResolveRoot(userID, quoteID)
	if err != nil {
		return nil, err
	}
	family, err := u.quotes.ResolveFamily(userID, rootID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(family))
	for _, q := range family {
		ids = append(ids, q.ID)
	}

	messages, err := u.messageRepo.FindMessages(repository.MessageFilter{
		UserID:   userID,
		QuoteIDs: ids,
	})
	if err != nil {
		return nil, err
	}

	// Repository order is newest first; walk backwards for a natural timeline.
	summaries := make([]threaddomain.MessageSummary, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		tag := "original"
		if m.EmailType == threaddomain.EmailTypeRevisionSent {
			tag = "revision"
		}
		summaries = append(summaries, threaddomain.MessageSummary{
			ID:          m.ID,
			QuoteID:     m.QuoteID,
			RootQuoteID: rootID,
			Subject:     m.Subject,
			Body:        m.Body,
			Recipient:   m.Recipient,
			Direction:   m.Direction,
			SentAt:      m.SentAt,
			RevisionTag: tag,
		})
	}
	return summaries, nil
}

// SendQuote sends the quote email through the user's Gmail account, continuing
// the family's existing provider thread when one exists, then records it.
func (u *threadUsecase) SendQuote(ctx context.Context, userID, quoteID string, req *threaddto.SendQuoteRequest) (*threaddomain.QuoteEmailMessage, error) {
	quote, err := u.quotes.GetQuote(userID, quoteID)
	if err != nil {
		return nil, err
	}
	rootID, err := u.quotes.ResolveRoot(userID, quoteID)
	if err != nil {
		return nil, err
	}

	lookup, err := u.FindThread(userID, quoteID, req.To)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	if user.GoogleAccessToken == "" && user.GoogleRefreshToken == "" {
		return nil, errors.New("gmail is not connected for this account")
	}

	subject := req.Subject
	if subject == "" {
		subject = fmt.Sprintf("Quote: %s", quote.Title)
	}
	if lookup.MessageCount > 0 && !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	out := gmailpkg.OutgoingMessage{
		FromName:  user.Name,
		FromEmail: user.Email,
		To:        req.To,
		CC:        req.CC,
		BCC:       req.BCC,
		Subject:   subject,
		Body:      req.Body,
		Files:     req.Files,
	}
	if lookup.ProviderThreadID != nil {
		out.ThreadID = *lookup.ProviderThreadID
	}

	result, err := u.mailSender.SendQuoteEmail(ctx, user.GoogleAccessToken, user.GoogleRefreshToken, out, u.makeTokenUpdateCallback(userID))
	if err != nil {
		return nil, err
	}

	var attachments []string
	pdfAttached := false
	for _, f := range req.Files {
		attachments = append(attachments, f.Filename)
		if strings.HasSuffix(strings.ToLower(f.Filename), ".pdf") {
			pdfAttached = true
		}
	}

	msg := &threaddomain.QuoteEmailMessage{
		Recipient:         req.To,
		CC:                req.CC,
		BCC:               req.BCC,
		Subject:           subject,
		Body:              req.Body,
		Attachments:       strings.Join(attachments, ","),
		PDFAttached:       pdfAttached,
		ProviderMessageID: result.MessageID,
		ProviderThreadID:  result.ThreadID,
		SentAt:            time.Now(),
	}
	revCtx := threaddomain.RevisionContext{
		IsRevision:    !quote.IsRoot(),
		VersionNumber: quote.VersionNumber,
		RevisionNotes: quote.RevisionNotes,
		RootQuoteID:   rootID,
	}
	if err := u.RecordSent(userID, quoteID, rootID, msg, revCtx); err != nil {
		return nil, err
	}

	if quote.Status == quotedomain.StatusDraft {
		if err := u.quotes.UpdateStatus(userID, quoteID, quotedomain.StatusSent); err != nil {
			log.Printf("[Thread] Failed to mark quote %s sent: %v", quoteID, err)
		}
	}

	return msg, nil
}

// RecordInboundReply stores a received email when its provider thread matches a
// known quote conversation. Unmatched and already-recorded messages are skipped.
func (u *threadUsecase) RecordInboundReply(userID string, reply *threaddto.InboundReply) (*threaddomain.QuoteEmailMessage, error) {
	var thread []threaddomain.QuoteEmailMessage
	var err error

	if reply.ProviderThreadID != "" {
		thread, err = u.messageRepo.FindByProviderThreadID(userID, reply.ProviderThreadID)
		if err != nil {
			return nil, err
		}
	}
	if len(thread) == 0 && (reply.InReplyTo != "" || reply.References != "") {
		thread, err = u.matchByReplyHeaders(userID, reply)
		if err != nil {
			return nil, err
		}
	}
	if len(thread) == 0 {
		return nil, nil
	}

	for _, m := range thread {
		if m.ProviderMessageID != "" && m.ProviderMessageID == reply.ProviderMessageID {
			return nil, nil
		}
	}

	anchor := thread[0]
	rootID, err := u.quotes.ResolveRoot(userID, anchor.QuoteID)
	if err != nil {
		return nil, err
	}

	receivedAt := reply.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	msg := &threaddomain.QuoteEmailMessage{
		UserID:            userID,
		QuoteID:           anchor.QuoteID,
		Recipient:         reply.From,
		Subject:           reply.Subject,
		Body:              reply.Body,
		ProviderMessageID: reply.ProviderMessageID,
		ProviderThreadID:  reply.ProviderThreadID,
		EmailType:         threaddomain.EmailTypeReply,
		Direction:         threaddomain.DirectionInbound,
		SentAt:            receivedAt,
	}
	if msg.ProviderThreadID == "" {
		msg.ProviderThreadID = anchor.ProviderThreadID
	}
	if err := u.messageRepo.Insert(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", quotedomain.ErrWriteFailed, err)
	}

	log.Printf("[Thread] Recorded inbound reply from %s on quote %s (family %s)", reply.From, anchor.QuoteID, rootID)
	return msg, nil
}

// matchByReplyHeaders is the IMAP fallback: correlate via In-Reply-To and
// References against stored provider message ids.
func (u *threadUsecase) matchByReplyHeaders(userID string, reply *threaddto.InboundReply) ([]threaddomain.QuoteEmailMessage, error) {
	candidates := strings.Fields(reply.References)
	if reply.InReplyTo != "" {
		candidates = append(candidates, reply.InReplyTo)
	}
	for _, ref := range candidates {
		ref = strings.Trim(ref, "<>")
		if ref == "" {
			continue
		}
		match, err := u.messageRepo.FindByProviderMessageID(userID, ref)
		if err != nil {
			return nil, err
		}
		if match == nil {
			continue
		}
		if match.ProviderThreadID != "" {
			return u.messageRepo.FindByProviderThreadID(userID, match.ProviderThreadID)
		}
		return []threaddomain.QuoteEmailMessage{*match}, nil
	}
	return nil, nil
}

func (u *threadUsecase) SetAIService(svc NoteSummarizer) {
	u.summarizer = svc
}

func (u *threadUsecase) MarkRead(userID, messageID string) error {
	return u.messageRepo.MarkRead(userID, messageID)
}

// WatchMailbox subscribes the user's Gmail inbox to the push topic.
func (u *threadUsecase) WatchMailbox(ctx context.Context, userID string) error {
	accessToken, refreshToken, err := u.getUserTokens(userID)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("projects/%s/topics/%s", u.config.GoogleProjectID, u.config.GooglePubSubTopic)
	return u.mailSender.Watch(ctx, accessToken, refreshToken, topic, u.makeTokenUpdateCallback(userID))
}

// SyncIMAPInbox polls an IMAP inbox and records any replies that belong to
// quote threads. Returns the number of messages recorded.
func (u *threadUsecase) SyncIMAPInbox(ctx context.Context, userID, addr, username, password string) (int, error) {
	if u.inbox == nil {
		return 0, errors.New("IMAP sync is not configured")
	}

	since := time.Now().Add(-30 * 24 * time.Hour)
	emails, err := u.inbox.FetchSince(addr, username, password, since, 200)
	if err != nil {
		return 0, err
	}

	recorded := 0
	for _, e := range emails {
		msg, err := u.RecordInboundReply(userID, &threaddto.InboundReply{
			ProviderMessageID: strings.Trim(e.MessageID, "<>"),
			InReplyTo:         e.InReplyTo,
			References:        e.References,
			From:              e.From,
			Subject:           e.Subject,
			Body:              e.Body,
			ReceivedAt:        e.ReceivedAt,
		})
		if err != nil {
			log.Printf("[Thread] IMAP sync failed to record message from %s: %v", e.From, err)
			continue
		}
		if msg != nil {
			recorded++
		}
	}
	return recorded, nil
}

func (u *threadUsecase) resolveFamilyIDs(userID, quoteID string) ([]string, error) {
	rootID, err := u.quotes.ResolveRoot(userID, quoteID)
	if err != nil {
		return nil, err
	}
	family, err := u.quotes.ResolveFamily(userID, rootID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(family))
	for _, q := range family {
		ids = append(ids, q.ID)
	}
	return ids, nil
}

func (u *threadUsecase) getUserTokens(userID string) (string, string, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return "", "", err
	}
	if user == nil {
		return "", "", errors.New("user not found")
	}
	if user.GoogleAccessToken == "" && user.GoogleRefreshToken == "" {
		return "", "", errors.New("gmail is not connected for this account")
	}
	return user.GoogleAccessToken, user.GoogleRefreshToken, nil
}

func (u *threadUsecase) makeTokenUpdateCallback(userID string) gmailpkg.TokenUpdateFunc {
	return func(token *oauth2.Token) error {
		return u.userRepo.UpdateGoogleTokens(userID, token.AccessToken, token.RefreshToken)
	}
}
