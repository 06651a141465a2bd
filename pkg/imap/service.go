package imap

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// InboundEmail is one message pulled from an IMAP inbox.
type InboundEmail struct {
	MessageID  string
	InReplyTo  string
	References string
	From       string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// Service polls IMAP inboxes for accounts without Gmail push. One connection
// per call; nothing is held between polls.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// FetchSince retrieves inbox messages received after the given time, oldest
// first, capped at limit.
func (s *Service) FetchSince(addr, username, password string, since time.Time, limit int) ([]InboundEmail, error) {
	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to IMAP server: %v", err)
	}
	defer c.Logout()

	if err := c.Login(username, password); err != nil {
		return nil, fmt.Errorf("IMAP login failed: %v", err)
	}

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		return nil, fmt.Errorf("unable to select INBOX: %v", err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("IMAP search failed: %v", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var emails []InboundEmail
	for msg := range messages {
		email, err := parseMessage(msg, section)
		if err != nil {
			log.Printf("[IMAP] Skipping unparseable message: %v", err)
			continue
		}
		emails = append(emails, email)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("IMAP fetch failed: %v", err)
	}
	return emails, nil
}

func parseMessage(msg *imap.Message, section *imap.BodySectionName) (InboundEmail, error) {
	email := InboundEmail{}
	if msg.Envelope != nil {
		email.MessageID = msg.Envelope.MessageId
		email.InReplyTo = msg.Envelope.InReplyTo
		email.Subject = msg.Envelope.Subject
		email.ReceivedAt = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			email.From = msg.Envelope.From[0].Address()
		}
	}

	r := msg.GetBody(section)
	if r == nil {
		return email, fmt.Errorf("message has no body section")
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return email, fmt.Errorf("unable to read message: %v", err)
	}

	if refs, err := mr.Header.Text("References"); err == nil {
		email.References = refs
	}

	var body strings.Builder
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return email, fmt.Errorf("unable to read part: %v", err)
		}
		if _, ok := p.Header.(*mail.InlineHeader); ok {
			b, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			body.Write(b)
		}
	}
	email.Body = body.String()
	return email, nil
}
