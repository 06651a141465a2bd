package repository

import (
	"errors"
	"time"

	threaddomain "quotedesk-backend/internal/thread/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageFilter scopes a family-wide message query. QuoteIDs holds the ids of
// every quote in the family; Recipient is optional.
type MessageFilter struct {
	UserID    string
	QuoteIDs  []string
	Recipient string
}

// MessageRepository defines the persistence interface for thread messages
type MessageRepository interface {
	// FindMessages retrieves messages matching the filter, most recent first.
	// Equal timestamps are broken by id so results stay deterministic.
	FindMessages(filter MessageFilter) ([]threaddomain.QuoteEmailMessage, error)
	// Insert persists one message as a single atomic row write
	Insert(msg *threaddomain.QuoteEmailMessage) error
	// FindByProviderThreadID retrieves the user's messages in one provider thread
	FindByProviderThreadID(userID, providerThreadID string) ([]threaddomain.QuoteEmailMessage, error)
	// FindByProviderMessageID retrieves the message carrying a provider message id;
	// returns nil when absent
	FindByProviderMessageID(userID, providerMessageID string) (*threaddomain.QuoteEmailMessage, error)
	// MarkRead flags a message as read
	MarkRead(userID, id string) error
}

// messageRepository implements MessageRepository interface
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of messageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

func (r *messageRepository) FindMessages(filter MessageFilter) ([]threaddomain.QuoteEmailMessage, error) {
	if len(filter.QuoteIDs) == 0 {
		return []threaddomain.QuoteEmailMessage{}, nil
	}

	query := r.db.Where("user_id = ? AND quote_id IN ?", filter.UserID, filter.QuoteIDs)
	if filter.Recipient != "" {
		query = query.Where("recipient = ?", filter.Recipient)
	}

	var messages []threaddomain.QuoteEmailMessage
	err := query.Order("sent_at DESC, id DESC").Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) Insert(msg *threaddomain.QuoteEmailMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.CreatedAt = time.Now()
	return r.db.Create(msg).Error
}

func (r *messageRepository) FindByProviderThreadID(userID, providerThreadID string) ([]threaddomain.QuoteEmailMessage, error) {
	var messages []threaddomain.QuoteEmailMessage
	err := r.db.Where("user_id = ? AND provider_thread_id = ?", userID, providerThreadID).
		Order("sent_at DESC, id DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) FindByProviderMessageID(userID, providerMessageID string) (*threaddomain.QuoteEmailMessage, error) {
	var msg threaddomain.QuoteEmailMessage
	err := r.db.Where("user_id = ? AND provider_message_id = ?", userID, providerMessageID).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) MarkRead(userID, id string) error {
	result := r.db.Model(&threaddomain.QuoteEmailMessage{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("message not found")
	}
	return nil
}
