package repository

import (
	"errors"
	"time"

	quotedomain "quotedesk-backend/internal/quote/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuoteRepository defines the persistence interface for quotes
type QuoteRepository interface {
	// GetByID retrieves a quote by id; returns nil when it does not exist
	GetByID(id string) (*quotedomain.Quote, error)
	// FindFamily retrieves the root quote plus its direct children, scoped to the owner
	FindFamily(userID, rootID string) ([]quotedomain.Quote, error)
	// Create inserts a quote and its items in one transaction
	Create(quote *quotedomain.Quote) error
	// List retrieves a page of the user's quotes, newest first
	List(userID string, limit, offset int) ([]quotedomain.Quote, int64, error)
	// UpdateStatus sets the status of a quote owned by the user
	UpdateStatus(userID, id, status string) error
	// Delete removes a quote and its line items in one transaction
	Delete(userID, id string) error
}

// quoteRepository implements QuoteRepository interface
type quoteRepository struct {
	db *gorm.DB
}

// NewQuoteRepository creates a new instance of quoteRepository
func NewQuoteRepository(db *gorm.DB) QuoteRepository {
	return &quoteRepository{
		db: db,
	}
}

func (r *quoteRepository) GetByID(id string) (*quotedomain.Quote, error) {
	var quote quotedomain.Quote
	err := r.db.Preload("Items").Where("id = ?", id).First(&quote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &quote, nil
}

// FindFamily returns the root and every quote whose parent_quote_id equals the
// root id. Revisions are always written with the root as parent, so one level
// below the root is the whole family.
func (r *quoteRepository) FindFamily(userID, rootID string) ([]quotedomain.Quote, error) {
	var quotes []quotedomain.Quote
	err := r.db.Where("user_id = ? AND (id = ? OR parent_quote_id = ?)", userID, rootID, rootID).
		Order("created_at ASC, id ASC").
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

func (r *quoteRepository) Create(quote *quotedomain.Quote) error {
	now := time.Now()
	if quote.ID == "" {
		quote.ID = uuid.New().String()
	}
	quote.CreatedAt = now
	quote.UpdatedAt = now
	for i := range quote.Items {
		if quote.Items[i].ID == "" {
			quote.Items[i].ID = uuid.New().String()
		}
		quote.Items[i].QuoteID = quote.ID
	}
	return r.db.Create(quote).Error
}

func (r *quoteRepository) List(userID string, limit, offset int) ([]quotedomain.Quote, int64, error) {
	var quotes []quotedomain.Quote
	var total int64

	if err := r.db.Model(&quotedomain.Quote{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Preload("Items").Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&quotes).Error
	if err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

func (r *quoteRepository) Delete(userID, id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&quotedomain.Quote{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return quotedomain.ErrQuoteNotFound
		}
		return tx.Where("quote_id = ?", id).Delete(&quotedomain.QuoteItem{}).Error
	})
}

func (r *quoteRepository) UpdateStatus(userID, id, status string) error {
	result := r.db.Model(&quotedomain.Quote{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return quotedomain.ErrQuoteNotFound
	}
	return nil
}
