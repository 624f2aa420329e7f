// Package store keeps a local, read-only mirror of the conversations the
// inbox has seen.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/jinzhu/gorm/dialects/postgres"

	"github.com/City-Bureau/supportchat/pkg/chat"
)

// StaleAfter is how long a cached conversation may go without updates
// before CleanupStaleConversations removes it
const StaleAfter = 24 * 7 * time.Hour

// ErrNoConversationID is returned when saving a conversation without an id
var ErrNoConversationID = errors.New("conversation id is required")

// Conversation is the struct for managing database access to cached conversations
type Conversation struct {
	gorm.Model
	ConversationID string         `gorm:"column:conversation_id;unique_index;not null" json:"conversationId"`
	Status         string         `gorm:"column:status" json:"status"`
	Data           postgres.Jsonb `json:"data"`
}

// TableName keeps the cache apart from any backend tables in the same database
func (Conversation) TableName() string {
	return "cached_conversations"
}

// Store wraps the database holding the cache
type Store struct {
	db *gorm.DB
}

// Open connects to postgres with a libpq connection string
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// New wraps an existing connection
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Close releases the connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates or updates the cache tables
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Conversation{}).Error
}

// SaveConversations upserts every conversation in the list
func (s *Store) SaveConversations(conversations []chat.Conversation) error {
	for _, conversation := range conversations {
		if err := s.SaveConversation(conversation); err != nil {
			return err
		}
	}
	return nil
}

// SaveConversation upserts one conversation by its backend id
func (s *Store) SaveConversation(conversation chat.Conversation) error {
	if conversation.ID == "" {
		return ErrNoConversationID
	}
	data, err := json.Marshal(conversation)
	if err != nil {
		return err
	}
	var record Conversation
	err = s.db.
		Where("conversation_id = ?", conversation.ID).
		Assign(Conversation{
			ConversationID: conversation.ID,
			Status:         string(conversation.Status),
			Data:           postgres.Jsonb{RawMessage: json.RawMessage(data)},
		}).
		FirstOrCreate(&record).Error
	if err != nil {
		return fmt.Errorf("cache conversation %s: %w", conversation.ID, err)
	}
	return nil
}

// Conversation loads one cached conversation. The bool is false when it is not cached.
func (s *Store) Conversation(conversationID string) (chat.Conversation, bool, error) {
	var record Conversation
	query := s.db.Where("conversation_id = ?", conversationID).First(&record)
	if query.RecordNotFound() {
		return chat.Conversation{}, false, nil
	}
	if query.Error != nil {
		return chat.Conversation{}, false, query.Error
	}
	conversation, err := record.decode()
	return conversation, err == nil, err
}

// Conversations lists the cache, most recently updated first
func (s *Store) Conversations() ([]chat.Conversation, error) {
	var records []Conversation
	if err := s.db.Order("updated_at desc").Find(&records).Error; err != nil {
		return nil, err
	}
	conversations := make([]chat.Conversation, 0, len(records))
	for _, record := range records {
		conversation, err := record.decode()
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	return conversations, nil
}

// CleanupStaleConversations deletes conversations not updated since before
// and returns how many were removed
func (s *Store) CleanupStaleConversations(before time.Time) (int64, error) {
	query := s.db.Unscoped().Where("updated_at < ?", before).Delete(&Conversation{})
	return query.RowsAffected, query.Error
}

func (c Conversation) decode() (chat.Conversation, error) {
	var conversation chat.Conversation
	if len(c.Data.RawMessage) > 0 {
		if err := json.Unmarshal(c.Data.RawMessage, &conversation); err != nil {
			return conversation, fmt.Errorf("decode cached conversation %s: %w", c.ConversationID, err)
		}
	}
	if conversation.ID == "" {
		conversation.ID = c.ConversationID
	}
	if conversation.Status == "" {
		conversation.Status = chat.Status(c.Status)
	}
	return conversation, nil
}
