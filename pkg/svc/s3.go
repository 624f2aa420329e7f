package svc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/City-Bureau/supportchat/pkg/chat"
)

// Transcript is the exported form of one conversation
type Transcript struct {
	ConversationID string         `json:"conversationId"`
	Status         chat.Status    `json:"status"`
	UpdatedAt      *time.Time     `json:"updatedAt,omitempty"`
	ExportedAt     time.Time      `json:"exportedAt"`
	Messages       []chat.Message `json:"messages"`
}

// NewTranscript pairs a conversation with its full history
func NewTranscript(conversation chat.Conversation, messages []chat.Message, exportedAt time.Time) Transcript {
	if messages == nil {
		messages = []chat.Message{}
	}
	return Transcript{
		ConversationID: conversation.ID,
		Status:         conversation.Status,
		UpdatedAt:      conversation.UpdatedAt,
		ExportedAt:     exportedAt,
		Messages:       messages,
	}
}

// TranscriptStore writes transcripts to an S3 bucket
type TranscriptStore struct {
	Client s3iface.S3API
	Bucket string
	Prefix string
}

// NewTranscriptStore creates a TranscriptStore writing under transcripts/
func NewTranscriptStore(bucket string) *TranscriptStore {
	return &TranscriptStore{
		Client: s3.New(session.Must(session.NewSession())),
		Bucket: bucket,
		Prefix: "transcripts/",
	}
}

// Key is the object key for a conversation's transcript
func (s *TranscriptStore) Key(conversationID string) string {
	return fmt.Sprintf("%s%s.json", s.Prefix, conversationID)
}

// Save uploads the transcript, replacing any earlier export
func (s *TranscriptStore) Save(ctx context.Context, transcript Transcript) (string, error) {
	body, err := json.Marshal(transcript)
	if err != nil {
		return "", err
	}
	key := s.Key(transcript.ConversationID)
	_, err = s.Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		ACL:         aws.String("private"),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload transcript %s: %w", key, err)
	}
	return key, nil
}
