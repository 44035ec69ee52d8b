package domain

import (
	"context"
	"time"
)

// SourceType identifies what kind of text a mention was found in
type SourceType string

const (
	SourceComment SourceType = "COMMENT"
	SourcePost    SourceType = "POST"
)

// Valid reports whether s is a known source type
func (s SourceType) Valid() bool {
	return s == SourceComment || s == SourcePost
}

// Mention links a piece of text to a referenced user
type Mention struct {
	ID              int64      `json:"id"`
	SourceID        int64      `json:"sourceId"`
	SourceType      SourceType `json:"sourceType"`
	MentionedUserID int64      `json:"mentionedUserId"`
	CreatedByUserID int64      `json:"createdByUserId"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// MentionRepository persists mention records
type MentionRepository interface {
	Create(ctx context.Context, mention *Mention) error
}
