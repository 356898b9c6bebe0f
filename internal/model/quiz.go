package model

import (
	"time"

	"github.com/deepquiz/wikiquiz/internal/quiz"
)

// Quiz is one persisted generation. Records are append-only: regeneration
// for the same article creates a new row, and existing rows are never
// updated or deleted, so grading can rely on stable question order.
type Quiz struct {
	ID uint `gorm:"primarykey" json:"id"`
	// URL is the original URL as submitted; URLKey is its canonical form
	// used for idempotency lookups and history grouping.
	URL           string       `json:"url" gorm:"type:varchar(1024);not null"`
	URLKey        string       `json:"-" gorm:"type:varchar(1024);not null;index"`
	Title         string       `json:"title" gorm:"type:varchar(512);not null"`
	DateGenerated time.Time    `json:"date_generated" gorm:"autoCreateTime"`
	Payload       quiz.Payload `json:"payload" gorm:"type:jsonb;not null"`
}
