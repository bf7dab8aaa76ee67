// Package domain defines the persistence models for user profiles, daily
// usage counters, regulation document chunks, and contact submissions.
// These types are mapped with GORM and form the core data layer of the
// regulation Q&A backend.
package domain

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Tier is a named subscription level determining the daily query quota.
type Tier string

// Recognized subscription tiers.
const (
	TierFree       Tier = "free"
	TierBasic      Tier = "basic"
	TierPro        Tier = "pro"
	TierUnlimited  Tier = "unlimited"
	TierEnterprise Tier = "enterprise"
)

// UnlimitedQueries marks a tier without a daily cap.
const UnlimitedQueries = -1

// tierLimits maps each tier to its daily query limit.
var tierLimits = map[Tier]int{
	TierFree:       25,
	TierBasic:      100,
	TierPro:        500,
	TierUnlimited:  UnlimitedQueries,
	TierEnterprise: UnlimitedQueries,
}

// Valid reports whether t is a recognized tier.
func (t Tier) Valid() bool {
	_, ok := tierLimits[t]
	return ok
}

// DailyLimit returns the tier's daily query limit, or UnlimitedQueries.
// Unrecognized tiers get the free limit, matching the gate's default.
func (t Tier) DailyLimit() int {
	if n, ok := tierLimits[t]; ok {
		return n
	}
	return tierLimits[TierFree]
}

// Profile represents a user's subscription record. Rows are provisioned
// lazily on the first authenticated request; a missing row reads as the free
// tier and only admin actions mutate it.
type Profile struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Tier      Tier      `json:"tier"       gorm:"type:varchar(16);not null;default:'free'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// UserUsage is one user's query counter for one calendar day (UTC).
// The (user_id, date) pair is the composite key; rows are created on the
// first allowed query of the day and incremented in place afterwards.
// Stale rows for past days accumulate and are never read back.
type UserUsage struct {
	UserID     string    `json:"user_id"     gorm:"type:char(36);primaryKey"`
	Date       string    `json:"date"        gorm:"type:char(10);primaryKey"` // YYYY-MM-DD
	QueryCount int       `json:"query_count" gorm:"not null;default:0"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserUsage.
func (UserUsage) TableName() string { return "user_usage" }

// UsageDate formats t as the canonical usage-row date key (UTC).
func UsageDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ChunkMetadata identifies where a document chunk came from.
type ChunkMetadata struct {
	Regulation string `json:"regulation"`
	Section    string `json:"section"`
	Title      string `json:"title"`
}

// DocumentChunk is a passage of regulation text with its embedding vector.
// Rows are written by an out-of-scope ingestion pipeline; this code only
// reads them through the similarity search.
type DocumentChunk struct {
	ID         string          `json:"id"         gorm:"type:char(36);primaryKey"`
	Content    string          `json:"content"    gorm:"type:text;not null"`
	Regulation string          `json:"regulation" gorm:"type:varchar(64);not null;index"`
	Section    string          `json:"section"    gorm:"type:varchar(64)"`
	Title      string          `json:"title"      gorm:"type:varchar(255)"`
	Embedding  pgvector.Vector `json:"-"          gorm:"type:vector(1536)"`
	CreatedAt  time.Time       `json:"created_at"`
}

// TableName returns the database table name for DocumentChunk.
func (DocumentChunk) TableName() string { return "document_chunks" }

// Metadata returns the chunk's provenance fields as one value.
func (c DocumentChunk) Metadata() ChunkMetadata {
	return ChunkMetadata{Regulation: c.Regulation, Section: c.Section, Title: c.Title}
}

// ContactSubmission is a persisted message from the public contact form.
// Rows are inserted once and never mutated or read back by this service;
// Status exists for downstream triage tooling.
type ContactSubmission struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	Email     string    `json:"email"      gorm:"type:varchar(255);not null"`
	Company   string    `json:"company"    gorm:"type:varchar(255)"`
	Subject   string    `json:"subject"    gorm:"type:varchar(255);not null"`
	Message   string    `json:"message"    gorm:"type:text;not null"`
	IPAddress string    `json:"-"          gorm:"type:varchar(64)"`
	UserAgent string    `json:"-"          gorm:"type:varchar(512)"`
	Status    string    `json:"status"     gorm:"type:varchar(16);not null;default:'new'"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ContactSubmission.
func (ContactSubmission) TableName() string { return "contact_submissions" }
