package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */

// Document holds the latest durable snapshot of one collaborative document.
// The live edit stream never touches this table; the editor saves snapshots
// on its own timer and reconnecting clients bootstrap from here.
type Document struct {
	gorm.Model
	OwnerID    uint       `gorm:"index;not null" json:"owner_id"`
	Title      string     `gorm:"not null" json:"title"`
	Content    []byte     `gorm:"type:bytea" json:"-"`
	SnapshotAt *time.Time `json:"snapshot_at,omitempty"`
}

/** -------------------- DTOs -------------------- */

// Request
type CreateDocumentRequest struct {
	Title string `json:"title" binding:"required"`
}

type SaveSnapshotRequest struct {
	Content json.RawMessage `json:"content" binding:"required"`
}

// Response
type DocumentResponse struct {
	ID         uint            `json:"id"`
	OwnerID    uint            `json:"owner_id"`
	Title      string          `json:"title"`
	Content    json.RawMessage `json:"content,omitempty"`
	SnapshotAt *time.Time      `json:"snapshot_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ToResponse converts the entity, optionally including the snapshot body
func (d *Document) ToResponse(withContent bool) DocumentResponse {
	resp := DocumentResponse{
		ID:         d.ID,
		OwnerID:    d.OwnerID,
		Title:      d.Title,
		SnapshotAt: d.SnapshotAt,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if withContent && len(d.Content) > 0 {
		resp.Content = json.RawMessage(d.Content)
	}
	return resp
}
