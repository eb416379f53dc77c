package models

import "time"

// SyncState is the server-side row holding a user's full bundle as one JSON
// column. One row per user, replaced entirely on every push.
type SyncState struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"uniqueIndex;not null" json:"user_id"`
	Data      string    `gorm:"type:jsonb;not null" json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
