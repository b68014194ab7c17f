package model

import "time"

// Timeline row. The slug equals the timeline id and is what public URLs
// carry; it gets its own unique index since all public reads go through it.
type Timeline struct {
	ID             string    `gorm:"primaryKey;column:timeline_id;type:char(36)"`
	Slug           string    `gorm:"column:slug;type:varchar(64);uniqueIndex"`
	Title          string    `gorm:"column:title;type:varchar(255)"`
	Subtitle       string    `gorm:"column:subtitle;type:varchar(255)"`
	Theme          string    `gorm:"column:theme;type:varchar(64)"`
	Layout         string    `gorm:"column:layout;type:varchar(16)"` // vertical, horizontal
	PlanType       string    `gorm:"column:plan_type;type:varchar(16)"`
	IsPublished    bool      `gorm:"column:is_published;default:false;index"`
	IsPrivate      bool      `gorm:"column:is_private;default:false"`
	PasswordHash   string    `gorm:"column:password_hash;type:varchar(128)"`
	EditToken      string    `gorm:"column:edit_token;type:char(36);index"`
	Palette        string    `gorm:"column:palette;type:text"`
	ClosingMessage string    `gorm:"column:closing_message;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (Timeline) TableName() string { return "timelines" }
