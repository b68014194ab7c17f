package model

import "time"

// Moment row. Owned exclusively by its timeline; deleting the timeline
// cascades here. The three image columns mirror the fixed per-moment image
// cap.
type Moment struct {
	ID          uint64    `gorm:"primaryKey;column:moment_id;autoIncrement"`
	TimelineID  string    `gorm:"column:timeline_id;type:char(36);index"`
	Date        time.Time `gorm:"column:moment_date"`
	Title       string    `gorm:"column:title;type:varchar(255)"`
	Description string    `gorm:"column:description;type:text"`
	ImageURL1   string    `gorm:"column:image_url_1;type:varchar(512)"`
	ImageURL2   string    `gorm:"column:image_url_2;type:varchar(512)"`
	ImageURL3   string    `gorm:"column:image_url_3;type:varchar(512)"`
	MusicURL    string    `gorm:"column:music_url;type:varchar(512)"`
	OrderIndex  int       `gorm:"column:order_index"`
}

func (Moment) TableName() string { return "moments" }
