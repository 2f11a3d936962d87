package review

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question is generated outside this service and only read when building a queue.
type Question struct {
	ID      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TopicID uuid.UUID      `gorm:"type:uuid;not null;index:idx_question_topic_created,priority:1" json:"topic_id"`
	UserID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	VideoID *uuid.UUID     `gorm:"type:uuid;index" json:"video_id,omitempty"`
	Prompt  string         `gorm:"column:prompt;not null" json:"prompt"`
	Options datatypes.JSON `gorm:"column:options" json:"options,omitempty"`
	Answer  string         `gorm:"column:answer" json:"answer,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_question_topic_created,priority:2" json:"created_at"`
}

func (Question) TableName() string { return "question" }

func (q *Question) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

type Video struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string    `gorm:"column:title;not null" json:"title"`
	ThumbnailURL string    `gorm:"column:thumbnail_url" json:"thumbnail_url"`
	ChannelName  string    `gorm:"column:channel_name" json:"channel_name"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (Video) TableName() string { return "video" }

func (v *Video) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
