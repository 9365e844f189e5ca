package models

import (
	"time"

	"github.com/google/uuid"
)

// Tweet tweets:<tid> 哈希
type Tweet struct {
	TID       int64   `json:"tid" redis:"tid"`
	UID       int64   `json:"uid" redis:"uid"`
	TweetText string  `json:"tweet_text" redis:"tweet_text"`
	Timestamp float64 `json:"timestamp" redis:"timestamp"`
	Image     string  `json:"image,omitempty" redis:"image"`
}

// TweetView 对外展示的推文，Image 为临时签名URL
type TweetView struct {
	Tweet
	User *Profile `json:"user,omitempty"`
}

func (t *Tweet) HasImage() bool {
	return t.Image != ""
}

// Time 将浮点秒时间戳转为time.Time
func (t *Tweet) Time() time.Time {
	sec := int64(t.Timestamp)
	nsec := int64((t.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// UnixSeconds 当前时间的浮点秒
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// ActivityRecord 归档的领域事件
type ActivityRecord struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	EventType  string    `json:"event_type" gorm:"not null;index"`
	ActorUID   int64     `json:"actor_uid" gorm:"not null;index"`
	SubjectID  int64     `json:"subject_id"`
	Payload    string    `json:"payload" gorm:"type:text"`
	OccurredAt time.Time `json:"occurred_at" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
}

func (ActivityRecord) TableName() string {
	return "activity_records"
}
