package postgres

import "time"

type pendingPackageModel struct {
	ClientID      int64     `gorm:"column:client_id;primaryKey"`
	SortKey       string    `gorm:"column:sort_key;primaryKey"`
	Payload       string    `gorm:"column:payload"`
	MessageDate   time.Time `gorm:"column:message_date"`
	LastAttemptAt time.Time `gorm:"column:last_attempt_at"`
	ErrorCode     int       `gorm:"column:error_code"`
	ErrorMessage  string    `gorm:"column:error_message"`
}

func (pendingPackageModel) TableName() string { return "pending_packages" }
