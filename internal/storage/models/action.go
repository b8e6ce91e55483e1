// internal/storage/models/action.go
package models

import "time"

// Action is one submitted transaction and how it ended.
type Action struct {
	BaseModel
	Signature     string  `gorm:"unique;not null;type:varchar(88)"`
	WalletAddress string  `gorm:"index;not null;type:varchar(44)"`
	Action        string  `gorm:"index;not null;type:varchar(50)"`
	PageName      string  `gorm:"index;type:varchar(100)"`
	Status        string  `gorm:"not null;type:varchar(20)"`
	ErrorMessage  string  `gorm:"type:text"`
	PriorityFee   uint64  `gorm:"not null;default:0"`
	ExecutionTime float64 `gorm:"type:decimal(10,3)"`
	ConfirmedAt   *time.Time
}
