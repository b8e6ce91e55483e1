// internal/storage/models/pool.go
package models

import (
	"time"
)

// PoolSnapshot records the reserves and price of a pool when it was read.
type PoolSnapshot struct {
	BaseModel
	PoolID       string    `gorm:"index;not null;type:varchar(44)"`
	PageName     string    `gorm:"index;type:varchar(100)"`
	Provider     uint8     `gorm:"not null"`
	BaseMint     string    `gorm:"not null;type:varchar(44)"`
	QuoteMint    string    `gorm:"not null;type:varchar(44)"`
	BaseReserve  uint64    `gorm:"not null"`
	QuoteReserve uint64    `gorm:"not null"`
	Price        float64   `gorm:"type:decimal(30,12)"`
	LastUpdate   time.Time `gorm:"index;not null"`
}
