package model

import (
	"time"

	"gorm.io/datatypes"
)

// RawResponse archives the verbatim API payload for one (stock, fetch date,
// endpoint), for audit and replay. Rows are only written once all endpoints
// for a ticker succeeded, so the completeness flag is always true on write.
type RawResponse struct {
	ID                uint           `gorm:"primarykey"`
	StockID           uint           `gorm:"not null;uniqueIndex:idx_raw_stock_date_endpoint"`
	Ticker            string         `gorm:"not null"`
	DateFetched       time.Time      `gorm:"type:date;not null;uniqueIndex:idx_raw_stock_date_endpoint"`
	EndpointKey       string         `gorm:"not null;uniqueIndex:idx_raw_stock_date_endpoint"`
	Response          datatypes.JSON `gorm:"type:jsonb"`
	HTTPStatusCode    int            `gorm:"column:http_status_code;not null"`
	IsCompleteSession bool           `gorm:"not null"`
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
}

func (RawResponse) TableName() string {
	return "raw_api_responses"
}
