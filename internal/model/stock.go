package model

import (
	"fmt"
	"regexp"
	"time"
)

// Stock is the master record for a tradable entity. Descriptive fields start
// out as placeholders (company name defaults to the ticker) and are enriched
// over time; richer data is never overwritten with poorer data.
type Stock struct {
	ID          uint   `gorm:"primarykey"`
	Ticker      string `gorm:"uniqueIndex;not null"`
	CompanyName string
	Description string
	Industry    string
	Sector      string
	Country     string
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Stock) TableName() string {
	return "stocks"
}

var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9.-]{1,10}$`)
var tickerAlnum = regexp.MustCompile(`[A-Za-z0-9]`)

// ValidateTicker enforces the external identifier format: 1-10 characters,
// alphanumeric plus '.' and '-', with at least one alphanumeric character.
func ValidateTicker(ticker string) error {
	if !tickerPattern.MatchString(ticker) {
		return fmt.Errorf("invalid ticker format: %q", ticker)
	}
	if !tickerAlnum.MatchString(ticker) {
		return fmt.Errorf("invalid ticker format: %q", ticker)
	}
	return nil
}
