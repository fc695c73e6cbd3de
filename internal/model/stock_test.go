package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTicker(t *testing.T) {
	tests := []struct {
		name    string
		ticker  string
		wantErr bool
	}{
		{name: "plain ticker", ticker: "AAPL", wantErr: false},
		{name: "class share with dot", ticker: "BRK.B", wantErr: false},
		{name: "hyphenated", ticker: "BRK-B", wantErr: false},
		{name: "digits", ticker: "8035", wantErr: false},
		{name: "lowercase accepted", ticker: "aapl", wantErr: false},
		{name: "empty", ticker: "", wantErr: true},
		{name: "too long", ticker: "ABCDEFGHIJK", wantErr: true},
		{name: "punctuation only", ticker: ".-.", wantErr: true},
		{name: "whitespace", ticker: "AA PL", wantErr: true},
		{name: "sql injection attempt", ticker: "A;DROP", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTicker(tt.ticker)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
