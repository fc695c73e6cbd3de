package service

import (
	"fmt"

	"stock-fundamentals/config"
	"stock-fundamentals/internal/dto"
	"stock-fundamentals/pkg/logger"
)

// QualityGate rejects extracted records that are too sparse or violate basic
// business rules. A rejection is an outcome, not an error: the ticker is
// reported failed with a readable reason and the batch continues.
type QualityGate struct {
	minPopulatedFields int
	log                *logger.Logger
}

func NewQualityGate(cfg *config.Config, log *logger.Logger) *QualityGate {
	min := cfg.Quality.MinPopulatedFields
	if min <= 0 {
		min = 10
	}
	return &QualityGate{minPopulatedFields: min, log: log}
}

type businessCheck struct {
	name string
	eval func(f *dto.ExtractedFundamentals) (bool, error)
	msg  string
}

var businessChecks = []businessCheck{
	{
		name: "total_assets",
		eval: func(f *dto.ExtractedFundamentals) (bool, error) {
			if f.TotalAssets == nil {
				return false, nil
			}
			return *f.TotalAssets > 0, nil
		},
		msg: "total assets should be positive",
	},
	{
		name: "eps_history",
		eval: func(f *dto.ExtractedFundamentals) (bool, error) {
			return len(f.EPSHistory) >= 1, nil
		},
		msg: "need at least 1 quarter of EPS data",
	},
}

// IsAcceptable returns whether the record passes the gate, with a reason when
// it does not. A check that errors during evaluation is skipped rather than
// failing the whole record; a check that evaluates to false rejects it.
func (g *QualityGate) IsAcceptable(f *dto.ExtractedFundamentals) (bool, string) {
	populated := f.PopulatedFieldCount()
	if populated < g.minPopulatedFields {
		reason := fmt.Sprintf("insufficient data quality: only %d valid fields (minimum %d)", populated, g.minPopulatedFields)
		g.log.Warn("Quality gate rejection",
			logger.StringField("ticker", f.Ticker),
			logger.StringField("reason", reason),
		)
		return false, reason
	}

	for _, check := range businessChecks {
		ok, err := check.eval(f)
		if err != nil {
			g.log.Warn("Quality check evaluation error, skipping check",
				logger.StringField("ticker", f.Ticker),
				logger.StringField("check", check.name),
				logger.ErrorField(err),
			)
			continue
		}
		if !ok {
			g.log.Warn("Quality gate rejection",
				logger.StringField("ticker", f.Ticker),
				logger.StringField("reason", check.msg),
			)
			return false, check.msg
		}
	}

	return true, ""
}
