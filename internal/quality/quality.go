// Package quality runs declarative data quality checks on the
// transformed batch before it reaches the sink. Check definitions live
// in a YAML file so thresholds can change without a rebuild; missing
// file falls back to built-in defaults.
package quality

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/model"
)

// QualityError aborts the run before load when checks fail and the gate
// is not configured warn-only.
type QualityError struct {
	Failed []string
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("data quality checks failed: %v", e.Failed)
}

// Checks is the declarative check definition for the transformed batch.
type Checks struct {
	Facts struct {
		MinRows          int  `yaml:"min_rows"`
		MinYear          int  `yaml:"min_year"`
		MaxYear          int  `yaml:"max_year"`
		NonNegativeValue bool `yaml:"non_negative_value"`
		UniqueKey        bool `yaml:"unique_key"`
	} `yaml:"facts"`
	Countries struct {
		MinRows    int  `yaml:"min_rows"`
		UniqueCode bool `yaml:"unique_code"`
	} `yaml:"countries"`
}

// DefaultChecks mirrors the checked-in quality.yaml.
func DefaultChecks() Checks {
	var c Checks
	c.Facts.MinRows = 1
	c.Facts.MinYear = 1960
	c.Facts.MaxYear = 2030
	c.Facts.NonNegativeValue = true
	c.Facts.UniqueKey = true
	c.Countries.MinRows = 1
	c.Countries.UniqueCode = true
	return c
}

// LoadChecks reads check definitions from a YAML file. An empty path or
// missing file yields the defaults.
func LoadChecks(path string) (Checks, error) {
	if path == "" {
		return DefaultChecks(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("quality checks file not found, using defaults", zap.String("path", path))
			return DefaultChecks(), nil
		}
		return Checks{}, eris.Wrapf(err, "quality: read %s", path)
	}
	checks := DefaultChecks()
	if err := yaml.Unmarshal(data, &checks); err != nil {
		return Checks{}, eris.Wrapf(err, "quality: parse %s", path)
	}
	return checks, nil
}

// Result summarizes one gate evaluation.
type Result struct {
	Passed       bool     `json:"passed"`
	ChecksRun    int      `json:"checks_run"`
	ChecksPassed int      `json:"checks_passed"`
	ChecksFailed int      `json:"checks_failed"`
	FailedChecks []string `json:"failed_checks,omitempty"`
}

// Gate evaluates checks against a transformed batch.
type Gate struct {
	checks Checks
	// WarnOnly downgrades failures to warnings: the result still records
	// them but Err returns nil.
	WarnOnly bool
}

// NewGate creates a Gate with the given checks.
func NewGate(checks Checks, warnOnly bool) *Gate {
	return &Gate{checks: checks, WarnOnly: warnOnly}
}

// Evaluate runs every check and returns the aggregate result.
func (g *Gate) Evaluate(countries []model.Country, facts []model.FootprintRecord) Result {
	var res Result
	check := func(name string, ok bool) {
		res.ChecksRun++
		if ok {
			res.ChecksPassed++
			return
		}
		res.ChecksFailed++
		res.FailedChecks = append(res.FailedChecks, name)
	}

	c := g.checks

	check("facts.min_rows", len(facts) >= c.Facts.MinRows)
	check("countries.min_rows", len(countries) >= c.Countries.MinRows)

	yearsOK := true
	valuesOK := true
	keysOK := true
	seenKeys := make(map[model.FactKey]bool, len(facts))
	for _, f := range facts {
		if f.Year < c.Facts.MinYear || f.Year > c.Facts.MaxYear {
			yearsOK = false
		}
		if c.Facts.NonNegativeValue && f.Value != nil && *f.Value < 0 {
			valuesOK = false
		}
		if c.Facts.UniqueKey {
			if seenKeys[f.Key()] {
				keysOK = false
			}
			seenKeys[f.Key()] = true
		}
	}
	check("facts.year_range", yearsOK)
	if c.Facts.NonNegativeValue {
		check("facts.non_negative_value", valuesOK)
	}
	if c.Facts.UniqueKey {
		check("facts.unique_key", keysOK)
	}

	if c.Countries.UniqueCode {
		codesOK := true
		seenCodes := make(map[int]bool, len(countries))
		for _, co := range countries {
			if seenCodes[co.CountryCode] {
				codesOK = false
			}
			seenCodes[co.CountryCode] = true
		}
		check("countries.unique_code", codesOK)
	}

	res.Passed = res.ChecksFailed == 0

	if !res.Passed {
		zap.L().Warn("data quality checks failed",
			zap.Strings("failed", res.FailedChecks),
			zap.Bool("warn_only", g.WarnOnly),
		)
	}
	return res
}

// Err converts a failed result into a QualityError, respecting WarnOnly.
func (g *Gate) Err(res Result) error {
	if res.Passed || g.WarnOnly {
		return nil
	}
	return eris.Wrap(&QualityError{Failed: res.FailedChecks}, "quality")
}
