package factory

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// RATES FILE - Statutory tables that change by decree, not by release
// =============================================================================
//
//   legal_deductions:
//     pension: "15"               # percent
//     labor_risk_fund: "0.1"
//     health_insurance: "3"
//     national_health_fund: "1.5"
//   tax_brackets:                 # percent rates, upper omitted for the top bracket
//     - {lower: "0",      upper: "119315", rate: "0"}
//     - {lower: "119315", upper: "170450", rate: "10"}
//     - {lower: "170450", upper: "298287", rate: "15"}
//     - {lower: "298287",                  rate: "20"}
//   solver:
//     max_iterations: 10
//     tolerance: "1"
//     correction_factor: "0.804"
//
// Any section left out keeps the statutory default.

type RatesFile struct {
	LegalDeductions *LegalRatesYAML `json:"legal_deductions,omitempty" yaml:"legal_deductions,omitempty"`
	TaxBrackets     []BracketYAML   `json:"tax_brackets,omitempty" yaml:"tax_brackets,omitempty"`
	Solver          *SolverYAML     `json:"solver,omitempty" yaml:"solver,omitempty"`
}

type LegalRatesYAML struct {
	Pension            string `json:"pension" yaml:"pension"`
	LaborRiskFund      string `json:"labor_risk_fund" yaml:"labor_risk_fund"`
	HealthInsurance    string `json:"health_insurance" yaml:"health_insurance"`
	NationalHealthFund string `json:"national_health_fund" yaml:"national_health_fund"`
}

type BracketYAML struct {
	Lower string `json:"lower" yaml:"lower"`
	Upper string `json:"upper,omitempty" yaml:"upper,omitempty"`
	Rate  string `json:"rate" yaml:"rate"`
}

type SolverYAML struct {
	MaxIterations    int    `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	Tolerance        string `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	CorrectionFactor string `json:"correction_factor,omitempty" yaml:"correction_factor,omitempty"`
}

// LoadRates reads a rates file. An empty path yields the default engine.
func LoadRates(path string) (payroll.Engine, error) {
	if path == "" {
		return payroll.NewEngine(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return payroll.Engine{}, fmt.Errorf("failed to read rates file: %w", err)
	}
	return ParseRates(data)
}

// ParseRates builds and validates an engine from YAML.
func ParseRates(data []byte) (payroll.Engine, error) {
	var rf RatesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return payroll.Engine{}, fmt.Errorf("%w: %v", ErrInvalidRates, err)
	}
	engine, err := rf.Engine()
	if err != nil {
		return payroll.Engine{}, err
	}
	if err := engine.Validate(); err != nil {
		return payroll.Engine{}, fmt.Errorf("%w: %w", ErrInvalidRates, err)
	}
	return engine, nil
}

// Engine converts the file onto the default engine.
func (rf RatesFile) Engine() (payroll.Engine, error) {
	engine := payroll.NewEngine()

	if lr := rf.LegalDeductions; lr != nil {
		var rates payroll.DeductionRates
		var err error
		if rates.Pension, err = parsePercent("legal_deductions.pension", lr.Pension); err != nil {
			return payroll.Engine{}, err
		}
		if rates.LaborRiskFund, err = parsePercent("legal_deductions.labor_risk_fund", lr.LaborRiskFund); err != nil {
			return payroll.Engine{}, err
		}
		if rates.HealthInsurance, err = parsePercent("legal_deductions.health_insurance", lr.HealthInsurance); err != nil {
			return payroll.Engine{}, err
		}
		if rates.NationalHealthFund, err = parsePercent("legal_deductions.national_health_fund", lr.NationalHealthFund); err != nil {
			return payroll.Engine{}, err
		}
		engine.Rates = rates
	}

	if len(rf.TaxBrackets) > 0 {
		brackets := make([]payroll.Bracket, 0, len(rf.TaxBrackets))
		for i, by := range rf.TaxBrackets {
			field := fmt.Sprintf("tax_brackets[%d]", i)
			lower, err := parseAmount(field+".lower", by.Lower)
			if err != nil {
				return payroll.Engine{}, err
			}
			rate, err := parsePercent(field+".rate", by.Rate)
			if err != nil {
				return payroll.Engine{}, err
			}
			b := payroll.Bracket{Lower: lower, Rate: rate}
			if by.Upper != "" {
				upper, err := parseAmount(field+".upper", by.Upper)
				if err != nil {
					return payroll.Engine{}, err
				}
				b.Upper = &upper
			}
			brackets = append(brackets, b)
		}
		engine.Schedule = payroll.TaxSchedule{Brackets: brackets}
	}

	if s := rf.Solver; s != nil {
		if s.MaxIterations != 0 {
			engine.Solver.MaxIterations = s.MaxIterations
		}
		if s.Tolerance != "" {
			v, err := parseAmount("solver.tolerance", s.Tolerance)
			if err != nil {
				return payroll.Engine{}, err
			}
			engine.Solver.Tolerance = v
		}
		if s.CorrectionFactor != "" {
			v, err := parseAmount("solver.correction_factor", s.CorrectionFactor)
			if err != nil {
				return payroll.Engine{}, err
			}
			engine.Solver.CorrectionFactor = v
		}
	}

	return engine, nil
}

// RatesFromEngine is the inverse of RatesFile.Engine.
func RatesFromEngine(e payroll.Engine) RatesFile {
	pct := func(d decimal.Decimal) string { return d.Mul(decimal.NewFromInt(100)).String() }

	rf := RatesFile{
		LegalDeductions: &LegalRatesYAML{
			Pension:            pct(e.Rates.Pension),
			LaborRiskFund:      pct(e.Rates.LaborRiskFund),
			HealthInsurance:    pct(e.Rates.HealthInsurance),
			NationalHealthFund: pct(e.Rates.NationalHealthFund),
		},
		Solver: &SolverYAML{
			MaxIterations:    e.Solver.MaxIterations,
			Tolerance:        e.Solver.Tolerance.String(),
			CorrectionFactor: e.Solver.CorrectionFactor.String(),
		},
	}
	for _, b := range e.Schedule.Brackets {
		by := BracketYAML{Lower: b.Lower.String(), Rate: pct(b.Rate)}
		if b.Upper != nil {
			by.Upper = b.Upper.String()
		}
		rf.TaxBrackets = append(rf.TaxBrackets, by)
	}
	return rf
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %q is not a number", ErrInvalidRates, field, s)
	}
	return d, nil
}

func parsePercent(field, s string) (decimal.Decimal, error) {
	d, err := parseAmount(field, s)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Div(decimal.NewFromInt(100)), nil
}
