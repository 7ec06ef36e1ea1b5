// Package scoring grades a submitted answer set under negative marking.
//
// Grading is a pure function of the question keys, the answers and the
// elapsed time. It performs no I/O.
package scoring

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Outcome string

const (
	Correct     Outcome = "correct"
	Wrong       Outcome = "wrong"
	Unattempted Outcome = "unattempted"
)

// Item is one gradable question: its id and the correct label.
type Item struct {
	ID           string
	CorrectLabel string
}

type ItemResult struct {
	ID           string
	Given        string
	CorrectLabel string
	Outcome      Outcome
}

// Band maps a minimum percentage to a letter grade.
type Band struct {
	MinPercent int
	Letter     string
}

type Policy struct {
	CorrectMark   decimal.Decimal
	WrongPenalty  decimal.Decimal
	PassPercent   int
	Bands         []Band
	FallbackGrade string
}

type Breakdown struct {
	Correct     string
	Wrong       string
	Unattempted string
	Total       string
}

type Result struct {
	Correct          int
	Wrong            int
	Unattempted      int
	Total            int
	RawScore         decimal.Decimal
	FinalScore       decimal.Decimal
	Percentage       int
	Grade            string
	Passed           bool
	TimeSpentSeconds int
	Breakdown        Breakdown
	Items            []ItemResult
}

func DefaultBands() []Band {
	return []Band{
		{MinPercent: 90, Letter: "A"},
		{MinPercent: 80, Letter: "B"},
		{MinPercent: 70, Letter: "C"},
		{MinPercent: 60, Letter: "D"},
	}
}

func DefaultPolicy() Policy {
	return Policy{
		CorrectMark:   decimal.NewFromInt(1),
		WrongPenalty:  decimal.RequireFromString("0.25"),
		PassPercent:   60,
		Bands:         DefaultBands(),
		FallbackGrade: "F",
	}
}

// Validate checks the policy is usable: positive mark, non-negative penalty,
// pass threshold within 0..100 and strictly descending bands.
func (p Policy) Validate() error {
	if !p.CorrectMark.IsPositive() {
		return fmt.Errorf("correct mark must be positive, got %s", p.CorrectMark)
	}
	if p.WrongPenalty.IsNegative() {
		return fmt.Errorf("wrong penalty must not be negative, got %s", p.WrongPenalty)
	}
	if p.PassPercent < 0 || p.PassPercent > 100 {
		return fmt.Errorf("pass percent must be within 0..100, got %d", p.PassPercent)
	}
	if p.FallbackGrade == "" {
		return fmt.Errorf("fallback grade is required")
	}
	for i, b := range p.Bands {
		if b.Letter == "" {
			return fmt.Errorf("band %d has no letter", i)
		}
		if i > 0 && b.MinPercent >= p.Bands[i-1].MinPercent {
			return fmt.Errorf("bands must be strictly descending: %d after %d", b.MinPercent, p.Bands[i-1].MinPercent)
		}
	}
	return nil
}

// Letter returns the grade for a percentage. It has no bearing on Passed.
func (p Policy) Letter(percent int) string {
	for _, b := range p.Bands {
		if percent >= b.MinPercent {
			return b.Letter
		}
	}
	return p.FallbackGrade
}

func (p Policy) Grade(items []Item, answers map[string]string, timeSpentSeconds int) Result {
	res := Result{
		Total:            len(items),
		TimeSpentSeconds: timeSpentSeconds,
		Items:            make([]ItemResult, 0, len(items)),
	}

	for _, it := range items {
		given := NormalizeAnswer(answers[it.ID])
		ir := ItemResult{ID: it.ID, Given: given, CorrectLabel: it.CorrectLabel}
		switch {
		case given == "":
			ir.Outcome = Unattempted
			res.Unattempted++
		case given == it.CorrectLabel:
			ir.Outcome = Correct
			res.Correct++
		default:
			ir.Outcome = Wrong
			res.Wrong++
		}
		res.Items = append(res.Items, ir)
	}

	earned := p.CorrectMark.Mul(decimal.NewFromInt(int64(res.Correct)))
	lost := p.WrongPenalty.Mul(decimal.NewFromInt(int64(res.Wrong)))
	res.RawScore = earned.Sub(lost)
	res.FinalScore = decimal.Max(res.RawScore, decimal.Zero)

	if res.Total > 0 {
		res.Percentage = int(res.FinalScore.
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(res.Total))).
			Round(0).
			IntPart())
	}
	res.Grade = p.Letter(res.Percentage)
	res.Passed = res.Percentage >= p.PassPercent

	res.Breakdown = Breakdown{
		Correct:     fmt.Sprintf("%d × %s = %s", res.Correct, p.CorrectMark, earned),
		Wrong:       fmt.Sprintf("%d × (-%s) = -%s", res.Wrong, p.WrongPenalty, lost.StringFixed(2)),
		Unattempted: fmt.Sprintf("%d × 0 = 0", res.Unattempted),
		Total:       fmt.Sprintf("Final Score: %s/%d", res.FinalScore.StringFixed(2), res.Total),
	}

	return res
}

// NormalizeAnswer trims and upper-cases a submitted label.
func NormalizeAnswer(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ParseBands reads a table such as "A:90,B:80,C:70,D:60". The result is
// sorted highest threshold first.
func ParseBands(raw string) ([]Band, error) {
	var bands []Band
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		letter, min, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("grade band %q: expected LETTER:MIN", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(min))
		if err != nil {
			return nil, fmt.Errorf("grade band %q: %w", part, err)
		}
		if n < 0 || n > 100 {
			return nil, fmt.Errorf("grade band %q: threshold out of range", part)
		}
		bands = append(bands, Band{MinPercent: n, Letter: strings.TrimSpace(letter)})
	}
	if len(bands) == 0 {
		return nil, fmt.Errorf("no grade bands in %q", raw)
	}
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].MinPercent > bands[j].MinPercent })
	return bands, nil
}
