package profile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"riskcore/pkg/common"
)

// Parse turns a whitespace-separated list of key=value assignments into a
// Profile, e.g.:
//
//	"category=beta-blocker dosage=high age=90 bp=high freq=3"
//
// Unset keys keep the Default() value. Enumerated fields accept either the
// symbolic name or the raw index.
func Parse(s string) (Profile, error) {
	p := Default()
	s = strings.TrimSpace(s)
	if s == "" {
		return p, errors.New("profile: empty input")
	}

	for _, tok := range strings.Fields(s) {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			return p, fmt.Errorf("profile: syntax: expected key=value, got %q", tok)
		}
		key = strings.ToLower(key)
		val = strings.ToLower(val)

		var err error
		switch key {
		case "category", "drug":
			p.Category, err = parseEnum(val, categoryNames[:])
		case "dosage", "dose":
			p.Dosage, err = parseEnum(val, dosageNames[:])
		case "age":
			p.Age, err = strconv.ParseFloat(val, 64)
		case "weight":
			p.Weight, err = strconv.ParseFloat(val, 64)
		case "sex":
			p.Sex, err = parseEnum(val, sexNames[:])
		case "bp", "bloodpressure":
			p.BloodPressure, err = parseEnum(val, bpNames[:])
		case "freq", "frequency":
			p.Frequency, err = strconv.Atoi(val)
		case "lifestyle":
			p.Lifestyle, err = strconv.Atoi(val)
		default:
			return p, fmt.Errorf("profile: unknown field %q", key)
		}
		if err != nil {
			return p, fmt.Errorf("profile: field %q: %v", key, err)
		}
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

var categoryNames = [common.NumCategories]string{
	"painkiller", "antibiotic", "antihistamine", "antidepressant", "beta-blocker", "statin",
}

var dosageNames = [3]string{"low", "medium", "high"}

var sexNames = [3]string{"male", "female", "other"}

var bpNames = [3]string{"normal", "elevated", "high"}

// CategoryName returns the symbolic name for a category index.
func CategoryName(idx int) string {
	if idx < 0 || idx >= common.NumCategories {
		return "unknown"
	}
	return categoryNames[idx]
}

func parseEnum(val string, names []string) (int, error) {
	for i, name := range names {
		if val == name {
			return i, nil
		}
	}
	// fall back to a raw index
	idx, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("expected one of %s or an index", strings.Join(names, "|"))
	}
	return idx, nil
}
