// Package profile holds the patient/medication form the dashboard collects
// and its encoding into the fixed 8-slot feature vector consumed by the
// model.
package profile

import (
	"fmt"

	"riskcore/pkg/common"
)

// Profile 是一份未编码的患者/用药画像
type Profile struct {
	Category      int     `json:"category" yaml:"category"`
	Dosage        int     `json:"dosage" yaml:"dosage"`
	Age           float64 `json:"age" yaml:"age"`
	Weight        float64 `json:"weight" yaml:"weight"`
	Sex           int     `json:"sex" yaml:"sex"`
	BloodPressure int     `json:"bp" yaml:"bp"`
	Frequency     int     `json:"frequency" yaml:"frequency"`
	Lifestyle     int     `json:"lifestyle" yaml:"lifestyle"`
}

// Default returns a mid-range adult profile; the parser applies overrides on
// top of it so partial forms still encode to a full vector.
func Default() Profile {
	return Profile{
		Category:      common.CategoryPainkiller,
		Dosage:        common.DosageLow,
		Age:           40,
		Weight:        70,
		Sex:           0,
		BloodPressure: common.BPNormal,
		Frequency:     1,
		Lifestyle:     0,
	}
}

// Validate checks every field against its raw domain.
func (p Profile) Validate() error {
	switch {
	case p.Category < 0 || p.Category >= common.NumCategories:
		return fmt.Errorf("profile: category %d out of range [0,%d]", p.Category, common.NumCategories-1)
	case p.Dosage < 0 || p.Dosage > common.DosageHigh:
		return fmt.Errorf("profile: dosage %d out of range [0,2]", p.Dosage)
	case p.Age < 5 || p.Age > 100:
		return fmt.Errorf("profile: age %.1f out of range [5,100]", p.Age)
	case p.Weight < 30 || p.Weight > 150:
		return fmt.Errorf("profile: weight %.1f out of range [30,150]", p.Weight)
	case p.Sex < 0 || p.Sex > 2:
		return fmt.Errorf("profile: sex %d out of range [0,2]", p.Sex)
	case p.BloodPressure < 0 || p.BloodPressure > common.BPHigh:
		return fmt.Errorf("profile: bp %d out of range [0,2]", p.BloodPressure)
	case p.Frequency < 1 || p.Frequency > 10:
		return fmt.Errorf("profile: frequency %d out of range [1,10]", p.Frequency)
	case p.Lifestyle < 0 || p.Lifestyle > 5:
		return fmt.Errorf("profile: lifestyle %d out of range [0,5]", p.Lifestyle)
	}
	return nil
}

// Encode produces the 8-slot vector; age and weight are normalized the same
// way the synthetic corpus stores them.
func (p Profile) Encode() common.FeatureVector {
	return common.FeatureVector{
		float64(p.Category),
		float64(p.Dosage),
		p.Age / 100,
		p.Weight / 150,
		float64(p.Sex),
		float64(p.BloodPressure),
		float64(p.Frequency),
		float64(p.Lifestyle),
	}
}
