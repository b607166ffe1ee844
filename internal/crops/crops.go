// Package crops holds the agronomic reference data the recommendation engine
// is tuned with.
package crops

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

// DefaultCrop is used when a crop identifier is unknown.
const DefaultCrop = "maize"

var aliases = map[string]string{
	"riz":     "rice",
	"maïs":    "maize",
	"mais":    "maize",
	"corn":    "maize",
	"tomato":  "tomatoes",
	"tomate":  "tomatoes",
	"tomates": "tomatoes",
}

var builtin = map[string]types.CropProfile{
	"rice": {
		Crop:               "rice",
		Humidity:           types.Range{Min: 60, Max: 80},
		Temperature:        types.Range{Min: 25, Max: 35},
		PH:                 types.Range{Min: 5.5, Max: 6.5},
		WaterRequirementMM: 1200,
		GrowthStages: []types.GrowthStage{
			{Name: "germination", DurationDays: 7, WaterDemand: 30},
			{Name: "vegetative", DurationDays: 30, WaterDemand: 40},
			{Name: "reproductive", DurationDays: 35, WaterDemand: 50},
			{Name: "ripening", DurationDays: 30, WaterDemand: 20},
		},
		DiseaseRules: []types.DiseaseRule{{
			Disease:        "rice blast",
			MinHumidity:    75,
			MinTemperature: 30,
			Title:          "Rice blast risk",
			Message:        "Conditions favour fungal diseases of rice",
			Action:         "Inspect leaves and apply a preventive fungicide if needed",
			Priority:       7,
		}},
	},
	"maize": {
		Crop:               "maize",
		Humidity:           types.Range{Min: 40, Max: 60},
		Temperature:        types.Range{Min: 20, Max: 30},
		PH:                 types.Range{Min: 5.8, Max: 7.0},
		WaterRequirementMM: 500,
		GrowthStages: []types.GrowthStage{
			{Name: "emergence", DurationDays: 10, WaterDemand: 20},
			{Name: "vegetative", DurationDays: 40, WaterDemand: 60},
			{Name: "flowering", DurationDays: 20, WaterDemand: 70},
			{Name: "grain_fill", DurationDays: 30, WaterDemand: 50},
		},
	},
	"tomatoes": {
		Crop:               "tomatoes",
		Humidity:           types.Range{Min: 50, Max: 70},
		Temperature:        types.Range{Min: 18, Max: 28},
		PH:                 types.Range{Min: 6.0, Max: 6.8},
		WaterRequirementMM: 400,
		GrowthStages: []types.GrowthStage{
			{Name: "seedling", DurationDays: 20, WaterDemand: 30},
			{Name: "flowering", DurationDays: 30, WaterDemand: 50},
			{Name: "fruiting", DurationDays: 40, WaterDemand: 60},
		},
		DiseaseRules: []types.DiseaseRule{{
			Disease:        "late blight",
			MinHumidity:    70,
			MinTemperature: 25,
			Title:          "Late blight risk",
			Message:        "Conditions are ideal for late blight to develop",
			Action:         "Apply a preventive copper-based treatment",
			Priority:       8,
		}},
	},
}

// KnowledgeBase maps crop identifiers to profiles. It is built once and only
// read afterwards, so it is safe for concurrent use.
type KnowledgeBase struct {
	profiles map[string]types.CropProfile
	fallback string
}

// New returns a knowledge base with the built-in crops.
func New() *KnowledgeBase {
	kb := &KnowledgeBase{
		profiles: make(map[string]types.CropProfile, len(builtin)),
		fallback: DefaultCrop,
	}
	for k, v := range builtin {
		kb.profiles[k] = v
	}
	return kb
}

// LoadFile returns the built-in crops merged with the profiles in a JSON
// file holding an array of crop profiles. Entries in the file replace
// built-in crops with the same identifier.
func LoadFile(path string) (*KnowledgeBase, error) {
	kb := New()
	if path == "" {
		return kb, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read crop profiles: %w", err)
	}

	var profiles []types.CropProfile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("decode crop profiles: %w", err)
	}

	for _, p := range profiles {
		if err := validate(p); err != nil {
			return nil, err
		}
		kb.profiles[normalize(p.Crop)] = p
	}
	return kb, nil
}

func validate(p types.CropProfile) error {
	if strings.TrimSpace(p.Crop) == "" {
		return fmt.Errorf("crop profile without crop identifier")
	}
	for name, r := range map[string]types.Range{
		"humidity":    p.Humidity,
		"temperature": p.Temperature,
		"ph":          p.PH,
	} {
		if r.Min > r.Max {
			return fmt.Errorf("crop '%s': optimal %s min %.2f above max %.2f", p.Crop, name, r.Min, r.Max)
		}
	}
	return nil
}

func normalize(crop string) string {
	c := strings.ToLower(strings.TrimSpace(crop))
	if alias, ok := aliases[c]; ok {
		return alias
	}
	return c
}

// Lookup resolves a crop identifier. Unknown crops resolve to the default
// profile with found=false; the fallback carries no disease rules since
// those are only meaningful for the crop they were written for.
func (kb *KnowledgeBase) Lookup(crop string) (profile types.CropProfile, found bool) {
	if p, ok := kb.profiles[normalize(crop)]; ok {
		return p, true
	}
	p := kb.profiles[kb.fallback]
	p.DiseaseRules = nil
	return p, false
}

// Crops lists the known crop identifiers in alphabetical order.
func (kb *KnowledgeBase) Crops() []string {
	out := make([]string, 0, len(kb.profiles))
	for k := range kb.profiles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Profiles returns every known profile, ordered by crop identifier.
func (kb *KnowledgeBase) Profiles() []types.CropProfile {
	names := kb.Crops()
	out := make([]types.CropProfile, 0, len(names))
	for _, n := range names {
		out = append(out, kb.profiles[n])
	}
	return out
}
