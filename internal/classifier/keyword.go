package classifier

import (
	"context"
	"strings"

	"github.com/civicgov/grievance-service/internal/domain"
)

// KeywordModel identifies fallback results in stored records.
const KeywordModel = "keyword-fallback"

// keywordRules maps lowercase cue words to departments; first match wins,
// so rules are ordered from specific to generic.
var keywordRules = []struct {
	cues []string
	dept domain.Department
}{
	{[]string{"street light", "streetlight", "lamp post", "lamppost"}, domain.DepartmentStreetLighting},
	{[]string{"drain", "drainage", "sewer", "sewage", "manhole"}, domain.DepartmentSanitationDrainage},
	{[]string{"water supply", "water pipe", "pipeline", "tap water", "no water", "water leak"}, domain.DepartmentWaterSupply},
	{[]string{"garbage", "trash", "waste", "bins", "dump"}, domain.DepartmentWasteManagement},
	// Ahead of Roads so "footpath stall" is not swallowed by the bare
	// "footpath" cue.
	{[]string{"encroach", "hawker", "footpath stall", "illegal occupation"}, domain.DepartmentEncroachment},
	{[]string{"pothole", "road", "footpath", "traffic", "signal", "bus stop"}, domain.DepartmentRoadsTransport},
	{[]string{"power cut", "electric", "transformer", "wire", "voltage"}, domain.DepartmentElectricity},
	{[]string{"mosquito", "dengue", "hospital", "clinic", "epidemic", "fogging"}, domain.DepartmentPublicHealth},
	{[]string{"property tax", "tax bill", "assessment"}, domain.DepartmentPropertyTax},
	{[]string{"park", "garden", "playground", "tree"}, domain.DepartmentParksRecreation},
	{[]string{"construction permit", "building plan", "illegal construction", "unauthorized floor"}, domain.DepartmentBuildingPermissions},
}

// urgencyCues raise the fallback priority above the baseline.
var urgencyCues = []string{"danger", "emergency", "accident", "injur", "collapse", "fire", "flood", "urgent", "death"}

// KeywordClassifier is the deterministic fallback used when the hosted model
// is unavailable. It never fails.
type KeywordClassifier struct{}

// NewKeywordClassifier builds the fallback classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify matches cue words against the description. Unmatched text routes
// to Public Health, the department that triages unclassified complaints.
func (k *KeywordClassifier) Classify(_ context.Context, input Input) (*Result, error) {
	text := strings.ToLower(input.Description)

	dept := domain.DepartmentPublicHealth
	matched := false
	for _, rule := range keywordRules {
		for _, cue := range rule.cues {
			if strings.Contains(text, cue) {
				dept = rule.dept
				matched = true
				break
			}
		}
		if matched {
			break
		}
	}

	priority := 2
	if !matched {
		priority = 3
	}
	for _, cue := range urgencyCues {
		if strings.Contains(text, cue) {
			priority = 4
			break
		}
	}

	return &Result{
		Department:      dept,
		Priority:        priority,
		SuggestedAction: "Review and confirm routing; record was classified without the hosted model.",
		Model:           KeywordModel,
	}, nil
}
