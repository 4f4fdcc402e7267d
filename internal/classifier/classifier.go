// Package classifier routes grievance text to a municipal department with a
// 1-5 priority score. The primary implementation calls a hosted Gemini model;
// a deterministic keyword classifier serves as fallback when the model is
// unreachable or returns an unusable answer.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/civicgov/grievance-service/internal/domain"
)

// Input carries the grievance fields relevant to routing.
type Input struct {
	Description  string
	LocationWard string
}

// Result is a validated classification outcome.
type Result struct {
	Department      domain.Department
	Priority        int
	SuggestedAction string
	Model           string
}

// Classifier assigns a department and priority to a grievance.
type Classifier interface {
	Classify(ctx context.Context, input Input) (*Result, error)
}

// rawResult mirrors the JSON shape requested from the model.
type rawResult struct {
	Department      string `json:"department"`
	Priority        int    `json:"priority"`
	SuggestedAction string `json:"suggested_action"`
}

// departmentAliases maps tolerated model spellings to enumerated departments.
var departmentAliases = map[string]domain.Department{}

func init() {
	for _, dept := range domain.AllDepartments {
		departmentAliases[normalizeDepartment(string(dept))] = dept
		departmentAliases[normalizeDepartment(dept.DisplayName())] = dept
	}
}

func normalizeDepartment(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	replacer := strings.NewReplacer("&", " ", "-", " ", "_", " ", "/", " ")
	s = replacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ParseDepartment resolves a model-provided department label.
func ParseDepartment(label string) (domain.Department, bool) {
	dept, ok := departmentAliases[normalizeDepartment(label)]
	return dept, ok
}

// parseResult decodes and validates a model JSON answer.
func parseResult(payload string, model string) (*Result, error) {
	payload = strings.TrimSpace(payload)
	// Models occasionally wrap JSON in a fenced block despite JSON mode.
	payload = strings.TrimPrefix(payload, "```json")
	payload = strings.TrimPrefix(payload, "```")
	payload = strings.TrimSuffix(payload, "```")
	payload = strings.TrimSpace(payload)

	var raw rawResult
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	dept, ok := ParseDepartment(raw.Department)
	if !ok {
		return nil, fmt.Errorf("unknown department %q", raw.Department)
	}
	if !domain.IsValidPriority(raw.Priority) {
		return nil, fmt.Errorf("priority %d out of range", raw.Priority)
	}
	return &Result{
		Department:      dept,
		Priority:        raw.Priority,
		SuggestedAction: strings.TrimSpace(raw.SuggestedAction),
		Model:           model,
	}, nil
}

// buildPrompt renders the routing instruction for the model.
func buildPrompt(input Input) string {
	var sb strings.Builder
	sb.WriteString("You route citizen grievances for a municipal corporation.\n")
	sb.WriteString("Assign exactly one department from this list:\n")
	for _, dept := range domain.AllDepartments {
		fmt.Fprintf(&sb, "- %s\n", dept.DisplayName())
	}
	sb.WriteString("Score priority from 1 (routine) to 5 (public safety emergency).\n")
	sb.WriteString("Respond with JSON only: {\"department\": string, \"priority\": number, \"suggested_action\": string}.\n\n")
	if ward := strings.TrimSpace(input.LocationWard); ward != "" {
		fmt.Fprintf(&sb, "Ward: %s\n", ward)
	}
	fmt.Fprintf(&sb, "Grievance: %s\n", strings.TrimSpace(input.Description))
	return sb.String()
}
