package classifier

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgov/grievance-service/internal/domain"
)

func TestParseDepartment(t *testing.T) {
	cases := []struct {
		label string
		want  domain.Department
		ok    bool
	}{
		{"Water Supply", domain.DepartmentWaterSupply, true},
		{"WATER_SUPPLY", domain.DepartmentWaterSupply, true},
		{"roads & transport", domain.DepartmentRoadsTransport, true},
		{"Roads and Transport", "", false},
		{"Sanitation & Drainage", domain.DepartmentSanitationDrainage, true},
		{" sanitation-drainage ", domain.DepartmentSanitationDrainage, true},
		{"Ministry of Magic", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			dept, ok := ParseDepartment(tc.label)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, dept)
			}
		})
	}
}

func TestParseResult(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		result, err := parseResult(`{"department":"Waste Management","priority":4,"suggested_action":"Dispatch a collection truck."}`, "gemini-test")
		require.NoError(t, err)
		assert.Equal(t, domain.DepartmentWasteManagement, result.Department)
		assert.Equal(t, 4, result.Priority)
		assert.Equal(t, "Dispatch a collection truck.", result.SuggestedAction)
		assert.Equal(t, "gemini-test", result.Model)
	})

	t.Run("fenced json", func(t *testing.T) {
		payload := "```json\n{\"department\":\"Street Lighting\",\"priority\":2,\"suggested_action\":\"Replace bulb.\"}\n```"
		result, err := parseResult(payload, "gemini-test")
		require.NoError(t, err)
		assert.Equal(t, domain.DepartmentStreetLighting, result.Department)
	})

	t.Run("unknown department", func(t *testing.T) {
		_, err := parseResult(`{"department":"Weather Control","priority":3}`, "gemini-test")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown department")
	})

	t.Run("priority out of range", func(t *testing.T) {
		_, err := parseResult(`{"department":"Water Supply","priority":9}`, "gemini-test")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("not json", func(t *testing.T) {
		_, err := parseResult("the pipe is broken", "gemini-test")
		require.Error(t, err)
	})
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(Input{Description: "Overflowing bins near the market", LocationWard: "Kothrud"})
	assert.Contains(t, prompt, "Ward: Kothrud")
	assert.Contains(t, prompt, "Overflowing bins near the market")
	for _, dept := range domain.AllDepartments {
		assert.Contains(t, prompt, dept.DisplayName())
	}
	// JSON contract must be stated exactly once.
	assert.Equal(t, 1, strings.Count(prompt, "suggested_action"))
}

func TestKeywordClassifier(t *testing.T) {
	k := NewKeywordClassifier()

	cases := []struct {
		name     string
		text     string
		dept     domain.Department
		priority int
	}{
		{"streetlight beats generic road", "The street light near the road junction is dead", domain.DepartmentStreetLighting, 2},
		{"water leak", "There is a water leak flooding the lane", domain.DepartmentWaterSupply, 4},
		{"garbage", "Garbage has not been collected for a week", domain.DepartmentWasteManagement, 2},
		{"pothole urgent", "A huge pothole caused an accident yesterday", domain.DepartmentRoadsTransport, 4},
		{"footpath stall beats footpath", "A footpath stall has blocked the pedestrian way", domain.DepartmentEncroachment, 2},
		{"bare footpath stays roads", "The footpath outside my house is broken", domain.DepartmentRoadsTransport, 2},
		{"unmatched", "Something vague is wrong in my area", domain.DepartmentPublicHealth, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := k.Classify(context.Background(), Input{Description: tc.text})
			require.NoError(t, err)
			assert.Equal(t, tc.dept, result.Department)
			assert.Equal(t, tc.priority, result.Priority)
			assert.Equal(t, KeywordModel, result.Model)
			assert.True(t, domain.IsValidPriority(result.Priority))
		})
	}
}
