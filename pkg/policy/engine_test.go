package policy

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/keystonectl/keystonectl/pkg/catalog"
)

func validEntry(name string) *catalog.DesiredState {
	return &catalog.DesiredState{
		Name:        name,
		Type:        "identity",
		PublicURL:   "https://identity.example.org:5000/v2.0",
		InternalURL: "https://identity.example.org:5000/v2.0",
		AdminURL:    "https://identity.example.org:35357/v2.0",
		Region:      "RegionOne",
		State:       catalog.StatePresent,
	}
}

func TestNewEngine(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	if eng == nil {
		t.Fatal("Engine is nil")
	}

	// Check that built-in policies are loaded
	policies := eng.ListPolicies()
	if len(policies) == 0 {
		t.Fatal("No built-in policies loaded")
	}

	expectedPolicies := []string{
		"service-naming",
		"endpoint-url-scheme",
		"no-absent-entries",
	}

	for _, expected := range expectedPolicies {
		found := false
		for _, p := range policies {
			if p.Name == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected built-in policy not found: %s", expected)
		}
	}
}

func TestEvaluateEntry_NamingPolicy(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	tests := []struct {
		name            string
		entryName       string
		expectAllowed   bool
		expectViolation bool
	}{
		{
			name:            "valid service name",
			entryName:       "keystone",
			expectAllowed:   true,
			expectViolation: false,
		},
		{
			name:            "uppercase in name",
			entryName:       "Keystone",
			expectAllowed:   false,
			expectViolation: true,
		},
		{
			name:            "name with underscores",
			entryName:       "object_store",
			expectAllowed:   false,
			expectViolation: true,
		},
		{
			name:            "name starting with hyphen",
			entryName:       "-keystone",
			expectAllowed:   false,
			expectViolation: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := validEntry(tt.entryName)
			result, err := eng.EvaluateEntry(context.Background(), entry)
			if err != nil {
				t.Fatalf("Evaluation failed: %v", err)
			}

			if result.Allowed != tt.expectAllowed {
				t.Errorf("Expected allowed=%v, got %v. Violations: %+v",
					tt.expectAllowed, result.Allowed, result.Violations)
			}

			hasViolation := len(result.Violations) > 0
			if hasViolation != tt.expectViolation {
				t.Errorf("Expected violation=%v, got %v violations: %+v",
					tt.expectViolation, hasViolation, result.Violations)
			}
		})
	}
}

func TestEvaluateEntry_URLScheme(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	t.Run("https URLs pass clean", func(t *testing.T) {
		result, err := eng.EvaluateEntry(context.Background(), validEntry("keystone"))
		if err != nil {
			t.Fatalf("Evaluation failed: %v", err)
		}
		if !result.Allowed {
			t.Errorf("Expected allowed, got violations: %+v", result.Violations)
		}
		if len(result.Warnings) != 0 {
			t.Errorf("Expected no warnings, got: %+v", result.Warnings)
		}
	})

	t.Run("plain-http public URL warns but allows", func(t *testing.T) {
		entry := validEntry("keystone")
		entry.PublicURL = "http://identity.example.org:5000/v2.0"
		result, err := eng.EvaluateEntry(context.Background(), entry)
		if err != nil {
			t.Fatalf("Evaluation failed: %v", err)
		}
		if !result.Allowed {
			t.Errorf("Plain http should only warn. Violations: %+v", result.Violations)
		}

		found := false
		for _, w := range result.Warnings {
			if w.Policy == "endpoint-url-scheme" {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected a url-scheme warning, got: %+v", result.Warnings)
		}
	})

	t.Run("non-http scheme blocks", func(t *testing.T) {
		entry := validEntry("keystone")
		entry.AdminURL = "ftp://identity.example.org/v2.0"
		result, err := eng.EvaluateEntry(context.Background(), entry)
		if err != nil {
			t.Fatalf("Evaluation failed: %v", err)
		}
		if result.Allowed {
			t.Error("Expected a blocking violation for ftp admin URL")
		}
	})
}

func TestEvaluateEntry_AbsentState(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	entry := validEntry("keystone")
	entry.State = catalog.StateAbsent

	result, err := eng.EvaluateEntry(context.Background(), entry)
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}

	// Absent entries warn; they do not block
	if !result.Allowed {
		t.Errorf("Absent entry should only warn. Violations: %+v", result.Violations)
	}

	found := false
	for _, w := range result.Warnings {
		if w.Policy == "no-absent-entries" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a no-absent-entries warning, got: %+v", result.Warnings)
	}
}

func TestEvaluateSweep(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	absent := *validEntry("glance")
	absent.State = catalog.StateAbsent

	plan := &SweepPlan{
		ID:      "sweep-1",
		Source:  "catalog.cue",
		Entries: []catalog.DesiredState{*validEntry("keystone"), absent},
	}

	result, err := eng.EvaluateSweep(context.Background(), plan)
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}

	if !result.Allowed {
		t.Errorf("Sweep with absent entry should only warn. Violations: %+v", result.Violations)
	}

	found := false
	for _, w := range result.Warnings {
		if w.Policy == "no-absent-entries" && w.Entry == "glance" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a sweep-level absent warning for glance, got: %+v", result.Warnings)
	}
}

func TestEnableDisablePolicy(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	policyName := "service-naming"

	// Disable the policy
	err = eng.DisablePolicy(policyName)
	if err != nil {
		t.Fatalf("Failed to disable policy: %v", err)
	}

	policy, err := eng.GetPolicy(policyName)
	if err != nil {
		t.Fatalf("Failed to get policy: %v", err)
	}

	if policy.Enabled {
		t.Error("Policy should be disabled")
	}

	// Entry with an invalid name
	entry := validEntry("INVALID_NAME")

	// Evaluate - should pass because policy is disabled
	result, err := eng.EvaluateEntry(context.Background(), entry)
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}

	for _, v := range result.Violations {
		if v.Policy == policyName {
			t.Error("Disabled policy should not generate violations")
		}
	}

	// Re-enable the policy
	err = eng.EnablePolicy(policyName)
	if err != nil {
		t.Fatalf("Failed to enable policy: %v", err)
	}

	policy, err = eng.GetPolicy(policyName)
	if err != nil {
		t.Fatalf("Failed to get policy: %v", err)
	}

	if !policy.Enabled {
		t.Error("Policy should be enabled")
	}
}

func TestReplacePolicies(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	initialCount := len(eng.ListPolicies())

	custom := Policy{
		Name:     "custom-regions",
		Severity: SeverityError,
		Enabled:  true,
		Rego: `package custom.policies.regions

import rego.v1

deny contains violation if {
	input.entry
	input.entry.region == "RegionZero"
	violation := {
		"message": "RegionZero is retired",
		"severity": "error",
		"entry": input.entry.name,
	}
}`,
	}

	if err := eng.ReplacePolicies(context.Background(), []Policy{custom}); err != nil {
		t.Fatalf("Failed to replace policies: %v", err)
	}

	if got := len(eng.ListPolicies()); got != initialCount+1 {
		t.Errorf("Expected %d policies after replace, got %d", initialCount+1, got)
	}

	entry := validEntry("keystone")
	entry.Region = "RegionZero"

	result, err := eng.EvaluateEntry(context.Background(), entry)
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}

	if result.Allowed {
		t.Error("Expected custom policy to block RegionZero entry")
	}
}

func TestListPolicies(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	policies := eng.ListPolicies()

	if len(policies) == 0 {
		t.Fatal("No policies returned")
	}

	// Check that all policies have required fields
	for _, p := range policies {
		if p.Name == "" {
			t.Error("Policy has empty name")
		}
		if p.Rego == "" {
			t.Error("Policy has empty Rego code")
		}
		if p.CreatedAt.IsZero() {
			t.Error("Policy has zero CreatedAt")
		}
	}
}

func TestEvaluateCatalog(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	entries := []catalog.DesiredState{
		*validEntry("keystone"),
		*validEntry("INVALID-NAME"), // Uppercase - should violate naming policy
	}

	result, err := eng.EvaluateCatalog(context.Background(), entries)
	if err != nil {
		t.Fatalf("Evaluation failed: %v", err)
	}

	if result.Allowed {
		t.Error("Expected catalog to be rejected due to naming violation")
	}

	if len(result.Violations) == 0 {
		t.Error("Expected at least one violation")
	}

	foundNamingViolation := false
	for _, v := range result.Violations {
		if v.Policy == "service-naming" {
			foundNamingViolation = true
			break
		}
	}

	if !foundNamingViolation {
		t.Error("Expected a naming policy violation")
	}
}

func TestSummarize(t *testing.T) {
	r := &Result{
		EvaluatedPolicies: []string{"a", "b"},
		Violations: []Violation{
			{Policy: "a", Severity: SeverityError},
		},
		Warnings: []Violation{
			{Policy: "b", Severity: SeverityWarning},
			{Policy: "b", Severity: SeverityWarning},
		},
	}

	s := Summarize(r, nil)

	if s.TotalPolicies != 2 {
		t.Errorf("expected 2 policies, got %d", s.TotalPolicies)
	}
	if s.TotalViolations != 1 {
		t.Errorf("expected 1 violation, got %d", s.TotalViolations)
	}
	if s.TotalWarnings != 2 {
		t.Errorf("expected 2 warnings, got %d", s.TotalWarnings)
	}
	if s.ViolationsBySeverity[SeverityWarning] != 2 {
		t.Errorf("unexpected severity breakdown: %+v", s.ViolationsBySeverity)
	}
}
