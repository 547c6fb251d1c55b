package rule

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleRuleFile = `
rules:
  - id: validate-user-input
    pattern: "regex:.*"
    priority: 20
    conditions:
      required_context_keys: [request.body]
    actions:
      - type: sanitize
        params: {reason: "Input requires sanitization"}
  - id: admin-access
    pattern: "prefix:/admin"
    priority: 10
    depends_on: [validate-user-input]
    conditions:
      required_context_keys: [user.role]
      matches:
        - {key: user.role, op: ne, value: admin}
    actions:
      - type: deny
        params: {reason: "Unauthorized access"}
`

func writeRuleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write rule file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeRuleFile(t, sampleRuleFile)

	rules, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("Expected 2 rules, got %d", len(rules))
	}

	admin := rules[1]
	if admin.ID != "admin-access" {
		t.Errorf("Expected id admin-access, got %q", admin.ID)
	}
	if admin.Pattern != "prefix:/admin" {
		t.Errorf("Expected prefix pattern, got %q", admin.Pattern)
	}
	if len(admin.DependsOn) != 1 || admin.DependsOn[0] != "validate-user-input" {
		t.Errorf("Expected dependency on validate-user-input, got %v", admin.DependsOn)
	}
	if len(admin.Conditions.Matches) != 1 {
		t.Fatalf("Expected 1 match condition, got %d", len(admin.Conditions.Matches))
	}
	m := admin.Conditions.Matches[0]
	if m.Key != "user.role" || m.Op != OpNotEqual || m.Value != "admin" {
		t.Errorf("Unexpected match condition: %+v", m)
	}
	if admin.Actions[0].Reason() != "Unauthorized access" {
		t.Errorf("Expected deny reason, got %q", admin.Actions[0].Reason())
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadFileMalformed(t *testing.T) {
	path := writeRuleFile(t, "rules: [not: valid: yaml")
	if _, err := LoadFile(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestApplyFile(t *testing.T) {
	path := writeRuleFile(t, sampleRuleFile)
	s := NewStore()

	if err := ApplyFile(s, path); err != nil {
		t.Fatalf("ApplyFile failed: %v", err)
	}

	got := orderedIDs(s.ActiveOrdered())
	want := []string{"validate-user-input", "admin-access"}
	if !equalIDs(got, want) {
		t.Errorf("Expected order %v, got %v", want, got)
	}
}

func TestApplyFileKeepsStoreOnError(t *testing.T) {
	s := NewStore()
	if err := s.Register(blockRule("existing", 1)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	bad := writeRuleFile(t, `
rules:
  - id: orphan
    depends_on: [missing]
    actions:
      - type: log
`)
	if err := ApplyFile(s, bad); err == nil {
		t.Fatal("Expected ApplyFile to reject rule set with unknown dependency")
	}

	if _, err := s.Get("existing"); err != nil {
		t.Error("Expected previous rule set to survive a rejected ApplyFile")
	}
}

func TestSaveFileRoundTrip(t *testing.T) {
	src := writeRuleFile(t, sampleRuleFile)
	s := NewStore()
	if err := ApplyFile(s, src); err != nil {
		t.Fatalf("ApplyFile failed: %v", err)
	}
	if err := s.Disable("validate-user-input"); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "saved.yaml")
	if err := SaveFile(s, dst); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	reloaded, err := LoadFile(dst)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(reloaded) != 2 {
		t.Fatalf("Expected 2 rules after round trip, got %d", len(reloaded))
	}
	byID := make(map[string]*Rule)
	for _, r := range reloaded {
		byID[r.ID] = r
	}
	if byID["validate-user-input"].Status != StatusDisabled {
		t.Error("Expected disabled status to survive the round trip")
	}
	if byID["admin-access"].Status != StatusActive {
		t.Error("Expected active status to survive the round trip")
	}
}
