package tool

import "testing"

func TestPort_ValidateAgainst_NoSchemaPasses(t *testing.T) {
	p := Port{Name: "input"}
	if err := p.ValidateAgainst("anything"); err != nil {
		t.Fatalf("expected no error without a schema, got %v", err)
	}
}

func TestPort_ValidateAgainst_MatchesSchema(t *testing.T) {
	p := Port{
		Name: "count",
		Schema: &PortSchema{
			JSONSchema: map[string]any{"type": "integer", "minimum": 0},
		},
	}
	if err := p.ValidateAgainst(float64(3)); err != nil {
		t.Fatalf("expected valid integer to pass, got %v", err)
	}
}

func TestPort_ValidateAgainst_RejectsMismatch(t *testing.T) {
	p := Port{
		Name: "count",
		Schema: &PortSchema{
			JSONSchema: map[string]any{"type": "integer", "minimum": 0},
		},
	}
	if err := p.ValidateAgainst("not a number"); err == nil {
		t.Fatal("expected schema mismatch to fail validation")
	}
}
