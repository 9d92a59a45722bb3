package shared

import "testing"

func TestGenerateState(t *testing.T) {
	first, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	if len(first) != 32 {
		t.Errorf("GenerateState() length = %d, want 32", len(first))
	}

	second, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	if first == second {
		t.Error("GenerateState() should return unique tokens")
	}
}

func TestMarshalJSON(t *testing.T) {
	data := map[string]float64{"progress": 42.5}

	compact, err := MarshalJSON(data, false)
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(compact) != `{"progress":42.5}` {
		t.Errorf("MarshalJSON() = %s", compact)
	}

	pretty, err := MarshalJSON(data, true)
	if err != nil {
		t.Fatalf("MarshalJSON() pretty error = %v", err)
	}
	if len(pretty) <= len(compact) {
		t.Error("pretty output should be longer than compact output")
	}
}

func TestGenerateID(t *testing.T) {
	if GenerateID() == GenerateID() {
		t.Error("GenerateID() should return unique IDs")
	}
}
