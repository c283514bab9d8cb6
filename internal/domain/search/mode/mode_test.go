package mode

import "testing"

func TestIsValid(t *testing.T) {
	valid := []Sort{Relevance, Recency, CustomBoost}
	for _, m := range valid {
		if !m.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", m)
		}
	}

	invalid := []Sort{"", "newest", "RECENCY", "boost"}
	for _, m := range invalid {
		if m.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", m)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Sort
		ok   bool
	}{
		{"", Relevance, true},
		{"RECENCY", Recency, true},
		{"Custom_Boost", CustomBoost, true},
		{"oldest", "oldest", false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Parse(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDecays(t *testing.T) {
	if Relevance.Decays() {
		t.Error("relevance must not decay")
	}
	if !Recency.Decays() || !CustomBoost.Decays() {
		t.Error("recency and custom_boost decay")
	}
}
