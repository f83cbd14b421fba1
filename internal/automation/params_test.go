package automation

import "testing"

func TestParamsAccessors(t *testing.T) {
	p := Params{
		"name":      "login",
		"count":     3,
		"ratio":     0.75,
		"whole":     2.0,
		"enabled":   true,
		"wrongtype": []string{"x"},
	}

	if got := p.String("name", "def"); got != "login" {
		t.Errorf("String(name) = %q, want login", got)
	}
	if got := p.String("missing", "def"); got != "def" {
		t.Errorf("String(missing) = %q, want def", got)
	}
	if got := p.String("count", "def"); got != "def" {
		t.Errorf("String(count) = %q, want def for non-string", got)
	}

	if got := p.Int("count", 0); got != 3 {
		t.Errorf("Int(count) = %d, want 3", got)
	}
	if got := p.Int("whole", 0); got != 2 {
		t.Errorf("Int(whole) = %d, want 2 for YAML float", got)
	}
	if got := p.Int("missing", 9); got != 9 {
		t.Errorf("Int(missing) = %d, want 9", got)
	}

	if got := p.Float("ratio", 0); got != 0.75 {
		t.Errorf("Float(ratio) = %v, want 0.75", got)
	}
	if got := p.Float("count", 0); got != 3.0 {
		t.Errorf("Float(count) = %v, want 3.0 for YAML int", got)
	}

	if got := p.Bool("enabled", false); !got {
		t.Error("Bool(enabled) = false, want true")
	}
	if got := p.Bool("missing", true); !got {
		t.Error("Bool(missing) = false, want default true")
	}

	if !p.Has("wrongtype") || p.Has("missing") {
		t.Error("Has() misreports key presence")
	}
}

func TestParamsNilMap(t *testing.T) {
	var p Params

	if got := p.String("k", "d"); got != "d" {
		t.Errorf("nil String() = %q, want d", got)
	}
	if got := p.Int("k", 7); got != 7 {
		t.Errorf("nil Int() = %d, want 7", got)
	}
	if p.Has("k") {
		t.Error("nil Has() = true, want false")
	}
}
