package engine

import "testing"

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a b  c", []string{"a", "b", "c"}},
		{`"big world" x`, []string{"big world", "x"}},
		{`a "" b`, []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := splitArgs(tt.in); !equalLines(got, tt.want) {
				t.Errorf("splitArgs(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitIfGoto(t *testing.T) {
	tests := []struct {
		in        string
		wantCond  string
		wantLabel string
		wantOK    bool
	}{
		{"1 GOTO end", "1", "end", true},
		{"$(a) == b goto Loop", "$(a) == b", "Loop", true},
		{"\"a GOTO b\" == x", "\"a GOTO b\" == x", "", false},
		{"GOTO x", "GOTO x", "", false},
		{"1 GOTO", "1 GOTO", "", false},
		{"1 == 1", "1 == 1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cond, label, ok := splitIfGoto(tt.in)
			if cond != tt.wantCond || label != tt.wantLabel || ok != tt.wantOK {
				t.Errorf("splitIfGoto(%q) = %q, %q, %v, want %q, %q, %v",
					tt.in, cond, label, ok, tt.wantCond, tt.wantLabel, tt.wantOK)
			}
		})
	}
}

func TestEvalCondition(t *testing.T) {
	tests := []struct {
		cond    string
		numeric bool
		want    bool
		wantErr bool
	}{
		{"1", false, true, false},
		{"0", false, false, false},
		{"off", false, false, false},
		{"FALSE", false, false, false},
		{`""`, false, false, false},
		{"yes", false, true, false},
		{"", false, false, true},
		{"abc == abc", false, true, false},
		{"abc = abd", false, false, false},
		{"ABC ~= abc", false, true, false},
		{"a != b", false, true, false},
		{"a <> a", false, false, false},
		{"10 > 9", false, true, false},
		{"10 < 9", false, false, false},
		{"010 == 10", false, true, false},
		{"b >= a", false, true, false},
		{"3 <= 3", false, true, false},
		{`"a b" == "a b"`, false, true, false},
		{"2 < 10", true, true, false},
		{"a < 10", true, false, true},
		{"7", true, true, false},
		{"x", true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			got, err := evalCondition(tt.cond, tt.numeric)
			if (err != nil) != tt.wantErr {
				t.Fatalf("evalCondition(%q) error = %v, wantErr %v", tt.cond, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("evalCondition(%q) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestParseOnOff(t *testing.T) {
	tests := []struct {
		in     string
		want   bool
		wantOK bool
	}{
		{"on", true, true},
		{" OFF ", false, true},
		{"1", true, true},
		{"0", false, true},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		got, ok := parseOnOff(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseOnOff(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestUnescape(t *testing.T) {
	if got := unescape(`a\nb\tc\\d\q`); got != "a\nb\tc\\d\\q" {
		t.Errorf("unescape() = %q", got)
	}
	if got := unescape(`end\`); got != `end\` {
		t.Errorf("unescape() = %q, want trailing backslash kept", got)
	}
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		expr    string
		want    int64
		wantErr bool
	}{
		{"5", 5, false},
		{"2 + 3", 5, false},
		{"2 - 3", -1, false},
		{"4 * 3", 12, false},
		{"7 / 2", 3, false},
		{"7 % 2", 1, false},
		{"1 / 0", 0, true},
		{"1 +", 0, true},
		{"a + 1", 0, true},
		{"1 ^ 2", 0, true},
	}

	for _, tt := range tests {
		got, err := evalArithmetic(tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("evalArithmetic(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("evalArithmetic(%q) = %d, want %d", tt.expr, got, tt.want)
		}
	}
}
