package engine

import (
	"testing"
)

func TestVarStore(t *testing.T) {
	s := NewVarStore()
	s.Set("name", "a")
	if v, ok := s.Get("NAME"); !ok || v != "a" {
		t.Errorf("Get(NAME) = %q, %v, want a, true", v, ok)
	}
	s.Set("other", "b")
	if got := s.Names(); !equalLines(got, []string{"NAME", "OTHER"}) {
		t.Errorf("Names() = %v", got)
	}
	if !s.Unset(" Name ") {
		t.Error("Unset() = false for a set variable")
	}
	if s.Unset("name") {
		t.Error("Unset() = true for a missing variable")
	}
}

func TestExpand(t *testing.T) {
	t.Setenv("MEXEC_TEST_ENV", "from-env")

	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"global", "SET g = 1\nECHO [$(g)]", "[1]"},
		{"local wins", "SET v = global\nSET local v = local\nECHO $(v)", "local"},
		{"unresolved kept", "ECHO $(nothing)", "$(nothing)"},
		{"nested", "SET local i = 2\nSET local a2 = deep\nECHO $(a$(i))", "deep"},
		{"environment", "ECHO $(SYS.MEXEC_TEST_ENV)", "from-env"},
		{"argc", "ECHO $(ARGC) $(ARGV) $(RARGV)", "2 one \"two words\" \"two words\" one"},
		{"argv index", "ECHO $(ARGV[0])/$(ARGV[2])/$(ARGV[9])", "test/two words/"},
		{"unbalanced", "ECHO $(open", "$(open"},
		{"macro set by command", "SCI_SENDMSG 1 2 3\nECHO $(MSG_RESULT) $(MSG_WPARAM) $(MSG_LPARAM)", "42 2 3"},
		{"host macro", "ECHO $(FILE_NAME)", "doc.txt"},
		{"clipboard", "CLIP_SETTEXT copied\nECHO $(CLIPBOARD_TEXT)", "copied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := &fakeHost{macros: map[string]string{MacroFileName: "doc.txt"}}
			_, con, err := runScript(t, tt.script, func(o *Options) {
				o.Args = []string{"one", "two words"}
				o.Host = host
			})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			lines := con.Lines()
			if len(lines) == 0 {
				t.Fatal("no output")
			}
			if got := lines[len(lines)-1]; got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNoEmptyVars(t *testing.T) {
	_, con, err := runScript(t, "ECHO [$(x)]\nNPE_NOEMPTYVARS on\nECHO [$(x)]\nNPE_NOEMPTYVARS off\nECHO [$(x)]")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"[$(x)]", "[]", "[$(x)]"}
	if got := con.Lines(); !equalLines(got, want) {
		t.Errorf("output = %v, want %v", got, want)
	}
}

func TestGlobalsAreSharedBetweenEngines(t *testing.T) {
	globals := NewVarStore()
	share := func(o *Options) { o.Globals = globals }

	if _, _, err := runScript(t, "SET shared = yes\nSET local mine = no", share); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	_, con, err := runScript(t, "ECHO $(shared) $(mine)", share)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"yes $(mine)"}) {
		t.Errorf("output = %v, want [yes $(mine)]", got)
	}
}
