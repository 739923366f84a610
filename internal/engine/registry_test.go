package engine

import (
	"sort"
	"testing"
)

func TestRegistryIsTotal(t *testing.T) {
	r := Commands()
	for ct := CommandType(0); ct < cmdTypeCount; ct++ {
		d := r.Descriptor(ct)
		if d.Type != ct {
			t.Errorf("Descriptor(%d).Type = %d", ct, d.Type)
		}
		if d.Handler == nil {
			t.Errorf("Descriptor(%d) has no handler", ct)
		}
		if d.Name == "" {
			t.Errorf("Descriptor(%d) has no name", ct)
		}
	}
}

func TestRegistryLookup(t *testing.T) {
	tests := []struct {
		name string
		want CommandType
	}{
		{"ECHO", CmdEcho},
		{"echo", CmdEcho},
		{"Con_Colour", CmdConColour},
		{"CON_COLOR", CmdConColour},
		{"SET_ENV", CmdEnvSet},
		{"npe_debug", CmdNpeDebugLog},
		{"SEL_SETTEXT+", CmdSelSetTextEx},
		{"TEXT_LOAD", CmdTextLoadFrom},
		{"notepad.exe", CmdUnknown},
		{"<default>", CmdUnknown},
		{"<comment>", CmdUnknown},
		{"", CmdUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Commands().Lookup(tt.name); got != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestRegistrySortedNames(t *testing.T) {
	names := Commands().SortedNames()
	if !sort.StringsAreSorted(names) {
		t.Error("SortedNames() is not sorted")
	}
	if want := int(cmdTypeCount) - 3; len(names) != want {
		t.Errorf("len(SortedNames()) = %d, want %d", len(names), want)
	}
	for _, n := range names {
		if n == "CON_COLOR" || n == "<default>" {
			t.Errorf("SortedNames() contains %q", n)
		}
	}

	names[0] = "changed"
	if Commands().SortedNames()[0] == "changed" {
		t.Error("SortedNames() exposes its internal slice")
	}
}

func TestRegistryNameFor(t *testing.T) {
	if got := Commands().NameFor(CmdEnvUnset); got != "ENV_UNSET" {
		t.Errorf("NameFor(CmdEnvUnset) = %q, want ENV_UNSET", got)
	}
	if got := CmdNppExec.String(); got != "NPP_EXEC" {
		t.Errorf("CmdNppExec.String() = %q, want NPP_EXEC", got)
	}
	if got := Commands().NameFor(CommandType(999)); got != "<default>" {
		t.Errorf("NameFor(999) = %q, want <default>", got)
	}
}

func TestBuildRegistryPanicsOnDuplicates(t *testing.T) {
	table := builtinCommands()
	table = append(table, CommandDescriptor{Name: "ECHO2", Type: CmdEcho, Handler: doEcho})

	defer func() {
		if recover() == nil {
			t.Error("buildRegistry() did not panic on a duplicate type")
		}
	}()
	buildRegistry(table)
}

func TestBuildRegistryPanicsOnMissingType(t *testing.T) {
	table := builtinCommands()[:len(builtinCommands())-1]

	defer func() {
		if recover() == nil {
			t.Error("buildRegistry() did not panic on a missing type")
		}
	}()
	buildRegistry(table)
}
