package engine

import (
	"testing"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
)

func TestIsSkippingCommand(t *testing.T) {
	tests := []struct {
		cmd   CommandType
		state IfState
		want  bool
	}{
		{CmdEcho, IfNone, false},
		{CmdEcho, IfExecuting, false},
		{CmdEcho, IfMaybeElse, false},
		{CmdEcho, IfWantElse, true},
		{CmdEcho, IfWantEndif, true},
		{CmdEcho, IfWantSilentEndif, true},
		{CmdGoto, IfWantElse, true},
		{CmdElse, IfWantElse, false},
		{CmdEndIf, IfWantEndif, false},
		{CmdIf, IfWantSilentEndif, false},
		{CmdCollateralForced, IfWantElse, false},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.String()+"/"+tt.state.String(), func(t *testing.T) {
			if got := IsSkippingCommand(tt.cmd, tt.state); got != tt.want {
				t.Errorf("IsSkippingCommand(%v, %v) = %v, want %v", tt.cmd, tt.state, got, tt.want)
			}
		})
	}
}

func TestElseTransitions(t *testing.T) {
	tests := []struct {
		from      IfState
		want      IfState
		wantError bool
	}{
		{IfWantElse, IfExecuting, false},
		{IfMaybeElse, IfExecuting, false},
		{IfExecuting, IfWantEndif, false},
		{IfWantSilentEndif, IfWantSilentEndif, false},
		{IfWantEndif, IfWantEndif, true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			s := ifStack{tt.from}
			err := s.enterElse()
			if (err != nil) != tt.wantError {
				t.Fatalf("enterElse() error = %v, wantError %v", err, tt.wantError)
			}
			if s.Top() != tt.want {
				t.Errorf("Top() = %v, want %v", s.Top(), tt.want)
			}
		})
	}
}

func TestElseAndEndifWithoutIf(t *testing.T) {
	var s ifStack
	if err := s.enterElse(); err == nil || err.Code() != mdwerror.CodeScriptStructure {
		t.Errorf("enterElse() on empty stack = %v, want structure error", err)
	}
	if err := s.enterEndIf(); err == nil || err.Code() != mdwerror.CodeScriptStructure {
		t.Errorf("enterEndIf() on empty stack = %v, want structure error", err)
	}
}

func TestIfStackNesting(t *testing.T) {
	var s ifStack
	s.enterIf(false)
	s.enterSkippedIf()
	if s.Top() != IfWantSilentEndif || s.Depth() != 2 {
		t.Fatalf("after nested skipped IF: Top() = %v, Depth() = %d", s.Top(), s.Depth())
	}
	if err := s.enterEndIf(); err != nil {
		t.Fatalf("enterEndIf() error = %v", err)
	}
	if s.Top() != IfWantElse {
		t.Errorf("Top() = %v, want %v", s.Top(), IfWantElse)
	}
	if err := s.enterEndIf(); err != nil {
		t.Fatalf("enterEndIf() error = %v", err)
	}
	if s.Top() != IfNone || s.Depth() != 0 {
		t.Errorf("Top() = %v, Depth() = %d, want IF_NONE and 0", s.Top(), s.Depth())
	}
}

func TestAfterGotoAndUnterminated(t *testing.T) {
	var s ifStack
	s.afterGoto()
	if s.Depth() != 0 {
		t.Fatal("afterGoto() changed an empty stack")
	}

	s.enterIf(true)
	s.afterGoto()
	if s.Top() != IfMaybeElse {
		t.Fatalf("Top() = %v, want %v", s.Top(), IfMaybeElse)
	}
	if n := s.unterminated(); n != 0 {
		t.Errorf("unterminated() = %d, want 0 for a MaybeElse level", n)
	}

	s.enterIf(true)
	if s[0] != IfNone {
		t.Errorf("push left %v below the new level, want IF_NONE", s[0])
	}
	if n := s.unterminated(); n != 1 {
		t.Errorf("unterminated() = %d, want 1", n)
	}

	s.enterSkippedIf()
	if n := s.unterminated(); n != 1 {
		t.Errorf("unterminated() = %d, want 1 with a silent level on top", n)
	}
}
