package engine

import (
	mdwerror "github.com/msto63/mExec/foundation/core/error"
)

// IfState is the control-flow state of one IF nesting level
type IfState int

const (
	// IfNone means not inside an IF
	IfNone IfState = iota
	// IfExecuting means the condition was true and its branch runs
	IfExecuting
	// IfWantElse means the condition was false, lines are skipped until ELSE or ENDIF
	IfWantElse
	// IfWantEndif means the taken branch is over, lines are skipped until ENDIF
	IfWantEndif
	// IfMaybeElse is set after a GOTO inside an IF body; an ELSE may follow
	IfMaybeElse
	// IfWantSilentEndif tracks an IF met while skipping, only its ENDIF matters
	IfWantSilentEndif
)

func (s IfState) String() string {
	switch s {
	case IfNone:
		return "IF_NONE"
	case IfExecuting:
		return "IF_EXECUTING"
	case IfWantElse:
		return "IF_WANT_ELSE"
	case IfWantEndif:
		return "IF_WANT_ENDIF"
	case IfMaybeElse:
		return "IF_MAYBE_ELSE"
	case IfWantSilentEndif:
		return "IF_WANT_SILENT_ENDIF"
	default:
		return "IF_???"
	}
}

// Skipping reports whether ordinary commands are invisible in this state
func (s IfState) Skipping() bool {
	return s == IfWantElse || s == IfWantEndif || s == IfWantSilentEndif
}

// open reports whether a live level still waits for its ENDIF. Silent
// levels opened while skipping are not counted.
func (s IfState) open() bool {
	return s != IfNone && s != IfMaybeElse && s != IfWantSilentEndif
}

// IsSkippingCommand decides whether a line of type t is hidden by state.
// Callers pass CmdCollateralForced for lines carrying the forced prefix.
func IsSkippingCommand(t CommandType, state IfState) bool {
	if !state.Skipping() {
		return false
	}
	switch t {
	case CmdElse, CmdEndIf, CmdIf, CmdCollateralForced:
		return false
	}
	return true
}

// ifStack holds one IfState per nesting level of a script context
type ifStack []IfState

// Top returns the live state, IfNone when empty
func (s ifStack) Top() IfState {
	if len(s) == 0 {
		return IfNone
	}
	return s[len(s)-1]
}

func (s ifStack) Depth() int {
	return len(s)
}

func (s *ifStack) set(state IfState) {
	if len(*s) > 0 {
		(*s)[len(*s)-1] = state
	}
}

// push enters a new IF level. A pending MaybeElse is dropped first because
// the nested IF ends the chance of an ELSE belonging to the earlier GOTO.
func (s *ifStack) push(state IfState) {
	if s.Top() == IfMaybeElse {
		s.set(IfNone)
	}
	*s = append(*s, state)
}

func (s *ifStack) pop() bool {
	if len(*s) == 0 {
		return false
	}
	*s = (*s)[:len(*s)-1]
	return true
}

// unterminated counts levels still waiting for ENDIF
func (s ifStack) unterminated() int {
	n := 0
	for _, st := range s {
		if st.open() {
			n++
		}
	}
	return n
}

func (s *ifStack) enterIf(condition bool) {
	if condition {
		s.push(IfExecuting)
	} else {
		s.push(IfWantElse)
	}
}

func (s *ifStack) enterSkippedIf() {
	s.push(IfWantSilentEndif)
}

func (s *ifStack) enterElse() *mdwerror.Error {
	switch s.Top() {
	case IfWantElse, IfMaybeElse:
		s.set(IfExecuting)
		return nil
	case IfExecuting:
		s.set(IfWantEndif)
		return nil
	case IfWantSilentEndif:
		return nil
	case IfWantEndif:
		return structuralError("ELSE after ELSE", s.Top())
	default:
		return structuralError("ELSE without IF", s.Top())
	}
}

func (s *ifStack) enterEndIf() *mdwerror.Error {
	if !s.pop() {
		return structuralError("ENDIF without IF", IfNone)
	}
	return nil
}

// afterGoto marks the current level so that an ELSE reached next is accepted
func (s *ifStack) afterGoto() {
	if s.Depth() > 0 {
		s.set(IfMaybeElse)
	}
}

func structuralError(msg string, state IfState) *mdwerror.Error {
	return mdwerror.New(msg).
		WithCode(mdwerror.CodeScriptStructure).
		WithDetail("if_state", state.String())
}
