// ============================================================================
// mExec - Embedded Script Engine
// ============================================================================
//
// Package:     engine
// Description: Command types, handler results and run flags
// Author:      Mike Stoffels
// Created:     2025-12-14
// License:     MIT
// ============================================================================

package engine

// CommandType identifies a registered command. Values are dense and used as
// array indexes by the registry.
type CommandType int

const (
	CmdUnknown CommandType = iota
	CmdCommentOrEmpty
	CmdCollateralForced

	CmdCD
	CmdCls
	CmdClipSetText
	CmdConColour
	CmdConFilter
	CmdConLoadFrom
	CmdConSaveTo
	CmdDir
	CmdEcho
	CmdElse
	CmdEndIf
	CmdEnvSet
	CmdEnvUnset
	CmdGoto
	CmdIf
	CmdInputBox
	CmdLabel
	CmdNpeCmdAlias
	CmdNpeConsole
	CmdNpeDebugLog
	CmdNpeNoEmptyVars
	CmdNpeQueue
	CmdNppClose
	CmdNppConsole
	CmdNppExec
	CmdNppMenuCommand
	CmdNppOpen
	CmdNppRun
	CmdNppSave
	CmdNppSaveAs
	CmdNppSaveAll
	CmdNppSendMsg
	CmdNppSendMsgEx
	CmdNppSetFocus
	CmdNppSwitch
	CmdProcSignal
	CmdSleep
	CmdSciFind
	CmdSciReplace
	CmdSciSendMsg
	CmdSelLoadFrom
	CmdSelSaveTo
	CmdSelSetText
	CmdSelSetTextEx
	CmdSet
	CmdTextLoadFrom
	CmdTextSaveTo
	CmdUnset

	// cmdTypeCount must stay last
	cmdTypeCount
)

// String returns the canonical command name
func (t CommandType) String() string {
	return Commands().NameFor(t)
}

// Result is what a command handler reports back to the engine
type Result int

const (
	ResultInvalidParam Result = iota
	ResultFailed
	ResultSucceeded
)

// String returns the value exposed as $(LAST_CMD_RESULT)
func (r Result) String() string {
	switch r {
	case ResultSucceeded:
		return "1"
	case ResultFailed:
		return "0"
	default:
		return "-1"
	}
}

// PrefixKind tells how a line's collateral marker was written
type PrefixKind int

const (
	PrefixNone PrefixKind = iota
	PrefixCollateralOrRegular
	PrefixCollateralForced
)

// RunFlags change how an engine treats its script
type RunFlags uint

const (
	// FlagShareLocalVars makes nested contexts use the caller's local variables
	FlagShareLocalVars RunFlags = 1 << iota
	// FlagCollateral marks an engine started from a collateral console line
	FlagCollateral
	// FlagExternal marks a run requested from outside the engine tree
	FlagExternal
)

// Has reports whether all bits of f are set
func (r RunFlags) Has(f RunFlags) bool {
	return r&f == f
}

// String lists the set flags, used in logs and run history
func (r RunFlags) String() string {
	s := ""
	add := func(f RunFlags, name string) {
		if r.Has(f) {
			if s != "" {
				s += "|"
			}
			s += name
		}
	}
	add(FlagShareLocalVars, "share-vars")
	add(FlagCollateral, "collateral")
	add(FlagExternal, "external")
	if s == "" {
		return "none"
	}
	return s
}

// Status is the lifecycle state of an engine
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusAborted Status = "aborted"
)
