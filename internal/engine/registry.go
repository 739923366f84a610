// ============================================================================
// mExec - Embedded Script Engine
// ============================================================================
//
// Package:     engine
// Description: Process-wide command registry built once on first use
// Author:      Mike Stoffels
// Created:     2025-12-14
// License:     MIT
// ============================================================================

package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// HandlerFunc executes one command. params is the text after the command
// name with variables already substituted.
type HandlerFunc func(e *Engine, params string) Result

// CommandDescriptor describes one registered command
type CommandDescriptor struct {
	Name    string
	AltName string
	Type    CommandType
	Handler HandlerFunc
}

// Registry maps command names to types and handlers. It is immutable once
// built and safe for concurrent use without locking.
type Registry struct {
	byName      map[string]CommandType
	descriptors [cmdTypeCount]CommandDescriptor
	sortedNames []string
}

var (
	registryOnce sync.Once
	registry     *Registry
)

// Commands returns the process-wide registry, building it on first use
func Commands() *Registry {
	registryOnce.Do(func() {
		registry = buildRegistry(builtinCommands())
	})
	return registry
}

// builtinCommands is a function rather than a table variable because the
// handlers reach the registry themselves.
func builtinCommands() []CommandDescriptor {
	return []CommandDescriptor{
		{Name: "<default>", Type: CmdUnknown, Handler: doRunProcess},
		{Name: "<comment>", Type: CmdCommentOrEmpty, Handler: doNothing},
		{Name: "<collateral>", Type: CmdCollateralForced, Handler: doNothing},

		{Name: "CD", Type: CmdCD, Handler: doCD},
		{Name: "CLS", Type: CmdCls, Handler: doCls},
		{Name: "CLIP_SETTEXT", Type: CmdClipSetText, Handler: doClipSetText},
		{Name: "CON_COLOUR", AltName: "CON_COLOR", Type: CmdConColour, Handler: doConColour},
		{Name: "CON_FILTER", Type: CmdConFilter, Handler: doConFilter},
		{Name: "CON_LOADFROM", AltName: "CON_LOAD", Type: CmdConLoadFrom, Handler: doConLoadFrom},
		{Name: "CON_SAVETO", AltName: "CON_SAVE", Type: CmdConSaveTo, Handler: doConSaveTo},
		{Name: "DIR", Type: CmdDir, Handler: doDir},
		{Name: "ECHO", Type: CmdEcho, Handler: doEcho},
		{Name: "ELSE", Type: CmdElse, Handler: doElse},
		{Name: "ENDIF", Type: CmdEndIf, Handler: doEndIf},
		{Name: "ENV_SET", AltName: "SET_ENV", Type: CmdEnvSet, Handler: doEnvSet},
		{Name: "ENV_UNSET", AltName: "UNSET_ENV", Type: CmdEnvUnset, Handler: doEnvUnset},
		{Name: "GOTO", Type: CmdGoto, Handler: doGoto},
		{Name: "IF", Type: CmdIf, Handler: doIf},
		{Name: "INPUTBOX", Type: CmdInputBox, Handler: doInputBox},
		{Name: "LABEL", Type: CmdLabel, Handler: doLabel},
		{Name: "NPE_CMDALIAS", Type: CmdNpeCmdAlias, Handler: doNpeCmdAlias},
		{Name: "NPE_CONSOLE", Type: CmdNpeConsole, Handler: doNpeConsole},
		{Name: "NPE_DEBUGLOG", AltName: "NPE_DEBUG", Type: CmdNpeDebugLog, Handler: doNpeDebugLog},
		{Name: "NPE_NOEMPTYVARS", Type: CmdNpeNoEmptyVars, Handler: doNpeNoEmptyVars},
		{Name: "NPE_QUEUE", Type: CmdNpeQueue, Handler: doNpeQueue},
		{Name: "NPP_CLOSE", Type: CmdNppClose, Handler: doNppClose},
		{Name: "NPP_CONSOLE", Type: CmdNppConsole, Handler: doNppConsole},
		{Name: "NPP_EXEC", Type: CmdNppExec, Handler: doNppExec},
		{Name: "NPP_MENUCOMMAND", Type: CmdNppMenuCommand, Handler: doNppMenuCommand},
		{Name: "NPP_OPEN", Type: CmdNppOpen, Handler: doNppOpen},
		{Name: "NPP_RUN", Type: CmdNppRun, Handler: doNppRun},
		{Name: "NPP_SAVE", Type: CmdNppSave, Handler: doNppSave},
		{Name: "NPP_SAVEAS", Type: CmdNppSaveAs, Handler: doNppSaveAs},
		{Name: "NPP_SAVEALL", Type: CmdNppSaveAll, Handler: doNppSaveAll},
		{Name: "NPP_SENDMSG", Type: CmdNppSendMsg, Handler: doNppSendMsg},
		{Name: "NPP_SENDMSGEX", Type: CmdNppSendMsgEx, Handler: doNppSendMsgEx},
		{Name: "NPP_SETFOCUS", Type: CmdNppSetFocus, Handler: doNppSetFocus},
		{Name: "NPP_SWITCH", Type: CmdNppSwitch, Handler: doNppSwitch},
		{Name: "PROC_SIGNAL", Type: CmdProcSignal, Handler: doProcSignal},
		{Name: "SLEEP", Type: CmdSleep, Handler: doSleep},
		{Name: "SCI_FIND", Type: CmdSciFind, Handler: doSciFind},
		{Name: "SCI_REPLACE", Type: CmdSciReplace, Handler: doSciReplace},
		{Name: "SCI_SENDMSG", Type: CmdSciSendMsg, Handler: doSciSendMsg},
		{Name: "SEL_LOADFROM", AltName: "SEL_LOAD", Type: CmdSelLoadFrom, Handler: doSelLoadFrom},
		{Name: "SEL_SAVETO", AltName: "SEL_SAVE", Type: CmdSelSaveTo, Handler: doSelSaveTo},
		{Name: "SEL_SETTEXT", Type: CmdSelSetText, Handler: doSelSetText},
		{Name: "SEL_SETTEXT+", Type: CmdSelSetTextEx, Handler: doSelSetTextEx},
		{Name: "SET", Type: CmdSet, Handler: doSet},
		{Name: "TEXT_LOADFROM", AltName: "TEXT_LOAD", Type: CmdTextLoadFrom, Handler: doTextLoadFrom},
		{Name: "TEXT_SAVETO", AltName: "TEXT_SAVE", Type: CmdTextSaveTo, Handler: doTextSaveTo},
		{Name: "UNSET", Type: CmdUnset, Handler: doUnset},
	}
}

// buildRegistry panics on an incomplete or inconsistent table. The table is
// static, so any failure is a programming error caught by the first test run.
func buildRegistry(table []CommandDescriptor) *Registry {
	r := &Registry{byName: make(map[string]CommandType, len(table)*2)}
	seen := make(map[CommandType]bool, len(table))

	for _, d := range table {
		if d.Type < 0 || d.Type >= cmdTypeCount {
			panic(fmt.Sprintf("engine: command %q has out of range type %d", d.Name, d.Type))
		}
		if seen[d.Type] {
			panic(fmt.Sprintf("engine: command type %d registered twice", d.Type))
		}
		if d.Name == "" || d.Handler == nil {
			panic(fmt.Sprintf("engine: command type %d lacks a name or handler", d.Type))
		}
		seen[d.Type] = true
		r.descriptors[d.Type] = d

		if isSentinel(d.Type) {
			continue
		}
		for _, name := range []string{d.Name, d.AltName} {
			if name == "" {
				continue
			}
			key := strings.ToUpper(name)
			if _, dup := r.byName[key]; dup {
				panic(fmt.Sprintf("engine: command name %q registered twice", name))
			}
			r.byName[key] = d.Type
		}
		r.sortedNames = append(r.sortedNames, d.Name)
	}

	for t := CommandType(0); t < cmdTypeCount; t++ {
		if !seen[t] {
			panic(fmt.Sprintf("engine: command type %d has no descriptor", t))
		}
	}

	sort.Strings(r.sortedNames)
	return r
}

func isSentinel(t CommandType) bool {
	return t == CmdUnknown || t == CmdCommentOrEmpty || t == CmdCollateralForced
}

// Lookup resolves a command name case-insensitively. Unregistered names
// yield CmdUnknown.
func (r *Registry) Lookup(name string) CommandType {
	if t, ok := r.byName[strings.ToUpper(name)]; ok {
		return t
	}
	return CmdUnknown
}

// NameFor returns the canonical name of a command type
func (r *Registry) NameFor(t CommandType) string {
	return r.Descriptor(t).Name
}

// DispatchFor returns the handler of a command type
func (r *Registry) DispatchFor(t CommandType) HandlerFunc {
	return r.Descriptor(t).Handler
}

// Descriptor returns the descriptor of t. Out of range values map to the
// default command so that callers never see an empty descriptor.
func (r *Registry) Descriptor(t CommandType) CommandDescriptor {
	if t < 0 || t >= cmdTypeCount {
		t = CmdUnknown
	}
	return r.descriptors[t]
}

// SortedNames returns the canonical command names in lexical order.
// Alternate names are not included.
func (r *Registry) SortedNames() []string {
	out := make([]string, len(r.sortedNames))
	copy(out, r.sortedNames)
	return out
}
