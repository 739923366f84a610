package engine

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// resolvePath makes path absolute relative to the engine directory
func (e *Engine) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.dir, path)
}

// withHost runs fn against the host. A missing host fails the command.
func (e *Engine) withHost(cmd string, fn func(h Host) error) Result {
	if e.host == nil {
		e.printError(cmd + ": no host application")
		return ResultFailed
	}
	if err := fn(e.host); err != nil {
		e.printError(cmd + ": " + err.Error())
		return ResultFailed
	}
	return ResultSucceeded
}

func requireParam(e *Engine, cmd, params, what string) (string, bool) {
	p := unquote(params)
	if p == "" {
		e.printError(cmd + ": " + what + " expected")
		return "", false
	}
	return p, true
}

func doCD(e *Engine, params string) Result {
	p := unquote(params)
	if p == "" {
		e.message("Current directory: " + e.dir)
		return ResultSucceeded
	}

	dir := e.resolvePath(p)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		e.printError("CD: no such directory: " + p)
		return ResultFailed
	}
	e.dir = filepath.Clean(dir)
	return ResultSucceeded
}

// doDir lists the engine directory, or the entries matching a glob
func doDir(e *Engine, params string) Result {
	pattern := unquote(params)
	if pattern == "" {
		pattern = "*"
	}
	pattern = e.resolvePath(pattern)
	if info, err := os.Stat(pattern); err == nil && info.IsDir() {
		pattern = filepath.Join(pattern, "*")
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		e.printError("DIR: " + err.Error())
		return ResultInvalidParam
	}
	sort.Strings(matches)
	for _, m := range matches {
		name := filepath.Base(m)
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			name = "<DIR> " + name
		}
		e.console.Print(name)
	}
	return ResultSucceeded
}

func doClipSetText(e *Engine, params string) Result {
	return e.withHost("CLIP_SETTEXT", func(h Host) error {
		return h.SetClipboardText(unescape(params))
	})
}

// doInputBox asks the user for a value and stores it in $(INPUT).
// "message : initial" pre-fills the answer.
func doInputBox(e *Engine, params string) Result {
	msg, initial, _ := strings.Cut(params, " : ")
	msg = unquote(msg)
	if msg == "" {
		e.printError("INPUTBOX: message expected")
		return ResultInvalidParam
	}
	return e.withHost("INPUTBOX", func(h Host) error {
		answer, err := h.Prompt(msg, unquote(initial))
		if err != nil {
			return err
		}
		e.setMacro(MacroInput, answer)
		return nil
	})
}

func doNppOpen(e *Engine, params string) Result {
	path, ok := requireParam(e, "NPP_OPEN", params, "file name")
	if !ok {
		return ResultInvalidParam
	}
	return e.withHost("NPP_OPEN", func(h Host) error { return h.OpenDocument(e.resolvePath(path)) })
}

func doNppClose(e *Engine, params string) Result {
	path := unquote(params)
	if path != "" {
		path = e.resolvePath(path)
	}
	return e.withHost("NPP_CLOSE", func(h Host) error { return h.CloseDocument(path) })
}

func doNppSave(e *Engine, params string) Result {
	path := unquote(params)
	if path != "" {
		path = e.resolvePath(path)
	}
	return e.withHost("NPP_SAVE", func(h Host) error { return h.SaveDocument(path) })
}

func doNppSaveAs(e *Engine, params string) Result {
	path, ok := requireParam(e, "NPP_SAVEAS", params, "file name")
	if !ok {
		return ResultInvalidParam
	}
	return e.withHost("NPP_SAVEAS", func(h Host) error { return h.SaveDocumentAs(e.resolvePath(path)) })
}

func doNppSaveAll(e *Engine, params string) Result {
	return e.withHost("NPP_SAVEALL", func(h Host) error { return h.SaveAllDocuments() })
}

func doNppSwitch(e *Engine, params string) Result {
	path, ok := requireParam(e, "NPP_SWITCH", params, "file name")
	if !ok {
		return ResultInvalidParam
	}
	return e.withHost("NPP_SWITCH", func(h Host) error { return h.SwitchDocument(path) })
}

func doNppRun(e *Engine, params string) Result {
	cmd := strings.TrimSpace(params)
	if cmd == "" {
		e.printError("NPP_RUN: command expected")
		return ResultInvalidParam
	}
	return e.withHost("NPP_RUN", func(h Host) error { return h.RunExternal(cmd) })
}

func doNppMenuCommand(e *Engine, params string) Result {
	path, ok := requireParam(e, "NPP_MENUCOMMAND", params, "menu path")
	if !ok {
		return ResultInvalidParam
	}
	return e.withHost("NPP_MENUCOMMAND", func(h Host) error { return h.MenuCommand(path) })
}

func doNppSetFocus(e *Engine, params string) Result {
	target := strings.ToLower(unquote(params))
	switch target {
	case "", "doc", "con":
	default:
		e.printError("NPP_SETFOCUS: expected doc or con")
		return ResultInvalidParam
	}
	return e.withHost("NPP_SETFOCUS", func(h Host) error { return h.SetFocus(target) })
}

func doNppSendMsg(e *Engine, params string) Result {
	return e.sendMessage("NPP_SENDMSG", "npp", params)
}

// doNppSendMsgEx takes the target window as its first argument
func doNppSendMsgEx(e *Engine, params string) Result {
	target, rest := splitFirstToken(params)
	if target == "" {
		e.printError("NPP_SENDMSGEX: target expected")
		return ResultInvalidParam
	}
	return e.sendMessage("NPP_SENDMSGEX", unquote(target), rest)
}

func doSciSendMsg(e *Engine, params string) Result {
	return e.sendMessage("SCI_SENDMSG", "sci", params)
}

func (e *Engine) sendMessage(cmd, target, params string) Result {
	args := splitArgs(params)
	if len(args) == 0 || len(args) > 3 {
		e.printError(cmd + ": expected msg [wparam [lparam]]")
		return ResultInvalidParam
	}
	for len(args) < 3 {
		args = append(args, "")
	}
	return e.withHost(cmd, func(h Host) error {
		res, err := h.SendMessage(target, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		e.setMacro(MacroMsgResult, res.Result)
		e.setMacro(MacroMsgWParam, res.WParam)
		e.setMacro(MacroMsgLParam, res.LParam)
		return nil
	})
}

// doSciFind takes "flags text" and binds the match position to $(MSG_RESULT)
func doSciFind(e *Engine, params string) Result {
	args := splitArgs(params)
	if len(args) != 2 {
		e.printError("SCI_FIND: expected flags text")
		return ResultInvalidParam
	}
	return e.withHost("SCI_FIND", func(h Host) error {
		pos, err := h.Find(args[0], args[1])
		if err != nil {
			return err
		}
		e.setMacro(MacroMsgResult, strconv.Itoa(pos))
		return nil
	})
}

// doSciReplace takes "flags find replace" and binds the count to $(MSG_RESULT)
func doSciReplace(e *Engine, params string) Result {
	args := splitArgs(params)
	if len(args) != 3 {
		e.printError("SCI_REPLACE: expected flags find replace")
		return ResultInvalidParam
	}
	return e.withHost("SCI_REPLACE", func(h Host) error {
		n, err := h.Replace(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		e.setMacro(MacroMsgResult, strconv.Itoa(n))
		return nil
	})
}

func doSelSetText(e *Engine, params string) Result {
	return e.withHost("SEL_SETTEXT", func(h Host) error { return h.SetSelection(params) })
}

func doSelSetTextEx(e *Engine, params string) Result {
	return e.withHost("SEL_SETTEXT+", func(h Host) error { return h.SetSelection(unescape(params)) })
}

func doSelLoadFrom(e *Engine, params string) Result {
	return e.loadInto("SEL_LOADFROM", params, func(h Host, text string) error { return h.SetSelection(text) })
}

func doSelSaveTo(e *Engine, params string) Result {
	return e.saveFrom("SEL_SAVETO", params, func(h Host) (string, error) { return h.Selection() })
}

func doTextLoadFrom(e *Engine, params string) Result {
	return e.loadInto("TEXT_LOADFROM", params, func(h Host, text string) error { return h.SetCurrentText(text) })
}

func doTextSaveTo(e *Engine, params string) Result {
	return e.saveFrom("TEXT_SAVETO", params, func(h Host) (string, error) { return h.CurrentText() })
}

func (e *Engine) loadInto(cmd, params string, set func(h Host, text string) error) Result {
	path, ok := requireParam(e, cmd, params, "file name")
	if !ok {
		return ResultInvalidParam
	}
	return e.withHost(cmd, func(h Host) error {
		data, err := os.ReadFile(e.resolvePath(path))
		if err != nil {
			return err
		}
		return set(h, string(data))
	})
}

func (e *Engine) saveFrom(cmd, params string, get func(h Host) (string, error)) Result {
	path, ok := requireParam(e, cmd, params, "file name")
	if !ok {
		return ResultInvalidParam
	}
	return e.withHost(cmd, func(h Host) error {
		text, err := get(h)
		if err != nil {
			return err
		}
		return os.WriteFile(e.resolvePath(path), []byte(text), 0o644)
	})
}
