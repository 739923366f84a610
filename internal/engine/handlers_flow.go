package engine

import (
	"os"
	"path/filepath"
	"strings"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
	mdwlog "github.com/msto63/mExec/foundation/core/log"
)

func doNothing(e *Engine, params string) Result {
	return ResultSucceeded
}

func doIf(e *Engine, params string) Result {
	ctx := e.current()
	numeric := strings.EqualFold(e.lastName, "IF~")
	cond, label, single := splitIfGoto(params)

	ok, err := evalCondition(cond, numeric)
	if err != nil {
		e.printError("IF: " + err.Error())
		if !single {
			// the matching ENDIF must still find a level to close
			ctx.ifs.enterIf(false)
		}
		return ResultInvalidParam
	}

	if single {
		if ok {
			return e.gotoLabel(label)
		}
		return ResultSucceeded
	}
	ctx.ifs.enterIf(ok)
	return ResultSucceeded
}

func doElse(e *Engine, params string) Result {
	if err := e.current().ifs.enterElse(); err != nil {
		e.state.fatal = err.WithOperation("engine.else")
		return ResultFailed
	}
	if strings.TrimSpace(params) != "" {
		e.printError("ELSE: unexpected parameters: " + params)
		return ResultInvalidParam
	}
	return ResultSucceeded
}

func doEndIf(e *Engine, params string) Result {
	if err := e.current().ifs.enterEndIf(); err != nil {
		e.state.fatal = err.WithOperation("engine.endif")
		return ResultFailed
	}
	return ResultSucceeded
}

func doGoto(e *Engine, params string) Result {
	if strings.TrimSpace(params) == "" {
		e.printError("GOTO: label expected")
		return ResultInvalidParam
	}
	return e.gotoLabel(params)
}

// doLabel is a no-op at run time; labels are collected when a context starts
func doLabel(e *Engine, params string) Result {
	if strings.TrimSpace(params) == "" {
		e.printError("LABEL: name expected")
		return ResultInvalidParam
	}
	return ResultSucceeded
}

func doNppExec(e *Engine, params string) Result {
	args := splitArgs(params)
	if len(args) == 0 {
		e.printError("NPP_EXEC: script name expected")
		return ResultInvalidParam
	}

	name := args[0]
	lines, err := e.loadScript(name)
	if err != nil {
		e.printError("NPP_EXEC: " + err.Error())
		e.logger.LogError(err)
		return ResultFailed
	}

	e.callScript(name, lines, args[1:])
	return ResultSucceeded
}

// loadScript resolves a script from the script library, then from disk
func (e *Engine) loadScript(name string) ([]string, error) {
	if e.scripts != nil {
		lines, err := e.scripts.Script(e.runCtx, name)
		if err == nil || !mdwerror.HasCode(err, mdwerror.CodeNotFound) {
			return lines, err
		}
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mdwerror.Wrap(err, "script not found: "+name).
			WithCode(mdwerror.CodeNotFound).
			WithOperation("engine.loadScript").
			WithDetail("script", name)
	}
	return SplitScript(string(data)), nil
}

// SplitScript splits script text into lines
func SplitScript(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func doNpeQueue(e *Engine, params string) Result {
	line := strings.TrimSpace(params)
	if line == "" {
		e.printError("NPE_QUEUE: command expected")
		return ResultInvalidParam
	}
	if e.runner == nil {
		e.printError("NPE_QUEUE: no runner to queue on")
		return ResultFailed
	}
	e.runner.Queue(line)
	e.logger.Debug("command queued", mdwlog.Fields{"line": line})
	return ResultSucceeded
}
