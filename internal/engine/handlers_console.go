package engine

import (
	"strings"
)

func doEcho(e *Engine, params string) Result {
	e.console.Print(params)
	return ResultSucceeded
}

func doCls(e *Engine, params string) Result {
	e.console.Clear()
	return ResultSucceeded
}

func doConColour(e *Engine, params string) Result {
	if err := e.console.SetColour(strings.TrimSpace(params)); err != nil {
		e.printError("CON_COLOUR: " + err.Error())
		return ResultInvalidParam
	}
	return ResultSucceeded
}

func doConFilter(e *Engine, params string) Result {
	if err := e.console.SetFilter(strings.TrimSpace(params)); err != nil {
		e.printError("CON_FILTER: " + err.Error())
		return ResultInvalidParam
	}
	return ResultSucceeded
}

func doConLoadFrom(e *Engine, params string) Result {
	path := unquote(params)
	if path == "" {
		e.printError("CON_LOADFROM: file name expected")
		return ResultInvalidParam
	}
	if err := e.console.LoadFrom(e.resolvePath(path)); err != nil {
		e.printError("CON_LOADFROM: " + err.Error())
		return ResultFailed
	}
	return ResultSucceeded
}

// doConSaveTo writes the console buffer; a leading "+" appends
func doConSaveTo(e *Engine, params string) Result {
	params = strings.TrimSpace(params)
	appendMode := strings.HasPrefix(params, "+")
	if appendMode {
		params = params[1:]
	}
	path := unquote(params)
	if path == "" {
		e.printError("CON_SAVETO: file name expected")
		return ResultInvalidParam
	}
	if err := e.console.SaveTo(e.resolvePath(path), appendMode); err != nil {
		e.printError("CON_SAVETO: " + err.Error())
		return ResultFailed
	}
	return ResultSucceeded
}

func doNppConsole(e *Engine, params string) Result {
	switch p := strings.TrimSpace(params); p {
	case "?":
		e.message("NPP_CONSOLE: " + onOff(e.console.Visible()))
		return ResultSucceeded
	case "":
		e.printError("NPP_CONSOLE: expected on, off or ?")
		return ResultInvalidParam
	default:
		v, ok := parseOnOff(p)
		if !ok {
			e.printError("NPP_CONSOLE: expected on, off or ?")
			return ResultInvalidParam
		}
		e.console.SetVisible(v)
		return ResultSucceeded
	}
}

// doNpeConsole handles the engine message switch: m+ and m- turn the
// engine's own console messages on and off
func doNpeConsole(e *Engine, params string) Result {
	opts := strings.Fields(params)
	if len(opts) == 0 {
		state := "m+"
		if !e.consoleMessages {
			state = "m-"
		}
		e.console.Print("NPE_CONSOLE: " + state)
		return ResultSucceeded
	}
	for _, o := range opts {
		switch strings.ToLower(o) {
		case "m+":
			e.consoleMessages = true
		case "m-":
			e.consoleMessages = false
		default:
			e.printError("NPE_CONSOLE: unknown option " + o)
			return ResultInvalidParam
		}
	}
	return ResultSucceeded
}
