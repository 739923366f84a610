package engine

import (
	"os"
	"sort"
	"strconv"
	"strings"

	mdwlog "github.com/msto63/mExec/foundation/core/log"
)

// splitLocal strips a leading "local" keyword
func splitLocal(params string) (string, bool) {
	first, rest := splitFirstToken(params)
	if strings.EqualFold(first, "local") {
		return rest, true
	}
	return params, false
}

// splitAssignment splits "name = value" or "name ~ expr" at the first
// operator. op is empty when params only name a variable.
func splitAssignment(params string) (name, op, value string) {
	i := strings.IndexAny(params, "=~")
	if i < 0 {
		return strings.TrimSpace(params), "", ""
	}
	return strings.TrimSpace(params[:i]), params[i : i+1], strings.TrimSpace(params[i+1:])
}

func doSet(e *Engine, params string) Result {
	params, local := splitLocal(strings.TrimSpace(params))
	store := e.globals
	if local {
		store = e.current().vars
	}

	name, op, value := splitAssignment(params)
	if name == "" {
		if op != "" {
			e.printError("SET: variable name expected")
			return ResultInvalidParam
		}
		e.printVars(store)
		return ResultSucceeded
	}

	switch op {
	case "":
		v, ok := store.Get(name)
		if !ok {
			e.message("$(" + varKey(name) + ") is empty")
			return ResultFailed
		}
		e.message("$(" + varKey(name) + ") = " + v)
		return ResultSucceeded
	case "~":
		n, err := evalArithmetic(value)
		if err != nil {
			e.printError("SET: " + err.Error())
			return ResultInvalidParam
		}
		value = strconv.FormatInt(n, 10)
	}

	store.Set(name, value)
	if e.debugLog {
		e.logger.Debug("variable set", mdwlog.Fields{"name": varKey(name), "local": local})
	}
	return ResultSucceeded
}

func (e *Engine) printVars(store *VarStore) {
	names := store.Names()
	if len(names) == 0 {
		e.message("no user variables")
		return
	}
	for _, n := range names {
		v, _ := store.Get(n)
		e.message("$(" + n + ") = " + v)
	}
}

// evalArithmetic computes "a op b" on integers, or returns a single integer
func evalArithmetic(expr string) (int64, error) {
	fields := strings.Fields(expr)
	switch len(fields) {
	case 1:
		return strconv.ParseInt(fields[0], 10, 64)
	case 3:
	default:
		return 0, errInvalidExpr(expr)
	}

	a, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, errInvalidExpr(expr)
	}
	b, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return 0, errInvalidExpr(expr)
	}

	switch fields[1] {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "%":
		if b == 0 {
			return 0, errDivisionByZero
		}
		if fields[1] == "/" {
			return a / b, nil
		}
		return a % b, nil
	}
	return 0, errInvalidExpr(expr)
}

type exprError string

func (e exprError) Error() string { return string(e) }

const errDivisionByZero = exprError("division by zero")

func errInvalidExpr(expr string) error {
	return exprError("invalid expression: " + expr)
}

func doUnset(e *Engine, params string) Result {
	params, local := splitLocal(strings.TrimSpace(params))
	name, _, _ := splitAssignment(params)
	if name == "" {
		e.printError("UNSET: variable name expected")
		return ResultInvalidParam
	}

	store := e.globals
	if local {
		store = e.current().vars
	}
	if !store.Unset(name) {
		e.message("$(" + varKey(name) + ") was not set")
		return ResultFailed
	}
	return ResultSucceeded
}

func doEnvSet(e *Engine, params string) Result {
	name, op, value := splitAssignment(strings.TrimSpace(params))
	if name == "" {
		e.printError("ENV_SET: variable name expected")
		return ResultInvalidParam
	}
	if op == "" {
		v, ok := os.LookupEnv(name)
		if !ok {
			e.message("$(" + envPrefix + name + ") is empty")
			return ResultFailed
		}
		e.message("$(" + envPrefix + name + ") = " + v)
		return ResultSucceeded
	}
	if err := os.Setenv(name, value); err != nil {
		e.printError("ENV_SET: " + err.Error())
		return ResultFailed
	}
	return ResultSucceeded
}

func doEnvUnset(e *Engine, params string) Result {
	name := strings.TrimSpace(params)
	if name == "" {
		e.printError("ENV_UNSET: variable name expected")
		return ResultInvalidParam
	}
	if err := os.Unsetenv(name); err != nil {
		e.printError("ENV_UNSET: " + err.Error())
		return ResultFailed
	}
	return ResultSucceeded
}

func doNpeNoEmptyVars(e *Engine, params string) Result {
	if strings.TrimSpace(params) == "" {
		e.message("NPE_NOEMPTYVARS: " + onOff(e.noEmptyVars))
		return ResultSucceeded
	}
	v, ok := parseOnOff(params)
	if !ok {
		e.printError("NPE_NOEMPTYVARS: expected on or off")
		return ResultInvalidParam
	}
	e.noEmptyVars = v
	return ResultSucceeded
}

func doNpeDebugLog(e *Engine, params string) Result {
	if strings.TrimSpace(params) == "" {
		e.message("NPE_DEBUGLOG: " + onOff(e.debugLog))
		return ResultSucceeded
	}
	v, ok := parseOnOff(params)
	if !ok {
		e.printError("NPE_DEBUGLOG: expected on or off")
		return ResultInvalidParam
	}
	e.debugLog = v
	return ResultSucceeded
}

// doNpeCmdAlias handles
//
//	NPE_CMDALIAS                  list aliases
//	NPE_CMDALIAS alias            show one alias
//	NPE_CMDALIAS alias =          remove it
//	NPE_CMDALIAS alias = command  define it
func doNpeCmdAlias(e *Engine, params string) Result {
	alias, op, command := splitAssignment(strings.TrimSpace(params))
	aliases := e.classifier.Aliases()

	if alias == "" {
		if op != "" {
			e.printError("NPE_CMDALIAS: alias name expected")
			return ResultInvalidParam
		}
		if len(aliases) == 0 {
			e.message("no command aliases")
			return ResultSucceeded
		}
		keys := make([]string, 0, len(aliases))
		for k := range aliases {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			e.message(k + " = " + aliases[k])
		}
		return ResultSucceeded
	}

	if op == "" {
		cmd, ok := aliases[strings.ToUpper(alias)]
		if !ok {
			e.message("alias " + strings.ToUpper(alias) + " is not defined")
			return ResultFailed
		}
		e.message(strings.ToUpper(alias) + " = " + cmd)
		return ResultSucceeded
	}
	if op != "=" || strings.ContainsAny(alias, " \t") {
		e.printError("NPE_CMDALIAS: expected alias = command")
		return ResultInvalidParam
	}

	e.classifier.SetAlias(alias, command)
	return ResultSucceeded
}
