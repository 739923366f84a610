// Package error provides the structured error type used throughout mExec.
//
// An Error carries a message, an optional cause, a Code, a Severity and a
// map of details. Errors are built fluently:
//
//	err := mdwerror.New("label not found").
//		WithCode(mdwerror.CodeScriptLabelNotFound).
//		WithOperation("engine.goto").
//		WithDetail("label", name)
//
// Callers inspect errors with HasCode and GetCode. The script codes map onto
// the error classes of the script engine: parameter errors, structural
// errors, guard overflows, handler failures and aborts.
package error
