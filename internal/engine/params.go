package engine

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// splitArgs splits s at whitespace. Double quotes group words and are removed.
func splitArgs(s string) []string {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		hasTok  bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			hasTok = true
		case unicode.IsSpace(r) && !inQuote:
			if hasTok {
				args = append(args, cur.String())
				cur.Reset()
				hasTok = false
			}
		default:
			cur.WriteRune(r)
			hasTok = true
		}
	}
	if hasTok {
		args = append(args, cur.String())
	}
	return args
}

// unquote removes one pair of surrounding double quotes
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// parseOnOff understands the switch words accepted by NPE_* commands
func parseOnOff(s string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "1", "+", "true", "yes", "enable":
		return true, true
	case "off", "0", "-", "false", "no", "disable":
		return false, true
	}
	return false, false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// unescape expands \n, \r, \t and \\ for SEL_SETTEXT+
func unescape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\':
			sb.WriteByte('\\')
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// splitIfGoto recognizes "cond GOTO label". The last unquoted GOTO word
// followed by a label wins.
func splitIfGoto(params string) (cond, label string, single bool) {
	inQuote := false
	at := -1
	for i := 0; i < len(params); i++ {
		c := params[i]
		if c == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote || i+4 > len(params) || !strings.EqualFold(params[i:i+4], "GOTO") {
			continue
		}
		before := i == 0 || params[i-1] == ' ' || params[i-1] == '\t'
		after := i+4 < len(params) && (params[i+4] == ' ' || params[i+4] == '\t')
		if before && after && i > 0 {
			at = i
		}
	}
	if at < 0 {
		return params, "", false
	}
	label = strings.TrimSpace(params[at+4:])
	if label == "" {
		return params, "", false
	}
	return strings.TrimSpace(params[:at]), label, true
}

var conditionOps = []string{"==", "!=", "<>", "<=", ">=", "~=", "<", ">", "="}

// evalCondition evaluates an IF condition. Without an operator the value
// is false when empty, 0, off or false. With an operator both sides are
// compared as integers when they parse as such, as strings otherwise.
// numeric forces integer comparison.
func evalCondition(cond string, numeric bool) (bool, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return false, fmt.Errorf("missing condition")
	}

	left, op, right := splitCondition(cond)
	if op == "" {
		v := unquote(cond)
		if numeric {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return false, fmt.Errorf("not a number: %q", v)
			}
			return n != 0, nil
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "off", "false":
			return false, nil
		}
		return true, nil
	}

	l, r := unquote(left), unquote(right)
	ln, lerr := strconv.ParseInt(strings.TrimSpace(l), 10, 64)
	rn, rerr := strconv.ParseInt(strings.TrimSpace(r), 10, 64)
	if lerr == nil && rerr == nil {
		return compareInts(ln, op, rn), nil
	}
	if numeric {
		return false, fmt.Errorf("numeric comparison of %q and %q", l, r)
	}
	return compareStrings(l, op, r), nil
}

func splitCondition(cond string) (left, op, right string) {
	inQuote := false
	for i := 0; i < len(cond); i++ {
		if cond[i] == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		for _, candidate := range conditionOps {
			if strings.HasPrefix(cond[i:], candidate) {
				return strings.TrimSpace(cond[:i]), candidate, strings.TrimSpace(cond[i+len(candidate):])
			}
		}
	}
	return cond, "", ""
}

func compareInts(l int64, op string, r int64) bool {
	switch op {
	case "==", "=", "~=":
		return l == r
	case "!=", "<>":
		return l != r
	case "<":
		return l < r
	case ">":
		return l > r
	case "<=":
		return l <= r
	case ">=":
		return l >= r
	}
	return false
}

func compareStrings(l, op, r string) bool {
	switch op {
	case "==", "=":
		return l == r
	case "~=":
		return strings.EqualFold(l, r)
	case "!=", "<>":
		return l != r
	case "<":
		return l < r
	case ">":
		return l > r
	case "<=":
		return l <= r
	case ">=":
		return l >= r
	}
	return false
}
