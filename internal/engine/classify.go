package engine

import (
	"strings"
	"sync"
	"unicode"
)

// Classification is the result of classifying one script line
type Classification struct {
	Type   CommandType
	Prefix PrefixKind
	// Name is the command token as written, empty for comments
	Name string
	// Params is the trimmed text after the command token. For the default
	// command it is the whole line.
	Params string
	// Line is the line after prefix removal and alias expansion
	Line string
}

// SkipType is the type to test against the IF state: forced collateral
// lines are visible in every state.
func (c Classification) SkipType() CommandType {
	if c.Prefix == PrefixCollateralForced {
		return CmdCollateralForced
	}
	return c.Type
}

// Classifier turns raw lines into classifications
type Classifier struct {
	CommentPrefix string
	// CollateralPrefix marks a collateral line; the same prefix followed by
	// a second ':' marks a forced one.
	CollateralPrefix string

	mu      sync.RWMutex
	aliases map[string]string
}

// NewClassifier creates a classifier with the given markers
func NewClassifier(commentPrefix, collateralPrefix string) *Classifier {
	return &Classifier{
		CommentPrefix:    commentPrefix,
		CollateralPrefix: collateralPrefix,
		aliases:          make(map[string]string),
	}
}

// SetAlias defines or, with an empty command, removes a command alias
func (c *Classifier) SetAlias(alias, command string) {
	key := strings.ToUpper(strings.TrimSpace(alias))
	c.mu.Lock()
	defer c.mu.Unlock()
	if command == "" {
		delete(c.aliases, key)
		return
	}
	c.aliases[key] = strings.TrimSpace(command)
}

// Aliases returns a copy of the alias table
func (c *Classifier) Aliases() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.aliases))
	for k, v := range c.aliases {
		out[k] = v
	}
	return out
}

// StripPrefix removes a leading collateral marker
func (c *Classifier) StripPrefix(line string) (string, PrefixKind) {
	line = strings.TrimSpace(line)
	p := c.CollateralPrefix
	if p == "" {
		return line, PrefixNone
	}
	forced := p + ":"
	if hasPrefixFold(line, forced) {
		return strings.TrimSpace(line[len(forced):]), PrefixCollateralForced
	}
	if hasPrefixFold(line, p) {
		return strings.TrimSpace(line[len(p):]), PrefixCollateralOrRegular
	}
	return line, PrefixNone
}

// Classify resolves the command type of a raw line
func (c *Classifier) Classify(raw string) Classification {
	line, prefix := c.StripPrefix(raw)
	cls := Classification{Type: CmdCommentOrEmpty, Prefix: prefix}

	if line == "" || (c.CommentPrefix != "" && strings.HasPrefix(line, c.CommentPrefix)) {
		cls.Line = line
		return cls
	}

	name, rest := splitFirstToken(line)
	c.mu.RLock()
	expanded, ok := c.aliases[strings.ToUpper(name)]
	c.mu.RUnlock()
	if ok {
		line = strings.TrimSpace(expanded + " " + rest)
		name, rest = splitFirstToken(line)
	}

	cls.Line = line
	cls.Name = name
	cls.Type = Commands().Lookup(name)

	// IF~ is IF with forced numeric comparison
	if cls.Type == CmdUnknown && strings.EqualFold(name, "IF~") {
		cls.Type = CmdIf
	}

	if cls.Type == CmdUnknown {
		cls.Params = line
	} else {
		cls.Params = rest
	}
	return cls
}

// splitFirstToken splits off the first whitespace-delimited token
func splitFirstToken(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
