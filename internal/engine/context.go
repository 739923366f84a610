package engine

import (
	"container/list"
	"sort"
	"strings"
)

// scriptLine is one entry of an engine's command list
type scriptLine struct {
	text   string
	number int    // 1-based line number inside its script
	script string // name of the script the line came from
}

// ScriptContext is one nested unit of execution: a line range of the
// engine's command list with its own labels, IF levels and locals.
type ScriptContext struct {
	Name string

	// begin is the first line, end the first line after the range (nil at
	// the end of the list)
	begin, end *list.Element

	labels map[string]*list.Element
	vars   *varScope
	ifs    ifStack
	args   []string

	subscript bool
	// inserted lines belong to this context and are removed when it pops
	inserted bool
}

// IfState returns the live IF state of the context
func (c *ScriptContext) IfState() IfState {
	return c.ifs.Top()
}

// IfDepth returns the number of IF levels entered and not yet closed
func (c *ScriptContext) IfDepth() int {
	return c.ifs.Depth()
}

// Args returns the arguments the context was invoked with
func (c *ScriptContext) Args() []string {
	return c.args
}

// IsSubscript reports whether the context was started by NPP_EXEC
func (c *ScriptContext) IsSubscript() bool {
	return c.subscript
}

// Label returns the line a label points to
func (c *ScriptContext) Label(name string) (*list.Element, bool) {
	el, ok := c.labels[strings.ToUpper(strings.TrimSpace(name))]
	return el, ok
}

// LabelNames returns the known labels in upper case, sorted
func (c *ScriptContext) LabelNames() []string {
	names := make([]string, 0, len(c.labels))
	for k := range c.labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// scanLabels fills the label table from the LABEL lines of the range.
// The first definition of a name wins; later ones are returned as duplicates.
func (c *ScriptContext) scanLabels(cl *Classifier) (duplicates []string) {
	c.labels = make(map[string]*list.Element)
	for el := c.begin; el != nil && el != c.end; el = el.Next() {
		cls := cl.Classify(el.Value.(*scriptLine).text)
		if cls.Type != CmdLabel {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(cls.Params))
		if key == "" {
			continue
		}
		if _, dup := c.labels[key]; dup {
			duplicates = append(duplicates, key)
			continue
		}
		c.labels[key] = el
	}
	return duplicates
}

// contextStack is the per-engine stack of script contexts
type contextStack []*ScriptContext

func (s contextStack) top() *ScriptContext {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

func (s *contextStack) push(c *ScriptContext) {
	*s = append(*s, c)
}

func (s *contextStack) pop() *ScriptContext {
	if len(*s) == 0 {
		return nil
	}
	c := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return c
}

// findByName returns the innermost context running the named script
func (s contextStack) findByName(name string) *ScriptContext {
	for i := len(s) - 1; i >= 0; i-- {
		if strings.EqualFold(s[i].Name, name) {
			return s[i]
		}
	}
	return nil
}

// removeRange deletes the lines [begin, end) from l
func removeRange(l *list.List, begin, end *list.Element) {
	for el := begin; el != nil && el != end; {
		next := el.Next()
		l.Remove(el)
		el = next
	}
}
