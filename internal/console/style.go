package console

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
)

var colourNames = map[string]string{
	"black":   "0",
	"red":     "1",
	"green":   "2",
	"yellow":  "3",
	"blue":    "4",
	"magenta": "5",
	"cyan":    "6",
	"white":   "7",
	"gray":    "8",
	"grey":    "8",
}

var hexColour = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ParseColour turns "fg=red bg=#102030" into a style
func ParseColour(spec string) (lipgloss.Style, error) {
	style := lipgloss.NewStyle()
	for _, item := range strings.Fields(spec) {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			return style, invalidSpec("colour", item)
		}
		colour, err := parseColourValue(value)
		if err != nil {
			return style, err
		}
		switch strings.ToLower(key) {
		case "fg":
			style = style.Foreground(colour)
		case "bg":
			style = style.Background(colour)
		default:
			return style, invalidSpec("colour", item)
		}
	}
	return style, nil
}

func parseColourValue(v string) (lipgloss.Color, error) {
	lv := strings.ToLower(v)
	if code, ok := colourNames[lv]; ok {
		return lipgloss.Color(code), nil
	}
	if hexColour.MatchString(v) {
		return lipgloss.Color(lv), nil
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 255 {
		return lipgloss.Color(v), nil
	}
	return "", invalidSpec("colour", v)
}

func invalidSpec(what, item string) error {
	return mdwerror.New("invalid " + what + ": " + item).
		WithCode(mdwerror.CodeInvalidInput).
		WithOperation("console.parse")
}

// Filter decides which output lines are shown
type Filter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// ParseFilter reads a list of wildcard masks. "+mask" shows matching lines,
// "-mask" hides them; when includes exist only their matches are shown.
// Masks use * and ? and ignore case.
func ParseFilter(spec string) (*Filter, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "off") {
		return nil, nil
	}

	f := &Filter{}
	for _, item := range strings.Fields(spec) {
		if len(item) < 2 || (item[0] != '+' && item[0] != '-') {
			return nil, invalidSpec("filter", item)
		}
		re := wildcard(item[1:])
		if item[0] == '+' {
			f.include = append(f.include, re)
		} else {
			f.exclude = append(f.exclude, re)
		}
	}
	return f, nil
}

// Match reports whether a line passes the filter
func (f *Filter) Match(line string) bool {
	for _, re := range f.exclude {
		if re.MatchString(line) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, re := range f.include {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func wildcard(mask string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(mask)
	quoted = strings.ReplaceAll(quoted, `\*`, ".*")
	quoted = strings.ReplaceAll(quoted, `\?`, ".")
	return regexp.MustCompile("(?i)^" + quoted + "$")
}
