package host

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
	mdwlog "github.com/msto63/mExec/foundation/core/log"
	"github.com/msto63/mExec/internal/engine"
)

func newTestHost(input string) *Headless {
	cfg := Config{Logger: mdwlog.NewNop(), Output: &strings.Builder{}}
	if input != "" {
		cfg.Input = strings.NewReader(input)
	}
	return New(cfg)
}

func TestDocuments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	if err := os.WriteFile(path, []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}

	h := newTestHost("")
	if _, err := h.CurrentText(); !mdwerror.HasCode(err, mdwerror.CodeNotFound) {
		t.Errorf("CurrentText() without document error = %v, want not found", err)
	}

	if err := h.OpenDocument(path); err != nil {
		t.Fatalf("OpenDocument() error = %v", err)
	}
	text, err := h.CurrentText()
	if err != nil || text != "package main\n" {
		t.Errorf("CurrentText() = %q, %v", text, err)
	}

	newPath := filepath.Join(dir, "new.txt")
	if err := h.OpenDocument(newPath); err != nil {
		t.Fatalf("OpenDocument(new) error = %v", err)
	}
	if err := h.SetCurrentText("fresh"); err != nil {
		t.Fatal(err)
	}
	if err := h.SwitchDocument("MAIN.GO"); err != nil {
		t.Fatalf("SwitchDocument() by name error = %v", err)
	}
	if got, _ := h.Macro(engine.MacroFileName); got != "main.go" {
		t.Errorf("FILE_NAME = %q, want main.go", got)
	}

	if err := h.SaveAllDocuments(); err != nil {
		t.Fatalf("SaveAllDocuments() error = %v", err)
	}
	if data, _ := os.ReadFile(newPath); string(data) != "fresh" {
		t.Errorf("new.txt = %q, want fresh", data)
	}

	copyPath := filepath.Join(dir, "copy.go")
	if err := h.SaveDocumentAs(copyPath); err != nil {
		t.Fatalf("SaveDocumentAs() error = %v", err)
	}
	if got, _ := h.Macro(engine.MacroFullCurrentPath); got != copyPath {
		t.Errorf("FULL_CURRENT_PATH = %q, want %q", got, copyPath)
	}

	if err := h.CloseDocument(""); err != nil {
		t.Fatalf("CloseDocument() error = %v", err)
	}
	if got, _ := h.Macro(engine.MacroFullCurrentPath); got != newPath {
		t.Errorf("after close FULL_CURRENT_PATH = %q, want %q", got, newPath)
	}
	if err := h.SwitchDocument("missing.txt"); err == nil {
		t.Error("SwitchDocument() to a closed document succeeded")
	}
}

func TestFindReplaceAndSelection(t *testing.T) {
	dir := t.TempDir()
	h := newTestHost("")
	if err := h.OpenDocument(filepath.Join(dir, "a.txt")); err != nil {
		t.Fatal(err)
	}
	if err := h.SetCurrentText("Foo foobar foo\nbar foo"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		flags string
		text  string
		want  int
	}{
		{"0", "foo", 0},
		{"0", "foo", 4},
		{"1", "Foo", -1},
		{"6", "foo", 0},
		{"2", "foo", 11},
	}
	for _, tt := range tests {
		got, err := h.Find(tt.flags, tt.text)
		if err != nil {
			t.Fatalf("Find(%s, %s) error = %v", tt.flags, tt.text, err)
		}
		if got != tt.want {
			t.Errorf("Find(%s, %s) = %d, want %d", tt.flags, tt.text, got, tt.want)
		}
	}

	if sel, _ := h.Selection(); sel != "foo" {
		t.Errorf("Selection() = %q, want foo", sel)
	}
	if got, _ := h.Macro(engine.MacroCurrentLine); got != "1" {
		t.Errorf("CURRENT_LINE = %q, want 1", got)
	}
	if got, _ := h.Macro(engine.MacroCurrentColumn); got != "11" {
		t.Errorf("CURRENT_COLUMN = %q, want 11", got)
	}

	if err := h.SetSelection("baz"); err != nil {
		t.Fatal(err)
	}
	n, err := h.Replace("1", "foo", "x")
	if err != nil || n != 2 {
		t.Errorf("Replace() = %d, %v, want 2", n, err)
	}
	text, _ := h.CurrentText()
	if text != "Foo xbar baz\nbar x" {
		t.Errorf("text = %q", text)
	}

	if _, err := h.Find("x", "foo"); !mdwerror.HasCode(err, mdwerror.CodeInvalidInput) {
		t.Errorf("Find() with bad flags error = %v, want invalid input", err)
	}
}

func TestClipboardFallback(t *testing.T) {
	h := newTestHost("")
	if err := h.SetClipboardText("copied"); err != nil {
		t.Fatal(err)
	}
	if got, _ := h.ClipboardText(); got != "copied" {
		t.Errorf("ClipboardText() = %q, want copied", got)
	}
}

func TestPrompt(t *testing.T) {
	h := newTestHost("alice\n\n")
	if got, err := h.Prompt("Name", "guest"); err != nil || got != "alice" {
		t.Errorf("Prompt() = %q, %v, want alice", got, err)
	}
	if got, err := h.Prompt("Name", "guest"); err != nil || got != "guest" {
		t.Errorf("Prompt() = %q, %v, want the initial value", got, err)
	}
	if _, err := h.Prompt("Name", ""); err == nil {
		t.Error("Prompt() at end of input succeeded")
	}

	if _, err := newTestHost("").Prompt("Name", ""); !mdwerror.HasCode(err, mdwerror.CodeNotFound) {
		t.Errorf("Prompt() without input error = %v, want not found", err)
	}
}

func TestMessagesAndFocus(t *testing.T) {
	h := newTestHost("")
	res, err := h.SendMessage("sci", "2000", "1", "0")
	if err != nil || res.Result != "0" || res.WParam != "1" {
		t.Errorf("SendMessage() = %+v, %v", res, err)
	}
	if got := h.Messages(); len(got) != 1 || got[0] != "sci 2000 1 0" {
		t.Errorf("Messages() = %v", got)
	}
	if err := h.MenuCommand("File|New"); err == nil {
		t.Error("MenuCommand() succeeded in headless mode")
	}
	if err := h.SetFocus("con"); err != nil || h.Focus() != "con" {
		t.Errorf("Focus() = %q, %v", h.Focus(), err)
	}
	if err := h.RunExternal("  "); !mdwerror.HasCode(err, mdwerror.CodeInvalidInput) {
		t.Errorf("RunExternal(blank) error = %v", err)
	}
}

func TestMacrosWithoutDocument(t *testing.T) {
	h := newTestHost("")
	if v, ok := h.Macro(engine.MacroFileName); !ok || v != "" {
		t.Errorf("FILE_NAME = %q, %v, want empty and known", v, ok)
	}
	if _, ok := h.Macro("UNKNOWN_MACRO"); ok {
		t.Error("unknown macro resolved")
	}
	if _, ok := h.Macro(engine.MacroNppDirectory); !ok {
		t.Error("NPP_DIRECTORY did not resolve")
	}
}
