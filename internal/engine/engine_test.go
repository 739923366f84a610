package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
)

func TestIfElseScenarios(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{"true branch", "IF 1\nECHO yes\nELSE\nECHO no\nENDIF", []string{"yes"}},
		{"false branch", "IF 0\nECHO yes\nELSE\nECHO no\nENDIF", []string{"no"}},
		{"no else", "IF 0\nECHO yes\nENDIF\nECHO after", []string{"after"}},
		{"string compare", "IF abc == abc\nECHO eq\nENDIF", []string{"eq"}},
		{"numeric compare", "IF 10 > 9\nECHO gt\nELSE\nECHO le\nENDIF", []string{"gt"}},
		{"lowercase keywords", "if 1\necho yes\nelse\necho no\nendif", []string{"yes"}},
		{"nested true", "IF 1\nIF 1\nECHO inner\nENDIF\nECHO outer\nENDIF", []string{"inner", "outer"}},
		{"nested in false else", "IF 0\nECHO a\nELSE\nIF 1\nECHO b\nENDIF\nENDIF", []string{"b"}},
		{"comments ignored", "// comment\n\nECHO x", []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, con, err := runScript(t, tt.script)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := con.Lines(); !equalLines(got, tt.want) {
				t.Errorf("output = %v, want %v", got, tt.want)
			}
			if e.Status() != StatusDone {
				t.Errorf("Status() = %v, want %v", e.Status(), StatusDone)
			}
		})
	}
}

func TestNestedFalseIfIsSilent(t *testing.T) {
	script := "IF 0\nECHO a\nIF 1\nECHO b\nENDIF\nECHO c\nENDIF\nECHO after"
	e, con, err := runScript(t, script)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"after"}) {
		t.Errorf("output = %v, want [after]", got)
	}
	// IF 0, ENDIF and ECHO after are dispatched; the silent IF/ENDIF pair is not
	if e.ExecCount() != 3 {
		t.Errorf("ExecCount() = %d, want 3", e.ExecCount())
	}
}

func TestGotoGuardOverflow(t *testing.T) {
	script := "LABEL start\nECHO tick\nGOTO start"
	e, con, err := runScript(t, script, func(o *Options) { o.GotoMaxCount = 100 })

	if !mdwerror.HasCode(err, mdwerror.CodeScriptGuardOverflow) {
		t.Fatalf("Run() error = %v, want guard overflow", err)
	}
	if got := len(con.Lines()); got != 101 {
		t.Errorf("ECHO ran %d times, want 101", got)
	}
	if e.GotoCount() != 101 {
		t.Errorf("GotoCount() = %d, want 101", e.GotoCount())
	}
	if e.Status() != StatusFailed {
		t.Errorf("Status() = %v, want %v", e.Status(), StatusFailed)
	}
}

func TestSetLoopHitsGotoCeiling(t *testing.T) {
	script := "LABEL start\nSET x=1\nGOTO start"
	_, _, err := runScript(t, script, func(o *Options) { o.GotoMaxCount = 100 })
	if !mdwerror.HasCode(err, mdwerror.CodeScriptGuardOverflow) {
		t.Fatalf("Run() error = %v, want guard overflow", err)
	}
	got, _ := mdwerror.As(err)
	if v, _ := got.Detail("counter"); v != "goto" {
		t.Errorf("counter = %v, want goto", v)
	}
}

func TestExecGuardOverflow(t *testing.T) {
	script := "ECHO 1\nECHO 2\nECHO 3\nECHO 4"
	e, con, err := runScript(t, script, func(o *Options) { o.ExecMaxCount = 2 })
	if !mdwerror.HasCode(err, mdwerror.CodeScriptGuardOverflow) {
		t.Fatalf("Run() error = %v, want guard overflow", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"1", "2"}) {
		t.Errorf("output = %v, want [1 2]", got)
	}
	if e.ExecCount() != 3 {
		t.Errorf("ExecCount() = %d, want 3", e.ExecCount())
	}
}

func TestStructuralErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{"else without if", "ECHO before\nELSE\nECHO after", []string{"before"}},
		{"endif without if", "ENDIF\nECHO after", nil},
		{"else after else", "IF 1\nELSE\nELSE\nECHO x\nENDIF", nil},
		{"if without endif", "IF 1\nECHO x", []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, con, err := runScript(t, tt.script)
			if !mdwerror.HasCode(err, mdwerror.CodeScriptStructure) {
				t.Fatalf("Run() error = %v, want structure error", err)
			}
			if got := con.Lines(); !equalLines(got, tt.want) {
				t.Errorf("output = %v, want %v", got, tt.want)
			}
			if len(con.Errors()) == 0 {
				t.Error("expected an error on the console")
			}
			if e.Status() != StatusFailed {
				t.Errorf("Status() = %v, want %v", e.Status(), StatusFailed)
			}
		})
	}
}

func TestLabelNotFound(t *testing.T) {
	_, con, err := runScript(t, "GOTO nowhere\nECHO x")
	if !mdwerror.HasCode(err, mdwerror.CodeScriptLabelNotFound) {
		t.Fatalf("Run() error = %v, want label not found", err)
	}
	if len(con.Lines()) != 0 {
		t.Errorf("output = %v, want none", con.Lines())
	}
}

func TestGotoForwardAndCaseInsensitiveLabels(t *testing.T) {
	script := "GOTO End\nECHO skipped\nlabel END\nECHO done"
	_, con, err := runScript(t, script)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"done"}) {
		t.Errorf("output = %v, want [done]", got)
	}
}

func TestDuplicateLabelFirstWins(t *testing.T) {
	script := "GOTO x\nLABEL x\nECHO first\nGOTO end\nLABEL x\nECHO second\nLABEL end"
	_, con, err := runScript(t, script)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"first"}) {
		t.Errorf("output = %v, want [first]", got)
	}
}

func TestElseAfterGotoInsideIf(t *testing.T) {
	script := "IF 1\nGOTO skip\nECHO hidden\nLABEL skip\nELSE\nECHO else\nENDIF\nECHO end"
	_, con, err := runScript(t, script)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"else", "end"}) {
		t.Errorf("output = %v, want [else end]", got)
	}
}

func TestLoopWithIfGoto(t *testing.T) {
	script := strings.Join([]string{
		"SET local i = 0",
		"LABEL loop",
		"IF $(i) < 3",
		"  ECHO $(i)",
		"  SET local i ~ $(i) + 1",
		"  GOTO loop",
		"ENDIF",
		"ECHO end",
	}, "\n")
	_, con, err := runScript(t, script)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"0", "1", "2", "end"}
	if got := con.Lines(); !equalLines(got, want) {
		t.Errorf("output = %v, want %v", got, want)
	}
}

func TestSingleLineIfGoto(t *testing.T) {
	script := "SET local n = 2\nIF $(n) == 2 GOTO two\nECHO other\nLABEL two\nECHO two\nIF 0 GOTO two\nECHO end"
	e, con, err := runScript(t, script)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"two", "end"}) {
		t.Errorf("output = %v, want [two end]", got)
	}
	if e.current() != nil {
		t.Error("context stack should be empty after the run")
	}
}

func TestStopOnError(t *testing.T) {
	script := "CD /definitely/not/here\nECHO after"

	_, con, err := runScript(t, script)
	if err != nil {
		t.Fatalf("Run() without stop on error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"after"}) {
		t.Errorf("output = %v, want [after]", got)
	}

	_, con, err = runScript(t, script, func(o *Options) { o.StopOnError = true })
	if !mdwerror.HasCode(err, mdwerror.CodeScriptCommandFailed) {
		t.Fatalf("Run() error = %v, want command failed", err)
	}
	if len(con.Lines()) != 0 {
		t.Errorf("output = %v, want none", con.Lines())
	}
}

func TestContinueExecutionOverridesStopOnError(t *testing.T) {
	calls := 0
	_, con, err := runScript(t, "CD /definitely/not/here\nECHO after", func(o *Options) {
		o.StopOnError = true
		o.ContinueExecution = func(*Engine) bool {
			calls++
			return true
		}
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls == 0 {
		t.Error("ContinueExecution was never called")
	}
	if got := con.Lines(); !equalLines(got, []string{"after"}) {
		t.Errorf("output = %v, want [after]", got)
	}
}

func TestLastCmdResult(t *testing.T) {
	script := "CD /definitely/not/here\nECHO $(LAST_CMD_RESULT)\nSLEEP x\nECHO $(LAST_CMD_RESULT)\nECHO $(LAST_CMD_RESULT)"
	_, con, err := runScript(t, script)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"0", "-1", "1"}
	if got := con.Lines(); !equalLines(got, want) {
		t.Errorf("output = %v, want %v", got, want)
	}
}

func TestNppExecNested(t *testing.T) {
	scripts := mapScripts{
		"greet": "ECHO hello $(ARGV[1]) of $(ARGC)\nGOTO end\nECHO skipped\nLABEL end\nECHO $(ARGV[0])",
	}
	script := "NPP_EXEC greet \"big world\" x\nECHO back\nLABEL end\nECHO tail"
	e, con, err := runScript(t, script, func(o *Options) { o.Scripts = scripts })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"hello big world of 2", "greet", "back", "tail"}
	if got := con.Lines(); !equalLines(got, want) {
		t.Errorf("output = %v, want %v", got, want)
	}
	if e.lines.Len() != 4 {
		t.Errorf("command list holds %d lines after the nested run, want 4", e.lines.Len())
	}
}

func TestNppExecLabelsAreScoped(t *testing.T) {
	scripts := mapScripts{"sub": "GOTO outer\nECHO sub"}
	script := "NPP_EXEC sub\nECHO result $(LAST_CMD_RESULT)\nLABEL outer\nECHO outer"
	e, con, err := runScript(t, script, func(o *Options) { o.Scripts = scripts })
	if err != nil {
		t.Fatalf("Run() error = %v, want the caller to continue", err)
	}
	want := []string{"result 0", "outer"}
	if got := con.Lines(); !equalLines(got, want) {
		t.Errorf("output = %v, want %v", got, want)
	}
	if e.Status() != StatusDone {
		t.Errorf("Status() = %v, want %v", e.Status(), StatusDone)
	}
}

func TestNppExecStructuralErrorEndsOnlyNestedContext(t *testing.T) {
	scripts := mapScripts{"bad": "ECHO in\nENDIF\nECHO never"}
	_, con, err := runScript(t, "NPP_EXEC bad\nECHO after", func(o *Options) { o.Scripts = scripts })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"in", "after"}) {
		t.Errorf("output = %v, want [in after]", got)
	}
}

func TestNppExecMissingScript(t *testing.T) {
	_, con, err := runScript(t, "NPP_EXEC missing\nECHO $(LAST_CMD_RESULT)", func(o *Options) {
		o.Scripts = mapScripts{}
		o.Dir = t.TempDir()
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"0"}) {
		t.Errorf("output = %v, want [0]", got)
	}
}

func TestLocalVariablesAndSharing(t *testing.T) {
	scripts := mapScripts{"sub": "ECHO [$(v)]\nSET local v = inner"}
	script := "SET local v = outer\nNPP_EXEC sub\nECHO $(v)"

	_, con, err := runScript(t, script, func(o *Options) {
		o.Scripts = scripts
		o.NoEmptyVars = true
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"[]", "outer"}) {
		t.Errorf("isolated output = %v, want [[] outer]", got)
	}

	_, con, err = runScript(t, script, func(o *Options) {
		o.Scripts = scripts
		o.Flags = FlagShareLocalVars
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"[outer]", "inner"}) {
		t.Errorf("shared output = %v, want [[outer] inner]", got)
	}
}

func TestForcedCollateralLineRunsWhileSkipping(t *testing.T) {
	script := "IF 0\nECHO skipped\nnppexec::ECHO forced\nnppexec:ECHO plain\nENDIF"
	_, con, err := runScript(t, script)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"forced"}) {
		t.Errorf("output = %v, want [forced]", got)
	}
}

func TestAbortStopsLoop(t *testing.T) {
	con := &fakeConsole{}
	opts := testOptions("LABEL a\nSLEEP 5\nGOTO a", con)
	opts.GotoMaxCount = 1000000
	opts.ExecMaxCount = 10000000
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	e.Start(context.Background())
	if e.WaitUntilDone(0) {
		t.Fatal("WaitUntilDone(0) = true while running")
	}
	time.Sleep(20 * time.Millisecond)
	e.Abort("test")

	if !e.WaitUntilDone(2 * time.Second) {
		t.Fatal("engine did not stop after Abort")
	}
	if e.Status() != StatusAborted {
		t.Errorf("Status() = %v, want %v", e.Status(), StatusAborted)
	}
	if !mdwerror.HasCode(e.Err(), mdwerror.CodeScriptAborted) {
		t.Errorf("Err() = %v, want aborted", e.Err())
	}
	if !e.WaitUntilDone(0) {
		t.Error("WaitUntilDone(0) = false after done")
	}
}

func TestContextCancelAborts(t *testing.T) {
	con := &fakeConsole{}
	e, err := New(testOptions("SLEEP 10000\nECHO never", con))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = e.Run(ctx)
	if !mdwerror.HasCode(err, mdwerror.CodeScriptAborted) {
		t.Fatalf("Run() error = %v, want aborted", err)
	}
	if len(con.Lines()) != 0 {
		t.Errorf("output = %v, want none", con.Lines())
	}
}

func TestUndoAbort(t *testing.T) {
	con := &fakeConsole{}
	e, err := New(testOptions("ECHO x", con))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if e.UndoAbort("nothing pending") {
		t.Error("UndoAbort() = true without an abort")
	}
	e.Abort("first")
	if !e.IsAborting() {
		t.Fatal("IsAborting() = false after Abort")
	}
	if !e.UndoAbort("changed mind") {
		t.Fatal("UndoAbort() = false with a pending abort")
	}
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"x"}) {
		t.Errorf("output = %v, want [x]", got)
	}
	if e.UndoAbort("too late") {
		t.Error("UndoAbort() = true after the engine finished")
	}
}

func TestRunTwiceFails(t *testing.T) {
	e, _, err := runScript(t, "ECHO x")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := e.Run(context.Background()); !mdwerror.HasCode(err, mdwerror.CodeInternal) {
		t.Errorf("second Run() error = %v, want internal", err)
	}
}

func TestNewRejectsNegativeCeilings(t *testing.T) {
	_, err := New(Options{ExecMaxCount: -1})
	if !mdwerror.HasCode(err, mdwerror.CodeInvalidInput) {
		t.Errorf("New() error = %v, want invalid input", err)
	}
}

func TestHistoryRecorded(t *testing.T) {
	hist := &recordingHistory{}
	e, _, err := runScript(t, "ECHO a\nGOTO nowhere", func(o *Options) { o.History = hist })
	if err == nil {
		t.Fatal("Run() error = nil, want label not found")
	}

	runs := hist.Runs()
	if len(runs) != 1 {
		t.Fatalf("recorded %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.ID != e.ID().String() {
		t.Errorf("ID = %q, want %q", run.ID, e.ID())
	}
	if run.Status != StatusFailed {
		t.Errorf("Status = %v, want %v", run.Status, StatusFailed)
	}
	if run.ErrorCode != string(mdwerror.CodeScriptLabelNotFound) {
		t.Errorf("ErrorCode = %q, want %q", run.ErrorCode, mdwerror.CodeScriptLabelNotFound)
	}
	if run.ExecCount != 2 {
		t.Errorf("ExecCount = %d, want 2", run.ExecCount)
	}
}

func TestRecursiveNppExecHitsExecCeiling(t *testing.T) {
	scripts := mapScripts{"self": "ECHO x\nNPP_EXEC self"}
	var (
		maxDepth  int
		recursive bool
	)
	e, con, err := runScript(t, "NPP_EXEC self", func(o *Options) {
		o.Scripts = scripts
		o.ExecMaxCount = 50
		o.ContinueExecution = func(e *Engine) bool {
			if d := e.ContextDepth(); d > maxDepth {
				maxDepth = d
			}
			self := e.FindContextByName("SELF")
			if self != nil && self.IsSubscript() && e.ContextDepth() > 2 {
				if main := e.FindContextByName("test"); main != nil && !main.IsSubscript() {
					recursive = true
				}
			}
			return true
		}
	})
	if !mdwerror.HasCode(err, mdwerror.CodeScriptGuardOverflow) {
		t.Fatalf("Run() error = %v, want guard overflow", err)
	}
	got, _ := mdwerror.As(err)
	if v, _ := got.Detail("counter"); v != "exec" {
		t.Errorf("counter = %v, want exec", v)
	}
	if e.ExecCount() != 51 {
		t.Errorf("ExecCount() = %d, want 51", e.ExecCount())
	}
	if n := len(con.Lines()); n != 25 {
		t.Errorf("echoed %d lines, want 25", n)
	}
	if maxDepth != 26 {
		t.Errorf("max context depth = %d, want 26", maxDepth)
	}
	if !recursive {
		t.Error("FindContextByName() did not report the nested self calls")
	}
}

func TestGotoLabelInsideSkippedBranch(t *testing.T) {
	script := strings.Join([]string{
		"IF 1",
		"GOTO hidden",
		"ENDIF",
		"IF 0",
		"LABEL hidden",
		"ECHO found",
		"ENDIF",
		"ECHO end",
	}, "\n")
	var labels []string
	e, con, err := runScript(t, script, func(o *Options) {
		o.ContinueExecution = func(e *Engine) bool {
			if labels == nil {
				labels = e.Current().LabelNames()
			}
			return true
		}
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := con.Lines(); !equalLines(got, []string{"found", "end"}) {
		t.Errorf("output = %v, want [found end]", got)
	}
	if !equalLines(labels, []string{"HIDDEN"}) {
		t.Errorf("LabelNames() = %v, want [HIDDEN]", labels)
	}
	if e.GotoCount() != 1 {
		t.Errorf("GotoCount() = %d, want 1", e.GotoCount())
	}
}

func TestUnterminatedIfCountsLiveLevels(t *testing.T) {
	_, _, err := runScript(t, "IF 0\nIF 1\nECHO x")
	if !mdwerror.HasCode(err, mdwerror.CodeScriptStructure) {
		t.Fatalf("Run() error = %v, want structural error", err)
	}
	got, _ := mdwerror.As(err)
	if v, _ := got.Detail("open_ifs"); v != 1 {
		t.Errorf("open_ifs = %v, want 1", v)
	}
}
