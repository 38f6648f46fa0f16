// internal/tui/reporter.go
// Package tui renders evaluation progress, either as plain log lines or as an
// interactive Bubble Tea progress display.
package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/capeval/capeval/internal/appconfig"
	"github.com/capeval/capeval/internal/pipeline"
	"github.com/capeval/capeval/internal/util"
)

// Reporter is a pipeline reporter with a lifecycle: callers must Stop it once
// the run finishes so the display can shut down cleanly.
type Reporter interface {
	pipeline.Reporter
	Stop()
}

// NewReporter picks the progress display for the current environment. Plain
// log lines are used when progress is disabled or stdout is not a terminal.
func NewReporter(cfg *appconfig.Config) Reporter {
	if cfg.NoProgress || !isTerminal(os.Stdout) {
		return NewLogReporter(os.Stdout)
	}
	return NewProgressReporter()
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// LogReporter prints one line per stage and a counter line per completed
// sample. Suitable for piped output and log files.
type LogReporter struct {
	out       io.Writer
	stage     string
	total     int
	completed int
}

// NewLogReporter returns a reporter writing plain progress lines to out.
func NewLogReporter(out io.Writer) *LogReporter {
	return &LogReporter{out: out}
}

// StageStart records the new stage and prints its header.
func (r *LogReporter) StageStart(name string, total int) {
	r.stage = name
	r.total = total
	r.completed = 0
	header := color.New(color.FgCyan, color.Bold).Sprintf("==> %s", util.TruncateRunes(name, 48))
	fmt.Fprintf(r.out, "%s (%d samples)\n", header, total)
}

// SampleDone prints the running counter for the current stage.
func (r *LogReporter) SampleDone(index int) {
	r.completed++
	fmt.Fprintf(r.out, "    [%d/%d] sample %d done\n", r.completed, r.total, index)
}

// StageDone prints the stage completion line.
func (r *LogReporter) StageDone(name string) {
	fmt.Fprintf(r.out, "%s\n", color.New(color.FgGreen).Sprintf("<== %s complete", name))
}

// Stop is a no-op; log lines need no teardown.
func (r *LogReporter) Stop() {}
