package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gvallee/go_util/pkg/util"

	. "navstat/common"
	"navstat/report"
	"navstat/status"
	"navstat/table"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// DevArgs are for development and their inclusion can be controlled with the devArgs setting,
// below.

type DevArgs struct {
	CpuProfile string
}

const devArgs = true

func (d *DevArgs) CpuProfileFile() string {
	return d.CpuProfile
}

func (d *DevArgs) Add(fs *CLI) {
	if devArgs {
		fs.Group("development")
		fs.StringVar(&d.CpuProfile, "cpuprofile", "",
			"(Development) write cpu profile to `filename`")
	}
}

func (d *DevArgs) Validate() error {
	return nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Logging: -v lowers the level to info, -debug to debug, -log-json sends everything as JSON lines
// to stderr through zap.

type LoggingArgs struct {
	Verbose bool
	Debug   bool
	LogJSON bool
}

func (la *LoggingArgs) Add(fs *CLI) {
	fs.Group("development")
	fs.BoolVar(&la.Verbose, "v", false, "Print verbose diagnostics to stderr")
	fs.BoolVar(&la.Verbose, "verbose", false, "Print verbose diagnostics to stderr")
	fs.BoolVar(&la.Debug, "debug", false, "Print debug diagnostics to stderr")
	fs.BoolVar(&la.LogJSON, "log-json", false, "Print diagnostics as JSON lines")
}

func (la *LoggingArgs) Validate() error {
	return nil
}

func (la *LoggingArgs) LoggingFlags() *LoggingArgs {
	return la
}

func (la *LoggingArgs) Level() status.LogLevel {
	switch {
	case la.Debug:
		return status.LogLevelDebug
	case la.Verbose:
		return status.LogLevelInfo
	}
	return status.LogLevelWarning
}

// ConfigureLogging sets up Log according to the flags.  The returned function flushes the JSON
// sink, if any, and should be deferred.

func (la *LoggingArgs) ConfigureLogging(component string) (func(), error) {
	Log.LowerLevelTo(la.Level())
	if !la.LogJSON {
		return func() {}, nil
	}
	z, err := status.NewJSONUnderlying(la.Level(), component)
	if err != nil {
		return nil, fmt.Errorf("Failed to set up JSON logging: %w", err)
	}
	Log.SetStderr(nil)
	Log.SetUnderlying(z)
	return func() { z.Sync() }, nil
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// FileArgs hold the rest arguments: trace stores or report files.

type FileArgs struct {
	Files []string
}

func (fa *FileArgs) SetRestArguments(args []string) {
	fa.Files = args
}

func (fa *FileArgs) Validate() error {
	if len(fa.Files) == 0 {
		return errors.New("At least one input file is required")
	}
	return nil
}

// RequireFiles checks that the local files exist.  Database URIs are not checked here.

func (fa *FileArgs) RequireFiles() error {
	var errs []error
	for _, f := range fa.Files {
		if !strings.Contains(f, "://") && !util.PathExists(f) {
			errs = append(errs, fmt.Errorf("%s does not exist", f))
		}
	}
	return errors.Join(errs...)
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Labels name the traces of a run.  When labels are given there must be one per input file.
// Otherwise, if not required, each file is labeled by its stem.

type LabelArgs struct {
	labelSpec string
	Labels    []string
}

func (la *LabelArgs) Add(fs *CLI) {
	fs.Group("data-source")
	fs.StringVar(&la.labelSpec, "labels", "",
		"Comma-separated `labels`, one per input file, in order")
}

func (la *LabelArgs) Resolve(files []string, required bool) error {
	if la.labelSpec == "" {
		if required && len(files) > 1 {
			return errors.New("-labels is required with more than one input file")
		}
		la.Labels = make([]string, len(files))
		for i, f := range files {
			la.Labels[i] = labelOf(f)
		}
		return nil
	}
	la.Labels = strings.Split(la.labelSpec, ",")
	for i := range la.Labels {
		la.Labels[i] = strings.TrimSpace(la.Labels[i])
		if la.Labels[i] == "" {
			return errors.New("Empty label in -labels")
		}
	}
	if len(la.Labels) != len(files) {
		return fmt.Errorf("Number of labels (%d) and input files (%d) must match", len(la.Labels), len(files))
	}
	return nil
}

// Report files are named <stem>_parsed_stats.nav and the label is the stem; for traces it is the
// trace stem.  Database URIs are labeled by their last path element.

func labelOf(f string) string {
	if i := strings.Index(f, "://"); i >= 0 {
		f = f[i+3:]
		if j := strings.IndexAny(f, "?"); j >= 0 {
			f = f[:j]
		}
	}
	return strings.TrimSuffix(report.TraceStem(f), strings.TrimSuffix(report.NavSuffix, ".nav"))
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Output formatting.  -fmt defaults to the [output] fmt setting of the defaults file.

type FormatArgs struct {
	Fmt      string
	Xlsx     string
	NoOutput bool
	opts     *table.FormatOptions
}

func (fa *FormatArgs) Add(fs *CLI) {
	fs.Group("output")
	fs.StringVar(&fa.Fmt, "fmt", "",
		"Table format: fixed, csv, json, awk, markdown or html, optionally with header or noheader")
	fs.StringVar(&fa.Xlsx, "xlsx", "", "Also write all tables to the workbook `filename`")
	fs.BoolVar(&fa.NoOutput, "no-output", false, "Do not print tables")
}

func (fa *FormatArgs) Validate() error {
	ApplyDefault(&fa.Fmt, OutputFormat)
	var err error
	fa.opts, err = table.ParseFormatOptions(fa.Fmt)
	return err
}

func (fa *FormatArgs) NewPrinter(out io.Writer) (*Printer, error) {
	p := &Printer{opts: fa.opts, xlsx: fa.Xlsx}
	if !fa.NoOutput {
		p.out = out
	}
	if fa.Xlsx != "" {
		wb, err := table.NewWorkbook()
		if err != nil {
			return nil, err
		}
		p.wb = wb
	}
	return p, nil
}
