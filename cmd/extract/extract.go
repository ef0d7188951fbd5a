// `navstat extract` - build report trees from trace stores, save them, publish them, print them.

package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "navstat/cmd"
	. "navstat/common"
	"navstat/db"
	"navstat/engine"
	xt "navstat/extract"
	"navstat/pipeline"
	"navstat/publish"
	"navstat/report"
	"navstat/rollup"
)

type ExtractCommand struct {
	DevArgs
	LoggingArgs
	FileArgs
	LabelArgs
	FormatArgs
	Selection

	OutputDir       string
	MaxWorkers      uint
	NoKernel        bool
	NoTransfer      bool
	NoCommunication bool
	Outliers        bool
	NoSave          bool
	NoCompare       bool
	Cbor            bool
	Compress        string
	KafkaBroker     string
	KafkaTopic      string

	kinds []report.Kind
}

var _ = (Command)((*ExtractCommand)(nil))
var _ = (SetRestArgumentsAPI)((*ExtractCommand)(nil))

func (ec *ExtractCommand) Summary(out io.Writer) {
	fmt.Fprint(out, `Extract kernel, transfer and communication statistics from Nsight Systems
traces (SQLite exports, or postgres:// URIs of imported traces).  One report
is saved per trace, in <output-dir>/<label>/<stem>_parsed_stats.nav, and the
summary tables are printed.  With several traces, -labels is required and
comparison tables are printed too.
`)
}

func (ec *ExtractCommand) RestName() string {
	return "trace"
}

func (ec *ExtractCommand) Add(fs *CLI) {
	ec.DevArgs.Add(fs)
	ec.LoggingArgs.Add(fs)
	ec.LabelArgs.Add(fs)
	ec.FormatArgs.Add(fs)
	ec.Selection.Add(fs)

	fs.Group("extraction")
	fs.UintVar(&ec.MaxWorkers, "max-workers", 0, "Run at most `n` tasks in parallel [default: number of cpus]")
	fs.BoolVar(&ec.NoKernel, "no-kernel", false, "Skip kernel statistics")
	fs.BoolVar(&ec.NoTransfer, "no-transfer", false, "Skip memory transfer statistics")
	fs.BoolVar(&ec.NoCommunication, "no-communication", false, "Skip NVTX communication statistics")
	fs.BoolVar(&ec.Outliers, "outliers", false, "Remove outliers from the cluster datasets")

	fs.Group("output")
	fs.StringVar(&ec.OutputDir, "output-dir", "", "Save reports under `directory` [default: current directory]")
	fs.BoolVar(&ec.NoSave, "no-save", false, "Do not save reports")
	fs.BoolVar(&ec.NoCompare, "no-compare", false, "Do not print comparison tables")
	fs.BoolVar(&ec.Cbor, "cbor", false, "Save reports as CBOR rather than JSON")
	fs.StringVar(&ec.Compress, "compress", "", "Compress saved reports with `method` zstd or lz4")
	fs.StringVar(&ec.KafkaBroker, "kafka-broker", "", "Publish reports to the Kafka broker at `host:port`")
	fs.StringVar(&ec.KafkaTopic, "kafka-topic", "", "Kafka `topic` for reports [default: "+publish.DefaultTopic+"]")
}

func (ec *ExtractCommand) Validate() error {
	var e1, e2, e3, e4, e5, e6, e7 error
	e1 = ec.DevArgs.Validate()
	e2 = ec.FileArgs.Validate()
	if e2 == nil {
		e2 = ec.RequireFiles()
		e3 = ec.LabelArgs.Resolve(ec.Files, true)
	}
	e4 = ec.FormatArgs.Validate()

	ApplyDefault(&ec.OutputDir, ExtractOutput)
	if ec.OutputDir == "" {
		ec.OutputDir = "."
	}
	ApplyDefaultUint(&ec.MaxWorkers, ExtractWorkers)
	ApplyDefault(&ec.KafkaBroker, KafkaBroker)
	ApplyDefault(&ec.KafkaTopic, KafkaTopic)

	if !ec.NoKernel {
		ec.kinds = append(ec.kinds, report.Kernel)
	}
	if !ec.NoTransfer {
		ec.kinds = append(ec.kinds, report.Transfer)
	}
	if !ec.NoCommunication {
		ec.kinds = append(ec.kinds, report.Communication)
	}
	if len(ec.kinds) == 0 {
		e5 = errors.New("All categories are disabled, nothing to do")
	}
	switch ec.Compress {
	case "", "zstd", "lz4":
	default:
		e6 = fmt.Errorf("Unknown -compress method %q", ec.Compress)
	}
	if ec.NoSave && ec.NoOutput && ec.KafkaBroker == "" && ec.Xlsx == "" {
		e7 = errors.New("With -no-save and -no-output there is nothing to do")
	}
	return errors.Join(e1, e2, e3, e4, e5, e6, e7)
}

// ReportPath is where the report for the trace with the label goes.

func (ec *ExtractCommand) ReportPath(trace, label string) string {
	name := report.TraceStem(trace) + strings.TrimSuffix(report.NavSuffix, ".nav")
	if ec.Cbor {
		name += ".cbor"
	} else {
		name += ".nav"
	}
	switch ec.Compress {
	case "zstd":
		name += ".zst"
	case "lz4":
		name += ".lz4"
	}
	return filepath.Join(ec.OutputDir, label, name)
}

func (ec *ExtractCommand) Perform(ctx context.Context, _ io.Reader, stdout, _ io.Writer) error {
	sources := make([]db.Source, len(ec.Files))
	for i, f := range ec.Files {
		src, err := db.OpenSource(f)
		if err != nil {
			return err
		}
		sources[i] = src
	}

	pool := engine.New(engine.Config{Workers: int(ec.MaxWorkers)})
	defer pool.Close()
	Log.Infof("Running with %d workers", pool.Workers())

	builder := pipeline.NewBuilder(pool, pipeline.Options{
		Kinds: ec.kinds,
		Rollup: rollup.Options{
			RemoveOutliers: ec.Outliers,
			SizeOptions:    xt.SizeOptions,
		},
	})
	coll, err := builder.BuildAll(ctx, sources, ec.Labels)
	if err != nil {
		return err
	}

	if !ec.NoSave {
		for i, label := range coll.Labels {
			fn := ec.ReportPath(ec.Files[i], label)
			if err := os.MkdirAll(filepath.Dir(fn), 0755); err != nil {
				return fmt.Errorf("Failed to create output directory: %w", err)
			}
			if err := report.Save(fn, coll.Get(label)); err != nil {
				return err
			}
			Log.Infof("Saved %s", fn)
		}
	}

	if ec.KafkaBroker != "" {
		pub, err := publish.NewPublisher(ec.KafkaBroker, ec.KafkaTopic)
		if err != nil {
			return err
		}
		err = pub.Publish(ctx, coll)
		pub.Close()
		if err != nil {
			return err
		}
	}

	p, err := ec.NewPrinter(stdout)
	if err != nil {
		return err
	}
	multi := coll.Len() > 1
	for _, label := range coll.Labels {
		prefix := ""
		if multi {
			prefix = label
		}
		if err := PrintTree(p, prefix, coll.Get(label), ec.Selection); err != nil {
			return err
		}
	}
	if multi && !ec.NoCompare {
		if err := PrintComparison(p, coll, ec.Selection); err != nil {
			return err
		}
	}
	return p.Close()
}
