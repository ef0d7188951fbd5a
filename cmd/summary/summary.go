// `navstat summary` - print the tables of saved reports.

package summary

import (
	"context"
	"errors"
	"fmt"
	"io"

	. "navstat/cmd"
)

type SummaryCommand struct {
	DevArgs
	LoggingArgs
	FileArgs
	LabelArgs
	FormatArgs
	Selection
}

var _ = (Command)((*SummaryCommand)(nil))
var _ = (SetRestArgumentsAPI)((*SummaryCommand)(nil))

func (sc *SummaryCommand) Summary(out io.Writer) {
	fmt.Fprint(out, `Print the overall summary, the category-wide statistics, the per-metric entity
summaries and the per-entity tables of one or more saved reports.
`)
}

func (sc *SummaryCommand) RestName() string {
	return "report"
}

func (sc *SummaryCommand) Add(fs *CLI) {
	sc.DevArgs.Add(fs)
	sc.LoggingArgs.Add(fs)
	sc.LabelArgs.Add(fs)
	sc.FormatArgs.Add(fs)
	sc.Selection.Add(fs)
}

func (sc *SummaryCommand) Validate() error {
	var e1, e2, e3, e4 error
	e1 = sc.DevArgs.Validate()
	e2 = sc.FileArgs.Validate()
	if e2 == nil {
		e2 = sc.RequireFiles()
		e3 = sc.LabelArgs.Resolve(sc.Files, false)
	}
	e4 = sc.FormatArgs.Validate()
	return errors.Join(e1, e2, e3, e4)
}

func (sc *SummaryCommand) Perform(_ context.Context, _ io.Reader, stdout, _ io.Writer) error {
	coll, err := LoadCollection(sc.Files, sc.Labels)
	if err != nil {
		return err
	}
	p, err := sc.NewPrinter(stdout)
	if err != nil {
		return err
	}
	for _, label := range coll.Labels {
		prefix := ""
		if coll.Len() > 1 {
			prefix = label
		}
		if err := PrintTree(p, prefix, coll.Get(label), sc.Selection); err != nil {
			return err
		}
	}
	return p.Close()
}
