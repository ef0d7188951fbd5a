// `navstat compare` - compare saved reports of several traces.

package compare

import (
	"context"
	"errors"
	"fmt"
	"io"

	. "navstat/cmd"
	"navstat/table"
)

type CompareCommand struct {
	DevArgs
	LoggingArgs
	FileArgs
	LabelArgs
	FormatArgs
	Selection
}

var _ = (Command)((*CompareCommand)(nil))
var _ = (SetRestArgumentsAPI)((*CompareCommand)(nil))

func (cc *CompareCommand) Summary(out io.Writer) {
	fmt.Fprint(out, `Compare two or more saved reports: the overall summary of each, the combined
total duration, the per-category totals and rollups, and side-by-side tables
for the entities the traces have in common.
`)
}

func (cc *CompareCommand) RestName() string {
	return "report"
}

func (cc *CompareCommand) Add(fs *CLI) {
	cc.DevArgs.Add(fs)
	cc.LoggingArgs.Add(fs)
	cc.LabelArgs.Add(fs)
	cc.FormatArgs.Add(fs)
	cc.Selection.Add(fs)
}

func (cc *CompareCommand) Validate() error {
	var e1, e2, e3, e4 error
	e1 = cc.DevArgs.Validate()
	e2 = cc.FileArgs.Validate()
	if e2 == nil && len(cc.Files) < 2 {
		e2 = errors.New("At least two reports are required for a comparison")
	}
	if e2 == nil {
		e2 = cc.RequireFiles()
		e3 = cc.LabelArgs.Resolve(cc.Files, false)
	}
	e4 = cc.FormatArgs.Validate()
	return errors.Join(e1, e2, e3, e4)
}

func (cc *CompareCommand) Perform(_ context.Context, _ io.Reader, stdout, _ io.Writer) error {
	coll, err := LoadCollection(cc.Files, cc.Labels)
	if err != nil {
		return err
	}
	p, err := cc.NewPrinter(stdout)
	if err != nil {
		return err
	}
	for _, label := range coll.Labels {
		t := table.Overall(coll.Get(label))
		t.Title = label + ": " + t.Title
		if err := p.Print(t); err != nil {
			return err
		}
	}
	if err := PrintComparison(p, coll, cc.Selection); err != nil {
		return err
	}
	return p.Close()
}
