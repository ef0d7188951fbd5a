package cmd

import (
	"io"

	. "navstat/common"
	"navstat/compare"
	"navstat/report"
	"navstat/table"
)

// A Printer sends tables to the output stream (unless -no-output) and to the workbook (if -xlsx).

type Printer struct {
	out  io.Writer
	opts *table.FormatOptions
	wb   *table.Workbook
	xlsx string
}

func (p *Printer) Print(t *table.Table) error {
	if len(t.Rows) == 0 {
		Log.Debugf("Skipping empty table %s", t.Title)
		return nil
	}
	if p.out != nil {
		table.FormatData(p.out, t, p.opts)
	}
	if p.wb != nil {
		return p.wb.Add(t)
	}
	return nil
}

// Close writes the workbook, if any.

func (p *Printer) Close() error {
	if p.wb == nil {
		return nil
	}
	Log.Infof("Writing %d sheet(s) to %s", len(p.wb.Sheets()), p.xlsx)
	return p.wb.SaveAs(p.xlsx)
}

// Which of the per-tree tables to produce.

type Selection struct {
	NoGeneral    bool
	NoSpecific   bool
	NoIndividual bool
}

func (sel *Selection) Add(fs *CLI) {
	fs.Group("output")
	fs.BoolVar(&sel.NoGeneral, "no-general", false, "Do not print the category-wide statistics")
	fs.BoolVar(&sel.NoSpecific, "no-specific", false, "Do not print the per-metric entity summaries")
	fs.BoolVar(&sel.NoIndividual, "no-individual", false, "Do not print the per-entity tables")
}

func titled(label string, t *table.Table) *table.Table {
	if label != "" {
		t.Title = label + ": " + t.Title
	}
	return t
}

// PrintTree prints the tables of one tree.  The label, if not empty, prefixes every title.

func PrintTree(p *Printer, label string, tree *report.Tree, sel Selection) error {
	if err := p.Print(titled(label, table.Overall(tree))); err != nil {
		return err
	}
	for _, k := range tree.Kinds() {
		if !sel.NoGeneral {
			if err := p.Print(titled(label, table.General(tree, k))); err != nil {
				return err
			}
		}
		if !sel.NoSpecific {
			for _, m := range k.Metrics() {
				if err := p.Print(titled(label, table.MetricSummary(tree, k, m))); err != nil {
					return err
				}
			}
		}
		if !sel.NoIndividual {
			for _, e := range tree.Category(k).SortedEntities() {
				if err := p.Print(titled(label, table.Individual(k, e))); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// PrintComparison prints the cross-trace tables of a collection.

func PrintComparison(p *Printer, coll *report.Collection, sel Selection) error {
	if err := p.Print(table.CombinedDuration(coll)); err != nil {
		return err
	}
	for _, k := range report.Kinds {
		if err := p.Print(table.CombinedTotals(coll, k)); err != nil {
			return err
		}
		if !sel.NoGeneral {
			for _, m := range k.Metrics() {
				if err := p.Print(table.CombinedMetric(coll, k, m)); err != nil {
					return err
				}
			}
			if k == report.Transfer {
				if err := p.Print(table.CombinedBandwidth(coll)); err != nil {
					return err
				}
			}
		}
		if !sel.NoIndividual {
			for _, s := range compare.SharedEntities(coll, k) {
				for _, m := range k.Metrics() {
					if err := p.Print(table.CombinedEntity(coll, k, s.Identity, m)); err != nil {
						return err
					}
				}
				if k == report.Transfer {
					if err := p.Print(table.CombinedEntityBandwidth(coll, s.Identity)); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
