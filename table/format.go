package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gomarkdown/markdown"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Tables.
//
// A table is a title, a header and rows of cells.  Cells are int64, float64 or string; numbers are
// rendered per format, grouped by thousands in the human-readable formats and plain in the
// machine-readable ones.  A nil cell is missing data.

type Table struct {
	Title  string
	Header []string
	Rows   [][]any
}

func New(title string, header ...string) *Table {
	return &Table{Title: title, Header: header}
}

func (t *Table) Add(cells ...any) {
	t.Rows = append(t.Rows, cells)
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Formatting specs.
//
// The -fmt option is a comma-separated list of a format (fixed, csv, json, awk, markdown, html) and
// attributes: header, noheader, tag:<tag>.  Fixed output has a header unless noheader is given,
// csv and awk only if header is given; json never has one.  The tag is printed as an extra
// trailing column.

type Format int

const (
	FormatFixed Format = iota
	FormatCsv
	FormatJson
	FormatAwk
	FormatMarkdown
	FormatHtml
)

var formatNames = map[string]Format{
	"fixed":    FormatFixed,
	"csv":      FormatCsv,
	"json":     FormatJson,
	"awk":      FormatAwk,
	"markdown": FormatMarkdown,
	"html":     FormatHtml,
}

type FormatOptions struct {
	Format Format
	Header bool
	Tag    string
}

func (fo *FormatOptions) human() bool {
	return fo.Format == FormatFixed || fo.Format == FormatMarkdown || fo.Format == FormatHtml
}

func ParseFormatOptions(spec string) (*FormatOptions, error) {
	opts := &FormatOptions{Format: FormatFixed}
	var header, noheader, explicit bool
	var errs []error
	if spec != "" {
		for _, s := range strings.Split(spec, ",") {
			s = strings.TrimSpace(s)
			if f, found := formatNames[s]; found {
				if explicit && f != opts.Format {
					errs = append(errs, fmt.Errorf("Conflicting formats in %q", spec))
				}
				opts.Format = f
				explicit = true
				continue
			}
			switch {
			case s == "header":
				header = true
			case s == "noheader":
				noheader = true
			case strings.HasPrefix(s, "tag:"):
				opts.Tag = s[4:]
			case s == "":
			default:
				errs = append(errs, fmt.Errorf("Unknown format attribute %q", s))
			}
		}
	}
	switch opts.Format {
	case FormatFixed, FormatMarkdown, FormatHtml:
		opts.Header = !noheader
	case FormatCsv, FormatAwk:
		opts.Header = header
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return opts, nil
}

// MT: Constant after initialization; thread-safe.
var printer = message.NewPrinter(language.English)

func FormatCell(cell any, human bool) string {
	switch v := cell.(type) {
	case nil:
		if human {
			return "-"
		}
		return ""
	case string:
		return v
	case int64:
		if human {
			return printer.Sprintf("%d", v)
		}
		return strconv.FormatInt(v, 10)
	case int:
		return FormatCell(int64(v), human)
	case float64:
		if human {
			return printer.Sprintf("%.2f", v)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case *int64:
		if v == nil {
			return FormatCell(nil, human)
		}
		return FormatCell(*v, human)
	}
	return fmt.Sprint(cell)
}

// FormatData writes the table in the requested format.  Fixed, markdown and html formats are
// preceded by the title.

func FormatData(out io.Writer, t *Table, opts *FormatOptions) {
	header := t.Header
	cells := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells[r] = make([]string, len(header))
		for c := range header {
			var cell any
			if c < len(row) {
				cell = row[c]
			}
			cells[r][c] = FormatCell(cell, opts.human())
		}
		if opts.Tag != "" {
			cells[r] = append(cells[r], opts.Tag)
		}
	}
	if opts.Tag != "" {
		header = append(header[:len(header):len(header)], "tag")
	}

	switch opts.Format {
	case FormatCsv:
		formatCsv(out, header, opts, cells)
	case FormatJson:
		formatJson(out, header, cells)
	case FormatAwk:
		formatAwk(out, header, opts, cells)
	case FormatMarkdown:
		formatMarkdown(out, t.Title, header, cells)
	case FormatHtml:
		formatHtml(out, t.Title, header, cells)
	default:
		formatFixed(out, t.Title, header, opts, cells)
	}
}

// The expectation here is that this is fairly low volume and that it's not worth it to try to
// optimize it to avoid allocations.
func formatFixed(unbufOut io.Writer, title string, header []string, opts *FormatOptions, rows [][]string) {
	out := Buffered(unbufOut)
	defer out.Flush()

	widths := make([]int, len(header))
	if opts.Header {
		for col, h := range header {
			widths[col] = max(widths[col], utf8.RuneCountInString(h))
		}
	}
	for _, row := range rows {
		for col, s := range row {
			widths[col] = max(widths[col], utf8.RuneCountInString(s))
		}
	}

	if title != "" {
		fmt.Fprintf(out, "%s\n\n", title)
	}
	var s strings.Builder
	if opts.Header {
		s.Reset()
		for col, h := range header {
			writeStringPadded(&s, widths[col], h)
		}
		fmt.Fprintln(out, strings.TrimRight(s.String(), " "))
	}
	for _, row := range rows {
		s.Reset()
		for col, v := range row {
			writeStringPadded(&s, widths[col], v)
		}
		fmt.Fprintln(out, strings.TrimRight(s.String(), " "))
	}
	if title != "" {
		fmt.Fprintln(out)
	}
}

// This padder is much faster than the equivalent Sprint(), and allocates almost nothing at all.
//
// We will almost never need more spaces than initial_spaces; the padder will create more as
// necessary but not update the global string b/c that would require a lock.
const initial_spaces = "                                                                                "

func writeStringPadded(s *strings.Builder, width int, str string) {
	spaces := initial_spaces
	needed := width - utf8.RuneCountInString(str) + 2
	for len(spaces) < needed {
		spaces = spaces + spaces
	}
	s.WriteString(str)
	s.WriteString(spaces[:needed])
}

func formatCsv(out io.Writer, header []string, opts *FormatOptions, rows [][]string) {
	w := csv.NewWriter(out)
	defer w.Flush()

	if opts.Header {
		w.Write(header)
	}
	for _, row := range rows {
		w.Write(row)
	}
}

// There's no natural fit for the JSON encoder here, so just do it manually.
func formatJson(unbufOut io.Writer, header []string, rows [][]string) {
	out := Buffered(unbufOut)
	defer out.Flush()

	quotedFields := make([]string, len(header))
	for i := range header {
		quotedFields[i] = "\"" + QuoteJson(header[i]) + "\""
	}

	fmt.Fprint(out, "[")
	rowSep := ""
	var s strings.Builder
	for _, row := range rows {
		s.Reset()
		s.WriteString(rowSep)
		s.WriteRune('{')
		fieldSep := ""
		for col, val := range row {
			s.WriteString(fieldSep)
			s.WriteString(quotedFields[col])
			s.WriteString(":\"")
			s.WriteString(QuoteJson(val))
			s.WriteRune('"')
			fieldSep = ","
		}
		s.WriteRune('}')
		fmt.Fprint(out, s.String())
		rowSep = ","
	}
	fmt.Fprintln(out, "]")
}

func QuoteJson(s string) string {
	found := false
	for _, r := range s {
		if r < ' ' || r == '"' || r == '\\' {
			found = true
			break
		}
	}
	if !found {
		return s
	}
	var t strings.Builder
	for _, r := range s {
		if r < ' ' {
			r = ' '
		} else if r == '"' || r == '\\' {
			t.WriteRune('\\')
		}
		t.WriteRune(r)
	}
	return t.String()
}

// awk output: fields are space-separated and spaces are not allowed within fields, they are
// replaced by `_`.  Empty fields are printed as `.`.
func formatAwk(unbufOut io.Writer, header []string, opts *FormatOptions, rows [][]string) {
	out := Buffered(unbufOut)
	defer out.Flush()

	var line strings.Builder
	emit := func(vals []string) {
		line.Reset()
		sep := ""
		for _, val := range vals {
			line.WriteString(sep)
			if val == "" {
				val = "."
			}
			line.WriteString(strings.ReplaceAll(val, " ", "_"))
			sep = " "
		}
		fmt.Fprintln(out, line.String())
	}
	if opts.Header {
		emit(header)
	}
	for _, row := range rows {
		emit(row)
	}
}

func markdownTable(title string, header []string, rows [][]string) []byte {
	var b strings.Builder
	cell := func(s string) string {
		return strings.ReplaceAll(s, "|", "\\|")
	}
	if title != "" {
		fmt.Fprintf(&b, "### %s\n\n", title)
	}
	b.WriteString("|")
	for _, h := range header {
		b.WriteString(" " + cell(h) + " |")
	}
	b.WriteString("\n|")
	for range header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("|")
		for _, v := range row {
			b.WriteString(" " + cell(v) + " |")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

func formatMarkdown(out io.Writer, title string, header []string, rows [][]string) {
	out.Write(markdownTable(title, header, rows))
}

func formatHtml(out io.Writer, title string, header []string, rows [][]string) {
	out.Write(markdown.ToHTML(markdownTable(title, header, rows), nil, nil))
}

func Buffered(unbufOut io.Writer) *bufio.Writer {
	if b, ok := unbufOut.(*bufio.Writer); ok {
		return b
	}
	return bufio.NewWriter(unbufOut)
}
