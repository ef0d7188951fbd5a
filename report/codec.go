package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/gvallee/go_util/pkg/util"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Report files.  The format follows from the file name: `.nav` and `.json` are indented JSON, `.cbor`
// is CBOR, and either may carry a trailing `.zst` or `.lz4` compression suffix, eg
// `run_parsed_stats.nav.zst`.

var ErrUnknownFormat = errors.New("Unknown report file format")

type Format int

const (
	FormatJSON Format = iota
	FormatCBOR
)

type Compression int

const (
	CompressNone Compression = iota
	CompressZstd
	CompressLZ4
)

const NavSuffix = "_parsed_stats.nav"

func FormatOf(filename string) (Format, Compression, error) {
	name := strings.ToLower(filepath.Base(filename))
	comp := CompressNone
	switch {
	case strings.HasSuffix(name, ".zst"):
		comp = CompressZstd
		name = strings.TrimSuffix(name, ".zst")
	case strings.HasSuffix(name, ".lz4"):
		comp = CompressLZ4
		name = strings.TrimSuffix(name, ".lz4")
	}
	switch filepath.Ext(name) {
	case ".nav", ".json":
		return FormatJSON, comp, nil
	case ".cbor":
		return FormatCBOR, comp, nil
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrUnknownFormat, filename)
}

// DefaultFileName is the NAV file name for a trace: the trace's base name without extension, with
// NavSuffix.

func DefaultFileName(tracePath string) string {
	return TraceStem(tracePath) + NavSuffix
}

func TraceStem(tracePath string) string {
	base := filepath.Base(tracePath)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

func Encode(w io.Writer, t *Tree, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(t)
	case FormatCBOR:
		return cbor.NewEncoder(w).Encode(t)
	}
	return ErrUnknownFormat
}

func Decode(r io.Reader, f Format) (*Tree, error) {
	t := NewTree()
	var err error
	switch f {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(t)
	case FormatCBOR:
		err = cbor.NewDecoder(r).Decode(t)
	default:
		err = ErrUnknownFormat
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func Save(filename string, t *Tree) (err error) {
	f, comp, err := FormatOf(filename)
	if err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	var w io.Writer = file
	var closer io.Closer
	switch comp {
	case CompressZstd:
		zw, zerr := zstd.NewWriter(file)
		if zerr != nil {
			return zerr
		}
		w, closer = zw, zw
	case CompressLZ4:
		lw := lz4.NewWriter(file)
		w, closer = lw, lw
	}
	err = Encode(w, t, f)
	if closer != nil {
		err = errors.Join(err, closer.Close())
	}
	if err != nil {
		return fmt.Errorf("Failed to write %s: %w", filename, err)
	}
	return nil
}

func Load(filename string) (*Tree, error) {
	f, comp, err := FormatOf(filename)
	if err != nil {
		return nil, err
	}
	if !util.PathExists(filename) {
		return nil, fmt.Errorf("Report file %s does not exist", filename)
	}
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var r io.Reader = file
	switch comp {
	case CompressZstd:
		zr, err := zstd.NewReader(file)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	case CompressLZ4:
		r = lz4.NewReader(file)
	}
	t, err := Decode(r, f)
	if err != nil {
		return nil, fmt.Errorf("Failed to read %s: %w", filename, err)
	}
	return t, nil
}
