package common

import (
	"errors"
	"io"
	"os"
	"path"
	"strconv"

	ini "github.com/lars-t-hansen/ini"
)

// The defaults file is $HOME/.navstat, an ini file:
//
//   [extract]
//   output-dir = /scratch/navstat
//   max-workers = 16
//
//   [output]
//   fmt = csv,header
//
//   [kafka]
//   broker = kafka.example.org:9092
//   topic = navstat-reports

// MT: Constant after initialization
var (
	p              = ini.NewParser()
	store          *ini.Store
	extract        = p.AddSection("extract")
	ExtractOutput  = extract.AddString("output-dir")
	ExtractWorkers = extract.AddString("max-workers")
	output         = p.AddSection("output")
	OutputFormat   = output.AddString("fmt")
	kafka          = p.AddSection("kafka")
	KafkaBroker    = kafka.AddString("broker")
	KafkaTopic     = kafka.AddString("topic")
)

func init() {
	home := os.Getenv("HOME")
	if home == "" {
		return
	}
	fn := path.Join(path.Clean(home), ".navstat")
	input, err := os.Open(fn)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			Log.Errorf("Error in trying to open %s: %s", fn, err.Error())
		}
		return
	}
	defer input.Close()
	if err := LoadDefaults(input); err != nil {
		Log.Errorf("Error in trying to parse %s: %s", fn, err.Error())
	}
}

// LoadDefaults replaces the defaults store.  Only init() and tests call this.

func LoadDefaults(input io.Reader) error {
	s, err := p.Parse(input)
	if err != nil {
		return err
	}
	store = s
	return nil
}

func HasDefault(f *ini.Field) bool {
	return store != nil && f.Present(store)
}

func ApplyDefault(sp *string, f *ini.Field) bool {
	if *sp != "" || store == nil || !f.Present(store) {
		return false
	}
	*sp = os.ExpandEnv(f.StringVal(store))
	return true
}

// Integer defaults are stored as strings and parsed here, a bad value is logged and ignored.

func ApplyDefaultUint(np *uint, f *ini.Field) bool {
	if *np != 0 || store == nil || !f.Present(store) {
		return false
	}
	n, err := strconv.ParseUint(f.StringVal(store), 10, 32)
	if err != nil {
		Log.Warningf("Bad integer value in defaults file: %s", err.Error())
		return false
	}
	*np = uint(n)
	return true
}
