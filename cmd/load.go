package cmd

import (
	"fmt"

	. "navstat/common"
	"navstat/report"
)

// LoadCollection loads the report files, labelled in order.

func LoadCollection(files, labels []string) (*report.Collection, error) {
	if len(files) != len(labels) {
		return nil, fmt.Errorf("Expected one label per report, got %d labels for %d reports", len(labels), len(files))
	}
	coll := report.NewCollection()
	for i, fn := range files {
		Log.Infof("Loading %s", fn)
		tree, err := report.Load(fn)
		if err != nil {
			return nil, err
		}
		if err := coll.Add(labels[i], tree); err != nil {
			return nil, err
		}
	}
	return coll, nil
}
