// Read-only HTTP API over a set of loaded reports.
//
//   GET /traces                   labels with their categories and totals
//   GET /traces/{label}           the full report tree, in NAV form
//   GET /traces/{label}/{category}
//                                 one category of a tree; {category} is anything ParseKind accepts
//   GET /compare/{category}       per-trace totals and the shared entities of the category; with
//                                 ?metric=name also the per-trace blocks of every shared entity.
//                                 For transfers the metric can be "Bandwidth Distribution", which
//                                 gives the per-trace distributions and the per-trace pools instead
//
// The OpenAPI description is served at /openapi.json and the docs at /docs.

package daemon

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"navstat/compare"
	"navstat/report"
	"navstat/stats"
)

// The store is replaced wholesale on reload, handlers take a snapshot.
//
// MT: Locked
type Store struct {
	lock sync.RWMutex
	coll *report.Collection
}

func NewStore(coll *report.Collection) *Store {
	return &Store{coll: coll}
}

func (s *Store) Collection() *report.Collection {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.coll
}

func (s *Store) Replace(coll *report.Collection) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.coll = coll
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Wire types

type TraceInfo struct {
	Label             string   `json:"label"`
	Categories        []string `json:"categories"`
	RelativeTimeTotal int64    `json:"relativeTimeTotal"`
	TotalDuration     *int64   `json:"totalDuration,omitempty"`
}

type TracesOutput struct {
	Body struct {
		Traces []TraceInfo `json:"traces"`
	}
}

type TraceInput struct {
	Label string `path:"label" doc:"Trace label"`
}

// Tree and category bodies are encoded by their own MarshalJSON.
type TreeOutput struct {
	Body any
}

type CategoryInput struct {
	Label    string `path:"label" doc:"Trace label"`
	Category string `path:"category" doc:"Category, eg kernel, transfer, communication"`
}

type CompareInput struct {
	Category string `path:"category" doc:"Category, eg kernel, transfer, communication"`
	Metric   string `query:"metric" doc:"Metric of the shared entities to include"`
}

type TotalsInfo struct {
	Label             string  `json:"label"`
	TimeTotal         int64   `json:"timeTotal"`
	Instance          int64   `json:"instance"`
	RelativeTimeTotal int64   `json:"relativeTimeTotal"`
	RelativePercent   float64 `json:"relativePercent"`
	TotalDuration     *int64  `json:"totalDuration,omitempty"`
}

type SideInfo struct {
	Label     string                    `json:"label"`
	Block     *stats.Block              `json:"block"`
	Bandwidth *stats.PairedDistribution `json:"bandwidth,omitempty"`
}

// Pooled bandwidth of one trace; Block is over the bandwidth values.
type BandwidthInfo struct {
	Label        string                    `json:"label"`
	Pairs        [][2]float64              `json:"pairs"`
	Block        *stats.Block              `json:"block"`
	Distribution *stats.PairedDistribution `json:"distribution,omitempty"`
}

type SharedInfo struct {
	Identity string     `json:"identity"`
	Labels   []string   `json:"labels"`
	Sides    []SideInfo `json:"sides,omitempty"`
}

type CompareOutput struct {
	Body struct {
		Category string       `json:"category"`
		Totals    []TotalsInfo    `json:"totals"`
		Shared    []SharedInfo    `json:"shared"`
		Bandwidth []BandwidthInfo `json:"bandwidth,omitempty"`
	}
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Routes

func NewAPI(mux *http.ServeMux, store *Store, version string) huma.API {
	api := humago.New(mux, huma.DefaultConfig("navstat", version))
	Register(api, store)
	return api
}

func Register(api huma.API, store *Store) {
	huma.Get(api, "/traces", func(ctx context.Context, _ *struct{}) (*TracesOutput, error) {
		coll := store.Collection()
		out := new(TracesOutput)
		out.Body.Traces = make([]TraceInfo, 0, coll.Len())
		for _, label := range coll.Labels {
			tree := coll.Get(label)
			cats := make([]string, 0)
			for _, k := range tree.Kinds() {
				cats = append(cats, k.CategoryKey())
			}
			out.Body.Traces = append(out.Body.Traces, TraceInfo{
				Label:             label,
				Categories:        cats,
				RelativeTimeTotal: tree.RelativeTimeTotal,
				TotalDuration:     tree.TotalDuration,
			})
		}
		return out, nil
	})

	huma.Get(api, "/traces/{label}", func(ctx context.Context, in *TraceInput) (*TreeOutput, error) {
		tree := store.Collection().Get(in.Label)
		if tree == nil {
			return nil, huma.Error404NotFound("No such trace: " + in.Label)
		}
		return &TreeOutput{Body: tree}, nil
	})

	huma.Get(api, "/traces/{label}/{category}", func(ctx context.Context, in *CategoryInput) (*TreeOutput, error) {
		tree := store.Collection().Get(in.Label)
		if tree == nil {
			return nil, huma.Error404NotFound("No such trace: " + in.Label)
		}
		kind, err := report.ParseKind(in.Category)
		if err != nil {
			return nil, huma.Error404NotFound(err.Error())
		}
		cat := tree.Category(kind)
		if cat == nil {
			return nil, huma.Error404NotFound("Trace " + in.Label + " has no " + kind.CategoryKey())
		}
		return &TreeOutput{Body: cat}, nil
	})

	huma.Get(api, "/compare/{category}", func(ctx context.Context, in *CompareInput) (*CompareOutput, error) {
		kind, err := report.ParseKind(in.Category)
		if err != nil {
			return nil, huma.Error404NotFound(err.Error())
		}
		if in.Metric != "" && !slices.Contains(compare.Metrics(kind), in.Metric) {
			return nil, huma.Error404NotFound("No metric " + in.Metric + " for " + kind.CategoryKey())
		}
		return compareCategory(store.Collection(), kind, in.Metric), nil
	})
}

func compareCategory(coll *report.Collection, kind report.Kind, metric string) *CompareOutput {
	out := new(CompareOutput)
	out.Body.Category = kind.CategoryKey()
	out.Body.Totals = make([]TotalsInfo, 0)
	for _, t := range compare.CompareTotals(coll, kind) {
		out.Body.Totals = append(out.Body.Totals, TotalsInfo{
			Label:             t.Label,
			TimeTotal:         t.TimeTotal,
			Instance:          t.Instance,
			RelativeTimeTotal: t.RelativeTimeTotal,
			RelativePercent:   t.RelativePercent,
			TotalDuration:     t.TotalDuration,
		})
	}
	bandwidth := kind == report.Transfer && metric == report.BandwidthDistribution
	out.Body.Shared = make([]SharedInfo, 0)
	for _, s := range compare.SharedEntities(coll, kind) {
		info := SharedInfo{Identity: s.Identity, Labels: s.Labels}
		switch {
		case bandwidth:
			for _, side := range compare.CompareBandwidth(coll, s.Identity) {
				info.Sides = append(info.Sides, SideInfo{side.Label, side.Block, side.Bandwidth})
			}
		case metric != "":
			for _, side := range compare.CompareEntity(coll, kind, s.Identity, metric) {
				info.Sides = append(info.Sides, SideInfo{Label: side.Label, Block: side.Block})
			}
		}
		out.Body.Shared = append(out.Body.Shared, info)
	}
	if bandwidth {
		out.Body.Bandwidth = make([]BandwidthInfo, 0)
		for _, p := range compare.PoolBandwidth(coll) {
			out.Body.Bandwidth = append(out.Body.Bandwidth, BandwidthInfo{p.Label, p.Pairs, p.Block, p.Distribution})
		}
	}
	return out
}
