// The report tree: per trace, one Category per entity kind with the individual entities, the
// category-wide rollups and the category totals, plus process-wide totals.
//
// Trees are built once by the pipeline and are read-only after Summarize() has run; exporters and
// the daemon share them freely between goroutines.

package report

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"navstat/stats"
)

type Kind int

const (
	Kernel Kind = iota
	Transfer
	Communication
)

var Kinds = []Kind{Kernel, Transfer, Communication}

// Metric names, shared by extraction, rollups and consumers.
const (
	ExecutionDuration     = "Execution Duration"
	LaunchOverhead        = "Launch Overhead"
	Slack                 = "Slack"
	TransferSize          = "Transfer Size"
	TransferDurations     = "Transfer Durations"
	BandwidthDistribution = "Bandwidth Distribution"
)

// Report tree keys.
const (
	keyTimeTotal         = "Time Total"
	keyInstance          = "Instance"
	keyTimePercent       = "Time Percent"
	keyMemoryTotal       = "Memory Total"
	keyTotalDuration     = "Total Duration"
	keyRelativeTimeTotal = "Relative Time Total"
)

func (k Kind) String() string {
	switch k {
	case Kernel:
		return "Kernel"
	case Transfer:
		return "Transfer"
	case Communication:
		return "Communication"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// CategoryKey is the top-level key of the category, "Kernel Statistics" etc.
func (k Kind) CategoryKey() string {
	return k.String() + " Statistics"
}

// IndividualKey is the key of the per-entity map inside the category.
func (k Kind) IndividualKey() string {
	return "Individual " + k.String() + "s"
}

// Transfers are identified by their type (copy kind), the others by name.
func (k Kind) NameKey() string {
	if k == Transfer {
		return "Type"
	}
	return "Name"
}

// Metrics are the per-entity metric blocks of the kind, in presentation order.
func (k Kind) Metrics() []string {
	switch k {
	case Kernel:
		return []string{ExecutionDuration, LaunchOverhead, Slack}
	case Transfer:
		return []string{TransferSize, TransferDurations}
	case Communication:
		return []string{ExecutionDuration}
	}
	return nil
}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if s == k.String() || s == k.CategoryKey() || s == k.IndividualKey() {
			return k, nil
		}
	}
	switch s {
	case "kernel", "kernels":
		return Kernel, nil
	case "transfer", "transfers":
		return Transfer, nil
	case "communication", "communications", "nvtx":
		return Communication, nil
	}
	return 0, fmt.Errorf("Unknown category %q", s)
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Entities

// An Entity is one kernel, one transfer direction or one NVTX tag.  Key is the identity used by the
// raw-sample query (for kernels, the short-name string id); Name is the display name.  A metric that
// is present in Metrics with a nil block had no valid samples.

type Entity struct {
	Key         string
	Name        string
	TimePercent float64
	TimeTotal   int64
	Instance    int64
	MemoryTotal *int64
	Metrics     map[string]*stats.Block
	Bandwidth   *stats.PairedDistribution
}

// Block returns the metric block or nil.
func (e *Entity) Block(metric string) *stats.Block {
	if e == nil || e.Metrics == nil {
		return nil
	}
	return e.Metrics[metric]
}

// Identity is what comparisons across traces match on: the display name for kernels (kernel ids
// are per-trace string ids), the key otherwise.
func (e *Entity) Identity(k Kind) string {
	if k == Kernel {
		return e.Name
	}
	return e.Key
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Categories and trees

type Category struct {
	Kind     Kind
	Entities map[string]*Entity

	// Rollups by metric name; a metric with no pooled samples is absent.
	Rollups map[string]*stats.Block

	// Transfers only: bandwidth pooled over all entities, bucketed by pooled transfer size.
	Bandwidth *stats.PairedDistribution

	TimeTotal int64
	Instance  int64
}

func NewCategory(kind Kind) *Category {
	return &Category{
		Kind:     kind,
		Entities: make(map[string]*Entity),
		Rollups:  make(map[string]*stats.Block),
	}
}

// SortedEntities orders by Time Total, largest first, breaking ties on key.

func (c *Category) SortedEntities() []*Entity {
	es := slices.Collect(maps.Values(c.Entities))
	slices.SortFunc(es, func(a, b *Entity) int {
		if a.TimeTotal != b.TimeTotal {
			return cmp.Compare(b.TimeTotal, a.TimeTotal)
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return es
}

// Summarize sets the category totals from the entities that have both a time total and an
// instance count.

func (c *Category) Summarize() {
	c.TimeTotal, c.Instance = 0, 0
	for _, e := range c.Entities {
		if e.TimeTotal != 0 && e.Instance != 0 {
			c.TimeTotal += e.TimeTotal
			c.Instance += e.Instance
		}
	}
}

type Tree struct {
	Categories        map[Kind]*Category
	TotalDuration     *int64
	RelativeTimeTotal int64
}

func NewTree() *Tree {
	return &Tree{Categories: make(map[Kind]*Category)}
}

func (t *Tree) Category(k Kind) *Category {
	if t == nil {
		return nil
	}
	return t.Categories[k]
}

// Present categories in canonical order.
func (t *Tree) Kinds() []Kind {
	ks := make([]Kind, 0, len(t.Categories))
	for _, k := range Kinds {
		if t.Categories[k] != nil {
			ks = append(ks, k)
		}
	}
	return ks
}

func (t *Tree) Summarize() {
	t.RelativeTimeTotal = 0
	for _, c := range t.Categories {
		c.Summarize()
		t.RelativeTimeTotal += c.TimeTotal
	}
}

// RelativePercent is the category's share of all category time, rounded to two decimals.

func (t *Tree) RelativePercent(k Kind) float64 {
	c := t.Categories[k]
	if c == nil || t.RelativeTimeTotal == 0 {
		return 0
	}
	return stats.RoundTo(float64(c.TimeTotal)*100/float64(t.RelativeTimeTotal), 2)
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// A Collection holds the trees of a multi-trace run, keyed by trace label and kept in the order the
// traces were given.

type Collection struct {
	Labels []string
	Trees  map[string]*Tree
}

func NewCollection() *Collection {
	return &Collection{Trees: make(map[string]*Tree)}
}

func (c *Collection) Add(label string, t *Tree) error {
	if _, found := c.Trees[label]; found {
		return fmt.Errorf("Duplicate trace label %q", label)
	}
	c.Labels = append(c.Labels, label)
	c.Trees[label] = t
	return nil
}

func (c *Collection) Get(label string) *Tree {
	return c.Trees[label]
}

func (c *Collection) Len() int {
	return len(c.Labels)
}
