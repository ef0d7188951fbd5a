package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/fxamacker/cbor/v2"

	"navstat/stats"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Encoding.
//
// The tree is written as nested objects whose keys are the human-readable names used throughout
// (`Kernel Statistics`, `Individual Kernels`, `Time Total` and so on).  JSON output keeps entities
// in Time Total order so that a NAV file reads top-down; CBOR output uses plain maps.

type field struct {
	key   string
	value any
}

type object []field

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o object) MarshalCBOR() ([]byte, error) {
	m := make(map[string]any, len(o))
	for _, f := range o {
		m[f.key] = f.value
	}
	return cbor.Marshal(m)
}

func entityObject(k Kind, e *Entity) object {
	o := object{
		{k.NameKey(), e.Name},
		{keyTimePercent, e.TimePercent},
		{keyTimeTotal, e.TimeTotal},
		{keyInstance, e.Instance},
	}
	if k == Transfer {
		o = append(o, field{keyMemoryTotal, e.MemoryTotal})
	}
	for _, m := range k.Metrics() {
		if b, found := e.Metrics[m]; found {
			o = append(o, field{m, b})
		}
	}
	if k == Transfer {
		o = append(o, field{BandwidthDistribution, e.Bandwidth})
	}
	return o
}

func (c *Category) object() object {
	entities := make(object, 0, len(c.Entities))
	for _, e := range c.SortedEntities() {
		entities = append(entities, field{e.Key, entityObject(c.Kind, e)})
	}
	o := object{{c.Kind.IndividualKey(), entities}}
	for _, m := range c.Kind.Metrics() {
		if b := c.Rollups[m]; b != nil {
			o = append(o, field{m, b})
		}
	}
	if c.Bandwidth != nil {
		o = append(o, field{BandwidthDistribution, c.Bandwidth})
	}
	return append(o, field{keyTimeTotal, c.TimeTotal}, field{keyInstance, c.Instance})
}

func (t *Tree) object() object {
	o := object{}
	for _, k := range t.Kinds() {
		o = append(o, field{k.CategoryKey(), t.Categories[k].object()})
	}
	if t.TotalDuration != nil {
		o = append(o, field{keyTotalDuration, *t.TotalDuration})
	}
	return append(o, field{keyRelativeTimeTotal, t.RelativeTimeTotal})
}

func (c *Category) MarshalJSON() ([]byte, error) {
	return c.object().MarshalJSON()
}

func (c *Category) MarshalCBOR() ([]byte, error) {
	return c.object().MarshalCBOR()
}

func (t *Tree) MarshalJSON() ([]byte, error) {
	return t.object().MarshalJSON()
}

func (t *Tree) MarshalCBOR() ([]byte, error) {
	return t.object().MarshalCBOR()
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Decoding.  Both formats are first split into raw per-key messages and then decoded field by
// field, with the same logic for both.

type decoder struct {
	unmarshal func([]byte, any) error
	object    func([]byte) (map[string][]byte, error)
	isNull    func([]byte) bool
}

func rawFields[R ~[]byte](m map[string]R) map[string][]byte {
	fs := make(map[string][]byte, len(m))
	for k, v := range m {
		fs[k] = []byte(v)
	}
	return fs
}

var jsonDecoder = decoder{
	unmarshal: json.Unmarshal,
	object: func(b []byte) (map[string][]byte, error) {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		return rawFields(m), nil
	},
	isNull: func(b []byte) bool {
		return string(bytes.TrimSpace(b)) == "null"
	},
}

var cborDecoder = decoder{
	unmarshal: cbor.Unmarshal,
	object: func(b []byte) (map[string][]byte, error) {
		var m map[string]cbor.RawMessage
		if err := cbor.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		return rawFields(m), nil
	},
	isNull: func(b []byte) bool {
		// null and undefined
		return len(b) == 1 && (b[0] == 0xf6 || b[0] == 0xf7)
	},
}

func (t *Tree) UnmarshalJSON(data []byte) error {
	return t.decode(data, jsonDecoder)
}

func (t *Tree) UnmarshalCBOR(data []byte) error {
	return t.decode(data, cborDecoder)
}

// Keys that are not part of the tree are ignored.  Category totals are recomputed from the
// entities, so files written without them load to the same tree.

func (t *Tree) decode(data []byte, d decoder) error {
	fields, err := d.object(data)
	if err != nil {
		return err
	}
	t.Categories = make(map[Kind]*Category)
	t.TotalDuration = nil
	for key, v := range fields {
		if d.isNull(v) {
			continue
		}
		switch key {
		case keyTotalDuration:
			var n int64
			if err := d.unmarshal(v, &n); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			t.TotalDuration = &n
		case keyRelativeTimeTotal:
			// Recomputed below
		default:
			for _, k := range Kinds {
				if key == k.CategoryKey() {
					c, err := decodeCategory(k, v, d)
					if err != nil {
						return fmt.Errorf("%s: %w", key, err)
					}
					t.Categories[k] = c
				}
			}
		}
	}
	t.Summarize()
	return nil
}

func decodeCategory(k Kind, data []byte, d decoder) (*Category, error) {
	fields, err := d.object(data)
	if err != nil {
		return nil, err
	}
	c := NewCategory(k)
	for key, v := range fields {
		if d.isNull(v) {
			continue
		}
		switch {
		case key == k.IndividualKey():
			entities, err := d.object(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			for ek, ev := range entities {
				e, err := decodeEntity(k, ek, ev, d)
				if err != nil {
					return nil, fmt.Errorf("%s/%s: %w", key, ek, err)
				}
				c.Entities[ek] = e
			}
		case key == BandwidthDistribution && k == Transfer:
			c.Bandwidth = new(stats.PairedDistribution)
			if err := d.unmarshal(v, c.Bandwidth); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		case slices.Contains(k.Metrics(), key):
			b, err := decodeBlock(v, d)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			c.Rollups[key] = b
		}
	}
	return c, nil
}

func decodeEntity(k Kind, key string, data []byte, d decoder) (*Entity, error) {
	fields, err := d.object(data)
	if err != nil {
		return nil, err
	}
	// Metrics stays nil unless some metric key is present, which is how failed entities are told
	// apart from ones without samples.
	e := &Entity{Key: key}
	setMetric := func(m string, b *stats.Block) {
		if e.Metrics == nil {
			e.Metrics = make(map[string]*stats.Block)
		}
		e.Metrics[m] = b
	}
	for fk, v := range fields {
		null := d.isNull(v)
		var err error
		switch {
		case null && slices.Contains(k.Metrics(), fk):
			setMetric(fk, nil)
		case null:
		case fk == "Name" || fk == "Type":
			err = d.unmarshal(v, &e.Name)
		case fk == keyTimePercent:
			err = d.unmarshal(v, &e.TimePercent)
		case fk == keyTimeTotal:
			err = d.unmarshal(v, &e.TimeTotal)
		case fk == keyInstance:
			err = d.unmarshal(v, &e.Instance)
		case fk == keyMemoryTotal:
			var n int64
			err = d.unmarshal(v, &n)
			e.MemoryTotal = &n
		case fk == BandwidthDistribution:
			e.Bandwidth = new(stats.PairedDistribution)
			err = d.unmarshal(v, e.Bandwidth)
		case slices.Contains(k.Metrics(), fk):
			var b *stats.Block
			b, err = decodeBlock(v, d)
			setMetric(fk, b)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fk, err)
		}
	}
	return e, nil
}

// Distributions written without bin edges are accepted as they are; otherwise the shape is
// checked.
func decodeBlock(data []byte, d decoder) (*stats.Block, error) {
	b := new(stats.Block)
	if err := d.unmarshal(data, b); err != nil {
		return nil, err
	}
	if b.Distribution != nil && len(b.Distribution.Edges) > 0 {
		if err := b.Distribution.Validate(); err != nil {
			return nil, err
		}
	}
	return b, nil
}
