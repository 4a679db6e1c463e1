// Package bucket partitions sample ids into named buckets by the value a
// feature takes on each sample.
//
// Two strategies exist. Discrete bucketing groups by exact value and caps
// the number of buckets, merging the least frequent values into "other".
// Range bucketing assigns numeric values to half-open intervals whose edges
// are either supplied or derived by equal-frequency binning.
//
// Bucket order is the order in which each bucket is first encountered while
// scanning the column, except that the merged "other" bucket always comes
// last. Sample ids inside a bucket keep column order. Identical inputs
// always produce identical output.
package bucket

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/vk/bucketgrid/internal/ctxlog"
	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/features"
)

// Bucket is one named group of sample ids.
type Bucket struct {
	Key       Key
	SampleIDs []int
}

// Name returns the internal name of the bucket.
func (b Bucket) Name() string { return b.Key.String() }

// Buckets is an ordered bucket list.
type Buckets []Bucket

// Names returns the internal names in order.
func (bs Buckets) Names() []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Name()
	}
	return out
}

// Lookup returns the bucket with the given internal name.
func (bs Buckets) Lookup(name string) (Bucket, bool) {
	for _, b := range bs {
		if b.Name() == name {
			return b, true
		}
	}
	return Bucket{}, false
}

// Map returns name -> ids. It is a convenience for tests and reporting; it
// loses bucket order.
func (bs Buckets) Map() map[string][]int {
	out := make(map[string][]int, len(bs))
	for _, b := range bs {
		out[b.Name()] = b.SampleIDs
	}
	return out
}

// Len returns the total number of sample ids across all buckets.
func (bs Buckets) Len() int {
	n := 0
	for _, b := range bs {
		n += len(b.SampleIDs)
	}
	return n
}

// Compute buckets a feature column. values[i] belongs to sample ids[i] and
// must already be normalized to the feature's dtype.
func Compute(ctx context.Context, d *features.Descriptor, values []any, ids []int) (Buckets, error) {
	if len(values) != len(ids) {
		return nil, fmt.Errorf("bucket %q: %d values for %d ids", d.Name, len(values), len(ids))
	}
	spec := d.Bucket
	if spec == nil {
		return nil, diag.Configf("feature "+d.Name, "no bucket strategy")
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Bucketing feature.", "feature", d.Name, "strategy", string(spec.Strategy), "samples", len(ids))

	switch spec.Strategy {
	case features.Discrete:
		return Discrete(values, ids, spec.Number, spec.TieBreak), nil
	case features.Range:
		nums, err := toFloats(d.Name, values)
		if err != nil {
			return nil, err
		}
		if len(spec.Boundaries) > 0 {
			return Explicit(nums, ids, spec.Boundaries), nil
		}
		return EqualFrequency(nums, ids, spec.Number), nil
	default:
		return nil, diag.Configf("feature "+d.Name, "unknown bucket strategy %q", spec.Strategy)
	}
}

func toFloats(feature string, values []any) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case float64:
			out[i] = x
		case int:
			out[i] = float64(x)
		case nil:
			out[i] = math.NaN()
		default:
			return nil, diag.Configf("feature "+feature, "range bucketing needs numeric values, got %T", v)
		}
	}
	return out, nil
}

// accumulator collects ids under keys in first-encounter order.
type accumulator struct {
	order []string
	keys  map[string]Key
	ids   map[string][]int
}

func newAccumulator() *accumulator {
	return &accumulator{keys: make(map[string]Key), ids: make(map[string][]int)}
}

func (a *accumulator) add(k Key, id int) {
	name := k.String()
	if _, ok := a.keys[name]; !ok {
		a.order = append(a.order, name)
		a.keys[name] = k
	}
	a.ids[name] = append(a.ids[name], id)
}

func (a *accumulator) buckets() Buckets {
	out := make(Buckets, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, Bucket{Key: a.keys[name], SampleIDs: a.ids[name]})
	}
	return out
}

func isNaN(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

// Discrete groups ids by exact value. When more than limit distinct values
// occur, the limit-1 most frequent keep their own bucket and the rest merge
// into "other". tie orders values of equal frequency; the zero value means
// FirstSeen. A limit below one disables the cap.
func Discrete(values []any, ids []int, limit int, tie features.TieBreak) Buckets {
	type entry struct {
		name  string
		first int
		count int
	}
	var (
		order   []*entry
		byName  = make(map[string]*entry)
		names   = make([]string, len(values))
		missing = make([]bool, len(values))
	)
	for i, v := range values {
		if v == nil || isNaN(v) {
			missing[i] = true
			continue
		}
		name := fmt.Sprint(v)
		names[i] = name
		e, ok := byName[name]
		if !ok {
			e = &entry{name: name, first: len(order)}
			byName[name] = e
			order = append(order, e)
		}
		e.count++
	}

	keep := make(map[string]bool, len(order))
	if limit < 1 || len(order) <= limit {
		for _, e := range order {
			keep[e.name] = true
		}
	} else {
		ranked := append([]*entry(nil), order...)
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].count != ranked[j].count {
				return ranked[i].count > ranked[j].count
			}
			if tie == features.Lexical {
				return ranked[i].name < ranked[j].name
			}
			return ranked[i].first < ranked[j].first
		})
		for _, e := range ranked[:limit-1] {
			keep[e.name] = true
		}
	}

	other := Key{Kind: Other}
	if keep[OtherName] {
		other.Value = OtherName + " (merged)"
	}

	acc := newAccumulator()
	var merged []int
	for i := range values {
		switch {
		case missing[i]:
			acc.add(Key{Kind: NoValue}, ids[i])
		case keep[names[i]]:
			acc.add(Key{Kind: Value, Value: names[i]}, ids[i])
		default:
			merged = append(merged, ids[i])
		}
	}
	out := acc.buckets()
	if len(merged) > 0 {
		out = append(out, Bucket{Key: other, SampleIDs: merged})
	}
	return out
}

// EqualFrequency splits numeric values into at most n intervals holding
// roughly the same number of samples. Edges are sorted[floor(i*len/n)] for
// i in [0, n), deduplicated, plus the maximum as the closed upper edge. When
// the last computed edge already is the maximum, the intervals below it stay
// half-open and the maximum gets its own degenerate [max,max] bucket. NaN
// values are excluded from edge computation and go to the no-value bucket.
func EqualFrequency(values []float64, ids []int, n int) Buckets {
	if n < 1 {
		n = features.DefaultRangeBuckets
	}
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return assign(values, ids, nil)
	}
	sort.Float64s(sorted)

	edges := make([]float64, 0, n+1)
	for i := 0; i < n; i++ {
		e := sorted[i*len(sorted)/n]
		if len(edges) == 0 || e > edges[len(edges)-1] {
			edges = append(edges, e)
		}
	}
	top := sorted[len(sorted)-1]
	if len(edges) == 1 || edges[len(edges)-1] < top {
		return assign(values, ids, intervals(append(edges, top)))
	}

	keys := make([]Key, 0, len(edges))
	for i := 0; i+1 < len(edges); i++ {
		keys = append(keys, Key{Kind: Interval, Lo: edges[i], Hi: edges[i+1]})
	}
	keys = append(keys, Key{Kind: Interval, Lo: top, Hi: top, Closed: true})
	return assign(values, ids, keys)
}

// Explicit assigns values to the intervals delimited by boundaries, which
// must be strictly increasing. Values outside the outer edges go to the
// out-of-range bucket.
func Explicit(values []float64, ids []int, boundaries []float64) Buckets {
	return assign(values, ids, intervals(boundaries))
}

// intervals turns edges into [e_i, e_i+1) keys with the last one closed.
// A single distinct edge yields one degenerate closed interval.
func intervals(edges []float64) []Key {
	if len(edges) == 0 {
		return nil
	}
	if len(edges) == 1 || edges[0] == edges[len(edges)-1] {
		return []Key{{Kind: Interval, Lo: edges[0], Hi: edges[0], Closed: true}}
	}
	keys := make([]Key, 0, len(edges)-1)
	for i := 0; i+1 < len(edges); i++ {
		if edges[i] == edges[i+1] {
			continue
		}
		keys = append(keys, Key{Kind: Interval, Lo: edges[i], Hi: edges[i+1]})
	}
	keys[len(keys)-1].Closed = true
	return keys
}

// assign files each value under the key containing it. keys must have
// strictly increasing lower edges.
func assign(values []float64, ids []int, keys []Key) Buckets {
	acc := newAccumulator()
	for i, v := range values {
		if math.IsNaN(v) {
			acc.add(Key{Kind: NoValue}, ids[i])
			continue
		}
		k, ok := locate(keys, v)
		if !ok {
			acc.add(Key{Kind: OutOfRange}, ids[i])
			continue
		}
		acc.add(k, ids[i])
	}
	return acc.buckets()
}

// locate finds the interval containing v by binary search over lower edges.
func locate(keys []Key, v float64) (Key, bool) {
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Lo > v }) - 1
	if i < 0 {
		return Key{}, false
	}
	if keys[i].Contains(v) {
		return keys[i], true
	}
	return Key{}, false
}
