package aggregate

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/sketch"
)

// #region aggregator
// Aggregator merges redundant agent observations into canonical features.
type Aggregator struct {
	config AggregatorConfig
	logger *zap.Logger
}

// NewAggregator creates an aggregator. A nil logger disables logging.
func NewAggregator(config AggregatorConfig, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{config: config, logger: logger}
}

// member is one clustering input. Raw observations carry support 1; features
// that are already aggregated keep their support and agents.
type member struct {
	feature.RawFeature
	support int
	agents  []string
}

type cluster struct {
	members []member
	agents  map[string]bool
}

// Aggregate partitions by type, clusters each partition and merges every cluster.
func (a *Aggregator) Aggregate(raw []feature.RawFeature) Result {
	members := make([]member, 0, len(raw))
	for _, f := range raw {
		var agents []string
		if f.AgentID != "" {
			agents = []string{f.AgentID}
		}
		members = append(members, member{RawFeature: f, support: 1, agents: agents})
	}
	return a.aggregate(members)
}

// AggregateFeatures re-aggregates features that already went through Aggregate.
// A feature that finds no partner comes back unchanged, support and agents included.
func (a *Aggregator) AggregateFeatures(features []feature.AggregatedFeature) Result {
	members := make([]member, 0, len(features))
	for _, f := range features {
		m := member{RawFeature: feature.RawFeature{Feature: f.Feature}, support: f.SupportCount, agents: f.Agents}
		if len(f.Agents) > 0 {
			m.AgentID = f.Agents[0]
		}
		if m.support < 1 {
			m.support = 1
		}
		members = append(members, m)
	}
	return a.aggregate(members)
}

func (a *Aggregator) aggregate(in []member) Result {
	var res Result
	partitions := map[feature.Type][]member{}

	for _, m := range in {
		if !m.Type.Valid() {
			msg := fmt.Sprintf("dropped feature with unknown type %q from agent %q", m.Type, m.AgentID)
			res.Warnings = append(res.Warnings, msg)
			res.Dropped++
			a.logger.Warn("dropping feature",
				zap.String("type", string(m.Type)),
				zap.String("agent_id", m.AgentID),
			)
			continue
		}
		partitions[m.Type] = append(partitions[m.Type], m)
	}

	for _, t := range []feature.Type{feature.Extrude, feature.Cut} {
		for _, c := range a.cluster(partitions[t]) {
			merged := a.merge(c)
			res.Features = append(res.Features, merged)
			res.ClusterSizes = append(res.ClusterSizes, merged.SupportCount)
		}
	}

	a.logger.Debug("aggregated features",
		zap.Int("in", len(in)),
		zap.Int("aggregated", len(res.Features)),
		zap.Int("dropped", res.Dropped),
	)
	return res
}

// #endregion aggregator

// #region clustering
// cluster groups greedily against each cluster's first member. One agent never
// contributes twice to a cluster: two matching features from the same agent are
// two physical features.
func (a *Aggregator) cluster(members []member) []*cluster {
	var clusters []*cluster
	for _, m := range members {
		var home *cluster
		for _, c := range clusters {
			if sharesAgent(c, m) {
				continue
			}
			if a.similar(c.members[0].RawFeature, m.RawFeature) {
				home = c
				break
			}
		}
		if home == nil {
			home = &cluster{agents: map[string]bool{}}
			clusters = append(clusters, home)
		}
		home.members = append(home.members, m)
		for _, agent := range m.agents {
			home.agents[agent] = true
		}
	}
	return clusters
}

func sharesAgent(c *cluster, m member) bool {
	for _, agent := range m.agents {
		if c.agents[agent] {
			return true
		}
	}
	return false
}

func (a *Aggregator) similar(seed, f feature.RawFeature) bool {
	if seed.Position != f.Position {
		return false
	}
	// A profile one agent already drew belongs with the plain shapes the others saw.
	if seed.MultiPrimitive() != f.MultiPrimitive() {
		return seed.Operation == f.Operation
	}
	if seed.Shape.Kind != f.Shape.Kind {
		return false
	}
	if seed.MultiPrimitive() {
		return samePrimitiveKinds(*seed.Sketch, *f.Sketch)
	}
	sd, fd := seed.Shape.Dimensions(), f.Shape.Dimensions()
	for i := range sd {
		if !a.withinTolerance(sd[i], fd[i]) {
			return false
		}
	}
	dx := seed.Shape.Center.X - f.Shape.Center.X
	dy := seed.Shape.Center.Y - f.Shape.Center.Y
	return math.Hypot(dx, dy) <= a.config.CenterTolerance
}

func (a *Aggregator) withinTolerance(x, y float64) bool {
	x, y = round1(x), round1(y)
	if x == y {
		return true
	}
	scale := math.Max(math.Abs(x), math.Abs(y))
	return math.Abs(x-y) <= a.config.RelativeTolerance*scale
}

func samePrimitiveKinds(x, y sketch.Sketch) bool {
	if len(x.Geometry) != len(y.Geometry) {
		return false
	}
	for i := range x.Geometry {
		if x.Geometry[i].Kind != y.Geometry[i].Kind {
			return false
		}
	}
	return true
}

// #endregion clustering

// #region merge
// merge combines a cluster. Support and agents add up across members; sizes,
// centers, depths and confidences are support-weighted means. When any member
// carries a sketch, the cluster keeps one member's sketch as-is.
func (a *Aggregator) merge(c *cluster) feature.AggregatedFeature {
	members := c.members
	if len(members) == 1 {
		m := members[0]
		return feature.AggregatedFeature{Feature: m.Feature, SupportCount: m.support, Agents: m.agents}
	}

	var agents []string
	var support int
	var confSum float64
	var multi []member
	for _, m := range members {
		agents = append(agents, m.agents...)
		support += m.support
		confSum += m.Confidence * float64(m.support)
		if m.MultiPrimitive() {
			multi = append(multi, m)
		}
	}
	n := float64(support)
	meanConf := confSum / n

	if len(multi) > 0 {
		rep := a.representative(multi)
		out := rep.Feature
		cloned := rep.Sketch.Clone()
		out.Sketch = &cloned
		out.Confidence = meanConf
		return feature.AggregatedFeature{Feature: out, SupportCount: support, Agents: agents}
	}

	first := members[0].Feature
	dims := make([]float64, len(first.Shape.Dimensions()))
	var cx, cy, dist float64
	params := map[string][]float64{}
	paramWeights := map[string]float64{}
	for _, m := range members {
		w := float64(m.support)
		for i, d := range m.Shape.Dimensions() {
			dims[i] += d * w
		}
		cx += m.Shape.Center.X * w
		cy += m.Shape.Center.Y * w
		dist += m.Distance * w
		for k, v := range m.Params {
			params[k] = append(params[k], v*w)
			paramWeights[k] += w
		}
	}
	for i := range dims {
		dims[i] = round1(dims[i] / n)
	}

	out := first
	out.Shape = first.Shape.WithDimensions(dims)
	out.Shape.Center = sketch.Point{X: round1(cx / n), Y: round1(cy / n)}
	out.Distance = round1(dist / n)
	out.Confidence = meanConf
	if len(params) > 0 {
		out.Params = make(map[string]float64, len(params))
		for k, vs := range params {
			var sum float64
			for _, v := range vs {
				sum += v
			}
			out.Params[k] = round1(sum / paramWeights[k])
		}
	}
	return feature.AggregatedFeature{Feature: out, SupportCount: support, Agents: agents}
}

func (a *Aggregator) representative(members []member) member {
	if a.config.Policy != PolicyHighestConfidence {
		return members[0]
	}
	best := members[0]
	for _, m := range members[1:] {
		if m.Confidence > best.Confidence {
			best = m
		}
	}
	return best
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// #endregion merge
