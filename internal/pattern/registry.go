package pattern

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
)

// #region registry
// Registry holds detectors ordered by priority, highest first. Equal priorities
// keep registration order. It is immutable after construction.
type Registry struct {
	detectors []Detector
	byName    map[string]Detector
}

// NewRegistry validates and orders detectors.
func NewRegistry(detectors ...Detector) (*Registry, error) {
	r := &Registry{byName: make(map[string]Detector, len(detectors))}
	for i, d := range detectors {
		if d == nil {
			return nil, fmt.Errorf("detector %d is nil", i)
		}
		if _, dup := r.byName[d.Name()]; dup {
			return nil, fmt.Errorf("duplicate detector %q", d.Name())
		}
		r.byName[d.Name()] = d
		r.detectors = append(r.detectors, d)
	}
	sort.SliceStable(r.detectors, func(i, j int) bool {
		return r.detectors[i].Priority() > r.detectors[j].Priority()
	})
	return r, nil
}

// DefaultRegistry registers the built-in detectors.
func DefaultRegistry(config DetectorConfig, ex measure.Extractor) (*Registry, error) {
	return NewRegistry(
		NewChordCutDetector(ex),
		NewPolarHoleDetector(config, ex),
		NewCounterboreDetector(config, ex),
		NewCountersinkDetector(config, ex),
		NewSlotDetector(config, ex),
		NewHoleDetector(ex),
	)
}

// #endregion registry

// #region lookup
// Detectors returns the detectors in evaluation order.
func (r *Registry) Detectors() []Detector {
	return append([]Detector(nil), r.detectors...)
}

// Names returns detector names in evaluation order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.detectors))
	for i, d := range r.detectors {
		out[i] = d.Name()
	}
	return out
}

// Lookup finds a detector by pattern name.
func (r *Registry) Lookup(name string) (Detector, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// #endregion lookup

// #region detect
// Detect runs detectors in order; the first match wins. When nothing matches it
// returns a nil match and a nil detector.
func (r *Registry) Detect(features []feature.AggregatedFeature, transcript string) (*Match, Detector) {
	for _, d := range r.detectors {
		if m := d.Detect(features, transcript); m != nil {
			return m, d
		}
	}
	return nil, nil
}

// Validate checks a match produced outside the registry, such as by a reasoner.
func (r *Registry) Validate(m Match) (Detector, error) {
	d, ok := r.byName[m.Pattern]
	if !ok {
		return nil, fmt.Errorf("match %q: %w", m.Pattern, measure.ErrUnknownPattern)
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return nil, fmt.Errorf("match %q: confidence %.3f out of range", m.Pattern, m.Confidence)
	}
	return d, nil
}

// CheckRequirements verifies every registered pattern has a requirement entry.
func (r *Registry) CheckRequirements(req measure.Requirements) error {
	var errs []error
	for _, d := range r.detectors {
		if _, err := req.Required(d.Name()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// #endregion detect

// #region catalog
// Catalog exports detector metadata in evaluation order.
func (r *Registry) Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(r.detectors))
	for i, d := range r.detectors {
		out[i] = CatalogEntry{
			Name:        d.Name(),
			Priority:    d.Priority(),
			Description: d.Description(),
			Indicators:  d.Indicators(),
		}
	}
	return out
}

// WriteCatalog encodes entries as "json" or "yaml".
func WriteCatalog(w io.Writer, entries []CatalogEntry, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encode catalog: %w", err)
		}
	case "yaml", "yml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encode catalog: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown catalog format %q", format)
	}
	return nil
}

// #endregion catalog
