package pattern

import (
	"fmt"

	"github.com/danielpatrickdp/recad/go-engine/internal/feature"
	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
	"github.com/danielpatrickdp/recad/go-engine/internal/sketch"
)

// SlotName is the registry name of the elongated slot.
const SlotName = "slot"

// #region slot-detector
// SlotDetector recognises elongated rectangular cuts.
type SlotDetector struct {
	config    DetectorConfig
	extractor measure.Extractor
}

// NewSlotDetector creates the detector.
func NewSlotDetector(config DetectorConfig, ex measure.Extractor) *SlotDetector {
	return &SlotDetector{config: config, extractor: ex}
}

func (d *SlotDetector) Name() string  { return SlotName }
func (d *SlotDetector) Priority() int { return 145 }

func (d *SlotDetector) Description() string {
	return "Elongated slot whose length is at least twice its width"
}

func (d *SlotDetector) Indicators() Indicators {
	return Indicators{
		Visual:   []string{"long narrow opening", "rectangular cut with high aspect ratio"},
		Audio:    slotCues,
		Features: []string{"Cut Slot", "Cut Rectangle with aspect ratio >= 2"},
	}
}

// #endregion slot-detector

// #region slot-detect
// Detect tries a tagged Slot cut, then an elongated rectangle cut, then the transcript.
// A through-all cut reports depth 0.
func (d *SlotDetector) Detect(features []feature.AggregatedFeature, transcript string) *Match {
	values := d.extractor.Extract(transcript)
	cue := hasCue(transcript, slotCues)
	names := []string{measure.Width, measure.Length, measure.Depth}

	for i, f := range features {
		if !f.IsCut() || f.MultiPrimitive() || f.Shape.Kind != feature.Slot {
			continue
		}
		p := params{}
		p.set(measure.Width, f.Shape.Width)
		p.set(measure.Length, f.Shape.Length)
		slotDepth(p, f)
		p.fill(values, names...)
		p.center(f.Shape.Center)
		p[ParamOrientation] = f.Shape.Orientation
		if m := d.match(p, withCue(0.90, cue), SourceExplicit, []int{i}); m != nil {
			return m
		}
	}

	for i, f := range features {
		if !f.IsCut() || f.MultiPrimitive() || f.Shape.Kind != feature.Rectangle {
			continue
		}
		w, l := minMax(f.Shape.Width, f.Shape.Height)
		if w <= 0 || l/w < d.config.SlotMinAspectRatio {
			continue
		}
		p := params{}
		p.set(measure.Width, w)
		p.set(measure.Length, l)
		slotDepth(p, f)
		p.fill(values, measure.Depth)
		p.center(f.Shape.Center)
		p[ParamOrientation] = 0
		if f.Shape.Width < f.Shape.Height {
			p[ParamOrientation] = 90
		}
		if m := d.match(p, withCue(0.85, cue), SourceStructural, []int{i}); m != nil {
			return m
		}
	}

	if cue {
		p := params{}
		p.fill(values, names...)
		p.center(sketch.Point{})
		p[ParamOrientation] = 0
		if _, ok := p[measure.Width]; ok {
			if _, ok := p[measure.Length]; ok {
				return d.match(p, 0.75, SourceTranscript, nil)
			}
		}
	}
	return nil
}

func slotDepth(p params, f feature.AggregatedFeature) {
	if f.CutType == feature.ThroughAll {
		p[measure.Depth] = 0
		return
	}
	p.set(measure.Depth, depthOf(f))
}

func (d *SlotDetector) match(p params, confidence float64, source string, consumed []int) *Match {
	w, okW := p[measure.Width]
	l, okL := p[measure.Length]
	if okW && okL && (w <= 0 || l <= w) {
		return nil
	}
	return &Match{Pattern: SlotName, Confidence: confidence, Parameters: p, Source: source, Consumed: consumed}
}

// #endregion slot-detect

// #region slot-geometry
// GenerateGeometry rebuilds the consumed rectangle in place, or appends a new slot
// cut when the match came from the transcript alone.
func (d *SlotDetector) GenerateGeometry(m Match) (GeometrySpec, error) {
	if len(m.Consumed) > 0 {
		return GeometrySpec{Mode: NeedsBaseRectangle, Pattern: SlotName, Params: m.Parameters}, nil
	}
	w, okW := m.Param(measure.Width)
	l, okL := m.Param(measure.Length)
	if !okW || !okL {
		return GeometrySpec{}, fmt.Errorf("slot: width/length: %w", ErrMissingParameter)
	}
	center := centerOf(m.Parameters)
	orientation := m.Parameters[ParamOrientation]
	sk, err := sketch.Slot(center, w, l, orientation)
	if err != nil {
		return GeometrySpec{}, fmt.Errorf("slot: %w", err)
	}
	f := feature.AggregatedFeature{
		Feature: feature.Feature{
			Type:       feature.Cut,
			Operation:  feature.Remove,
			Shape:      feature.Shape{Kind: feature.Slot, Center: center, Width: w, Length: l, Orientation: orientation},
			Sketch:     &sk,
			CutType:    feature.ThroughAll,
			Confidence: m.Confidence,
		},
		SupportCount: 1,
	}
	if depth := m.Parameters[measure.Depth]; depth > 0 {
		f.Distance = depth
		f.CutType = feature.ToDistance
	}
	return GeometrySpec{Mode: SelfContained, Pattern: SlotName, Params: m.Parameters, Features: []feature.AggregatedFeature{f}}, nil
}

// FilterFeatures keeps everything: the slot geometry replaces its rectangle in place.
func (d *SlotDetector) FilterFeatures(features []feature.AggregatedFeature, _ Match) []feature.AggregatedFeature {
	return features
}

// #endregion slot-geometry
