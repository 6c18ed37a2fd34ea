package feature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/danielpatrickdp/recad/go-engine/internal/sketch"
)

// #region length
// Length accepts either a bare number or a {"value": n, "unit": "mm"} object.
type Length float64

// UnmarshalJSON implements json.Unmarshaler.
func (l *Length) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Value float64 `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("decode length: %w", err)
		}
		*l = Length(obj.Value)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode length: %w", err)
	}
	*l = Length(v)
	return nil
}

// #endregion length

// #region wire
type shapeJSON struct {
	Type          ShapeKind     `json:"type"`
	Center        *sketch.Point `json:"center,omitempty"`
	Diameter      Length        `json:"diameter,omitempty"`
	Width         Length        `json:"width,omitempty"`
	Height        Length        `json:"height,omitempty"`
	Length        Length        `json:"length,omitempty"`
	OuterDiameter Length        `json:"outer_diameter,omitempty"`
	InnerDiameter Length        `json:"inner_diameter,omitempty"`
	Angle         Length        `json:"angle,omitempty"`
	Orientation   Length        `json:"orientation,omitempty"`
	FlatToFlat    Length        `json:"flat_to_flat,omitempty"`
	Radius        Length        `json:"radius,omitempty"`
	Count         int           `json:"count,omitempty"`
}

func (w shapeJSON) shape() Shape {
	s := Shape{
		Kind:          w.Type,
		Diameter:      float64(w.Diameter),
		Width:         float64(w.Width),
		Height:        float64(w.Height),
		Length:        float64(w.Length),
		OuterDiameter: float64(w.OuterDiameter),
		InnerDiameter: float64(w.InnerDiameter),
		Angle:         float64(w.Angle),
		Orientation:   float64(w.Orientation),
		FlatToFlat:    float64(w.FlatToFlat),
		Radius:        float64(w.Radius),
		Count:         w.Count,
	}
	if w.Center != nil {
		s.Center = *w.Center
	}
	return s
}

func shapeWire(s Shape) shapeJSON {
	center := s.Center
	return shapeJSON{
		Type:          s.Kind,
		Center:        &center,
		Diameter:      Length(s.Diameter),
		Width:         Length(s.Width),
		Height:        Length(s.Height),
		Length:        Length(s.Length),
		OuterDiameter: Length(s.OuterDiameter),
		InnerDiameter: Length(s.InnerDiameter),
		Angle:         Length(s.Angle),
		Orientation:   Length(s.Orientation),
		FlatToFlat:    Length(s.FlatToFlat),
		Radius:        Length(s.Radius),
		Count:         s.Count,
	}
}

type featureJSON struct {
	AgentID     string              `json:"agent_id,omitempty"`
	Type        Type                `json:"type"`
	Operation   Operation           `json:"operation,omitempty"`
	Geometry    json.RawMessage     `json:"geometry,omitempty"`
	Constraints []sketch.Constraint `json:"constraints,omitempty"`
	Distance    Length              `json:"distance,omitempty"`
	CutType     string              `json:"cut_type,omitempty"`
	Position    string              `json:"position,omitempty"`
	Confidence  float64             `json:"confidence,omitempty"`
	Params      map[string]float64  `json:"parameters,omitempty"`
}

// #endregion wire

// #region raw-feature-json
// UnmarshalJSON decodes a feature whose geometry is either a shape object or a primitive array.
func (f *RawFeature) UnmarshalJSON(data []byte) error {
	var w featureJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode feature: %w", err)
	}
	out := RawFeature{
		AgentID: w.AgentID,
		Feature: Feature{
			Type:       w.Type,
			Operation:  w.Operation,
			Distance:   float64(w.Distance),
			CutType:    w.CutType,
			Position:   w.Position,
			Confidence: w.Confidence,
			Params:     w.Params,
		},
	}
	geom := bytes.TrimSpace(w.Geometry)
	switch {
	case len(geom) == 0:
	case geom[0] == '[':
		var prims []sketch.Primitive
		if err := json.Unmarshal(geom, &prims); err != nil {
			return fmt.Errorf("decode feature geometry: %w", err)
		}
		out.Sketch = &sketch.Sketch{Geometry: prims, Constraints: w.Constraints}
	default:
		var sw shapeJSON
		if err := json.Unmarshal(geom, &sw); err != nil {
			return fmt.Errorf("decode feature shape: %w", err)
		}
		out.Shape = sw.shape()
	}
	*f = out
	return nil
}

// MarshalJSON mirrors UnmarshalJSON.
func (f RawFeature) MarshalJSON() ([]byte, error) {
	w, err := wireFeature(f.Feature)
	if err != nil {
		return nil, err
	}
	w.AgentID = f.AgentID
	return json.Marshal(w)
}

// #endregion raw-feature-json

// #region aggregated-json
type aggregatedJSON struct {
	featureJSON
	SupportCount int      `json:"support_count"`
	Agents       []string `json:"agents,omitempty"`
}

// MarshalJSON emits the feature with its support count.
func (a AggregatedFeature) MarshalJSON() ([]byte, error) {
	w, err := wireFeature(a.Feature)
	if err != nil {
		return nil, err
	}
	return json.Marshal(aggregatedJSON{featureJSON: w, SupportCount: a.SupportCount, Agents: a.Agents})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (a *AggregatedFeature) UnmarshalJSON(data []byte) error {
	var raw RawFeature
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var extra struct {
		SupportCount int      `json:"support_count"`
		Agents       []string `json:"agents"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return fmt.Errorf("decode aggregated feature: %w", err)
	}
	*a = AggregatedFeature{Feature: raw.Feature, SupportCount: extra.SupportCount, Agents: extra.Agents}
	return nil
}

func wireFeature(f Feature) (featureJSON, error) {
	w := featureJSON{
		Type:       f.Type,
		Operation:  f.Operation,
		Distance:   Length(f.Distance),
		CutType:    f.CutType,
		Position:   f.Position,
		Confidence: f.Confidence,
		Params:     f.Params,
	}
	var (
		geom []byte
		err  error
	)
	if f.Sketch != nil {
		geom, err = json.Marshal(f.Sketch.Geometry)
		w.Constraints = f.Sketch.Constraints
	} else if f.Shape.Kind != "" {
		geom, err = json.Marshal(shapeWire(f.Shape))
	}
	if err != nil {
		return featureJSON{}, fmt.Errorf("encode feature geometry: %w", err)
	}
	w.Geometry = geom
	return w, nil
}

// MarshalJSON writes a Length as a bare number.
func (l Length) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(l))
}

// #endregion aggregated-json

// #region decode-reports
// DecodeReports reads either a single report object or an array of reports.
// Each feature is stamped with its report's agent id.
func DecodeReports(r io.Reader) ([]AgentReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read reports: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var reports []AgentReport
	if data[0] == '[' {
		if err := json.Unmarshal(data, &reports); err != nil {
			return nil, fmt.Errorf("decode reports: %w", err)
		}
	} else {
		var one AgentReport
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		reports = []AgentReport{one}
	}
	for i := range reports {
		for j := range reports[i].Features {
			if reports[i].Features[j].AgentID == "" {
				reports[i].Features[j].AgentID = reports[i].AgentID
			}
		}
	}
	return reports, nil
}

// #endregion decode-reports
