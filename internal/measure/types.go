package measure

import (
	"errors"
	"fmt"
	"strings"
)

// #region names
// Measurement names shared by the extractor, the requirement table and the detectors.
const (
	Diameter      = "diameter"
	Radius        = "radius"
	Height        = "height"
	Width         = "width"
	Length        = "length"
	Depth         = "depth"
	Distance      = "distance"
	FlatToFlat    = "flat_to_flat"
	OuterDiameter = "outer_diameter"
	InnerDiameter = "inner_diameter"
	OuterDepth    = "outer_depth"
	InnerDepth    = "inner_depth"
	Angle         = "angle"
	Count         = "count"
)

// #endregion names

// #region measurement
// Source records where a measurement value came from.
type Source string

const (
	SourceAudio    Source = "audio"
	SourceVisual   Source = "visual"
	SourceSupplied Source = "supplied"
)

// Measurement is one named numeric value. Lengths are millimetres,
// angles degrees, counts unitless.
type Measurement struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Source Source  `json:"source"`
}

// #endregion measurement

// #region errors
// ErrMissingMeasurement is the sentinel wrapped by MissingMeasurementError.
var ErrMissingMeasurement = errors.New("missing measurement")

// ErrUnknownPattern is returned for pattern names absent from the requirement table.
var ErrUnknownPattern = errors.New("unknown pattern")

// MissingMeasurementError lists required measurement names that could not be found.
// Recoverable: callers may supply the values and re-validate.
type MissingMeasurementError struct {
	Missing []string
	Text    string
}

func (e *MissingMeasurementError) Error() string {
	return fmt.Sprintf("missing critical measurements: %s", strings.Join(e.Missing, ", "))
}

// Unwrap lets errors.Is match ErrMissingMeasurement.
func (e *MissingMeasurementError) Unwrap() error {
	return ErrMissingMeasurement
}

// #endregion errors
