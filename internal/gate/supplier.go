package gate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/recad/go-engine/internal/measure"
)

// ErrPromptCancelled is returned when the prompt input ends before every value was given.
var ErrPromptCancelled = errors.New("measurement prompt cancelled")

// Supplier provides values for the measurements a Decision is missing.
type Supplier interface {
	Supply(ctx context.Context, d Decision) (map[string]float64, error)
}

// #region defaults-supplier
// DefaultsSupplier answers from a fixed table, typically loaded from config.
// Names it does not know stay missing.
type DefaultsSupplier struct {
	Values map[string]float64
}

func (s DefaultsSupplier) Supply(_ context.Context, d Decision) (map[string]float64, error) {
	out := make(map[string]float64, len(d.Missing))
	for _, name := range d.Missing {
		if v, ok := s.Values[name]; ok {
			out[name] = v
		}
	}
	return out, nil
}

// #endregion defaults-supplier

// #region prompt-supplier
var displayNames = map[string]string{
	measure.Diameter:      "diâmetro",
	measure.Radius:        "raio",
	measure.Height:        "altura",
	measure.Width:         "largura",
	measure.Length:        "comprimento",
	measure.Depth:         "profundidade",
	measure.Distance:      "distância",
	measure.FlatToFlat:    "distância entre linhas paralelas (flat-to-flat)",
	measure.OuterDiameter: "diâmetro externo",
	measure.InnerDiameter: "diâmetro interno",
	measure.OuterDepth:    "profundidade externa",
	measure.InnerDepth:    "profundidade interna",
	measure.Angle:         "ângulo",
	measure.Count:         "quantidade",
}

// DisplayName returns the operator-facing label for a measurement name.
func DisplayName(name string) string {
	if s, ok := displayNames[name]; ok {
		return s
	}
	return strings.ReplaceAll(name, "_", " ")
}

// PromptSupplier asks an operator for each missing value, one line per answer.
type PromptSupplier struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPromptSupplier reads answers from in and writes prompts to out.
func NewPromptSupplier(in io.Reader, out io.Writer) *PromptSupplier {
	return &PromptSupplier{in: bufio.NewScanner(in), out: out}
}

// Supply prompts until each missing value is a positive number.
// End of input cancels the whole supply.
func (s *PromptSupplier) Supply(ctx context.Context, d Decision) (map[string]float64, error) {
	fmt.Fprintf(s.out, "Medidas faltando para %s: %s\n", d.Pattern, strings.Join(d.Missing, ", "))
	out := make(map[string]float64, len(d.Missing))
	for _, name := range d.Missing {
		unit := " (mm)"
		switch name {
		case measure.Angle:
			unit = " (graus)"
		case measure.Count:
			unit = ""
		}
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			fmt.Fprintf(s.out, "Informe %s%s: ", DisplayName(name), unit)
			if !s.in.Scan() {
				if err := s.in.Err(); err != nil {
					return nil, fmt.Errorf("prompt %s: %w", name, err)
				}
				return nil, fmt.Errorf("prompt %s: %w", name, ErrPromptCancelled)
			}
			line := strings.TrimSpace(strings.ReplaceAll(s.in.Text(), ",", "."))
			v, err := strconv.ParseFloat(line, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				fmt.Fprintln(s.out, "Valor inválido, digite um número.")
				continue
			}
			if v <= 0 {
				fmt.Fprintln(s.out, "O valor deve ser positivo.")
				continue
			}
			out[name] = v
			break
		}
	}
	return out, nil
}

// #endregion prompt-supplier
