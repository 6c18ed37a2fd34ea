package measure

import (
	"regexp"
	"strconv"
	"strings"
)

// #region extractor
// Extractor pulls named measurements out of free text. Names it cannot find are absent.
type Extractor interface {
	Extract(text string) map[string]float64
}

// Template is the ordered list of patterns tried for one measurement name.
// Each pattern captures the number in group 1.
type Template struct {
	Name     string
	Patterns []*regexp.Regexp
}

// RegexExtractor tries each template's patterns in order; the first match wins.
type RegexExtractor struct {
	templates []Template
}

// NewRegexExtractor builds an extractor with the default Portuguese and English templates.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{templates: DefaultTemplates()}
}

// NewRegexExtractorWithTemplates builds an extractor over custom templates.
func NewRegexExtractorWithTemplates(templates []Template) *RegexExtractor {
	return &RegexExtractor{templates: templates}
}

// Extract implements Extractor. It never fails on partial extraction.
func (e *RegexExtractor) Extract(text string) map[string]float64 {
	out := make(map[string]float64)
	lower := strings.ToLower(text)
	for _, tpl := range e.templates {
		if _, done := out[tpl.Name]; done {
			continue
		}
		for _, re := range tpl.Patterns {
			m := re.FindStringSubmatch(lower)
			if len(m) < 2 {
				continue
			}
			v, err := parseNumber(m[1])
			if err != nil {
				continue
			}
			out[tpl.Name] = v
			break
		}
	}
	return out
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// #endregion extractor

// #region validate
// ValidateRequired extracts from text and fails with *MissingMeasurementError
// when any required name is absent. The extracted map is returned either way.
func ValidateRequired(ex Extractor, text string, required []string) (map[string]float64, error) {
	found := ex.Extract(text)
	var missing []string
	for _, name := range required {
		if _, ok := found[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return found, &MissingMeasurementError{Missing: missing, Text: text}
	}
	return found, nil
}

// #endregion validate

// #region templates
const num = `(\d+(?:[.,]\d+)?)`

func tpl(name string, patterns ...string) Template {
	t := Template{Name: name}
	for _, p := range patterns {
		t.Patterns = append(t.Patterns, regexp.MustCompile(`(?i)`+p))
	}
	return t
}

// DefaultTemplates returns the built-in templates. Qualified names (outer_diameter)
// need a qualifier word, so plain "diâmetro 8mm" only fills diameter.
func DefaultTemplates() []Template {
	return []Template{
		tpl(Diameter,
			`di[âa]metro\s+(?:de\s+)?`+num+`\s*mm`,
			`di[âa]metro\s+(?:de\s+)?`+num,
			`diameter\s+(?:of\s+)?`+num,
		),
		tpl(Radius,
			`raio\s+(?:de\s+)?`+num+`\s*mm`,
			`raio\s+(?:de\s+)?`+num,
			`radius\s+(?:of\s+)?`+num,
		),
		tpl(Height,
			`altura\s+(?:de\s+)?`+num+`\s*mm`,
			`espessura\s+(?:de\s+)?`+num+`\s*mm`,
			`(?:height|thickness)\s+(?:of\s+)?`+num,
		),
		tpl(Width,
			`largura\s+(?:de\s+)?`+num+`\s*mm`,
			`width\s+(?:of\s+)?`+num,
		),
		tpl(Length,
			`comprimento\s+(?:de\s+)?`+num+`\s*mm`,
			`length\s+(?:of\s+)?`+num,
		),
		tpl(Depth,
			`profundidade\s+(?:de\s+)?`+num,
			`depth\s+(?:of\s+)?`+num,
		),
		tpl(Distance,
			`dist[âa]ncia\s+(?:de\s+)?`+num+`\s*mm`,
			num+`\s*mm\s+de\s+dist[âa]ncia`,
		),
		tpl(FlatToFlat,
			num+`\s*mm\s+de\s+(?:dist[âa]ncia|espa[çc]amento)`,
			`2\s+linhas.*?`+num+`\s*mm`,
			`dist.ncia\s+(?:entre\s+\S+(?:\s+\S+)?\s+)?de\s+`+num+`\s*mm`,
			`flat[\s-]to[\s-]flat\s+(?:de\s+|of\s+)?`+num,
		),
		tpl(OuterDiameter,
			`di[âa]metro\s+(?:externo|maior)\s+(?:de\s+)?`+num,
			`outer\s+diameter\s+(?:of\s+)?`+num,
		),
		tpl(InnerDiameter,
			`di[âa]metro\s+(?:interno|menor)\s+(?:de\s+)?`+num,
			`inner\s+diameter\s+(?:of\s+)?`+num,
		),
		tpl(OuterDepth,
			`profundidade\s+(?:externa|do\s+rebaixo|do\s+escareado)\s+(?:de\s+)?`+num,
			`outer\s+depth\s+(?:of\s+)?`+num,
		),
		tpl(InnerDepth,
			`profundidade\s+(?:interna|total|do\s+furo)\s+(?:de\s+)?`+num,
			`inner\s+depth\s+(?:of\s+)?`+num,
		),
		tpl(Angle,
			`[âa]ngulo\s+(?:de\s+)?`+num,
			num+`\s*(?:°|graus)`,
			`angle\s+(?:of\s+)?`+num,
		),
		tpl(Count,
			`(\d+)\s+furos`,
			`(\d+)\s+holes`,
		),
	}
}

// #endregion templates
