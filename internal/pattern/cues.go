package pattern

import "strings"

// #region keywords

var chordCutCues = []string{
	"corte de corda", "cortes laterais", "faces planas", "face plana",
	"linhas paralelas", "2 linhas", "duas linhas", "achatad",
	"flat-to-flat", "flat to flat", "chord", "bilateral", "double d", "duplo d",
}

var counterboreCues = []string{
	"rebaixo", "rebaixado", "cabeça cilíndrica", "alojamento de cabeça",
	"counterbore", "counter bore", "c'bore", "stepped hole",
}

var countersinkCues = []string{
	"escareado", "escareamento", "escarear", "cabeça chata", "chanfro cônico",
	"countersink", "counter sink", "csk", "conical seat",
}

var slotCues = []string{
	"rasgo", "ranhura", "oblongo", "canal",
	"slot", "oblong", "keyway",
}

var polarCues = []string{
	"igualmente espaçados", "padrão circular", "padrão polar", "círculo de furos",
	"furação circular", "em volta", "flange",
	"bolt circle", "polar pattern", "equally spaced", "evenly spaced",
}

var holeCues = []string{
	"furo", "furação", "passante", "hole", "drill", "bore",
}

// #endregion keywords

// #region cue-match
// hasCue reports whether transcript contains any cue, case-insensitively.
func hasCue(transcript string, cues []string) bool {
	lower := strings.ToLower(transcript)
	for _, c := range cues {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

// #endregion cue-match
