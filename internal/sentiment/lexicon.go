package sentiment

// Finance-weighted term valences. Weights are on the VADER scale, roughly
// -4 (strongly negative) to +4 (strongly positive), tuned for market news
// where words like "beat" and "miss" carry more signal than in plain prose.
var lexicon = map[string]float64{
	// positive
	"gain":          1.8,
	"gains":         1.8,
	"rally":         2.2,
	"rallies":       2.2,
	"surge":         2.4,
	"surges":        2.4,
	"soar":          2.6,
	"soars":         2.6,
	"jump":          1.9,
	"jumps":         1.9,
	"climb":         1.6,
	"climbs":        1.6,
	"rise":          1.4,
	"rises":         1.4,
	"beat":          2.0,
	"beats":         2.0,
	"record":        1.5,
	"upgrade":       2.1,
	"upgraded":      2.1,
	"upgrades":      2.1,
	"outperform":    2.0,
	"outperforms":   2.0,
	"bullish":       2.2,
	"strong":        1.6,
	"strength":      1.5,
	"growth":        1.7,
	"profit":        1.6,
	"profits":       1.6,
	"profitable":    1.8,
	"dividend":      1.0,
	"buyback":       1.4,
	"breakout":      1.7,
	"recovery":      1.5,
	"rebound":       1.6,
	"rebounds":      1.6,
	"optimistic":    1.8,
	"momentum":      1.2,
	"exceeded":      1.9,
	"exceeds":       1.9,
	"innovation":    1.1,
	"expansion":     1.3,
	"partnership":   1.0,
	"approval":      1.6,
	"approved":      1.6,
	"win":           1.7,
	"wins":          1.7,
	"success":       1.8,
	"successful":    1.8,
	"opportunity":   1.2,
	"opportunities": 1.2,

	// negative
	"loss":          -1.8,
	"losses":        -1.8,
	"plunge":        -2.6,
	"plunges":       -2.6,
	"crash":         -3.0,
	"crashes":       -3.0,
	"tumble":        -2.2,
	"tumbles":       -2.2,
	"slump":         -2.1,
	"slumps":        -2.1,
	"drop":          -1.6,
	"drops":         -1.6,
	"fall":          -1.4,
	"falls":         -1.4,
	"decline":       -1.5,
	"declines":      -1.5,
	"sink":          -1.9,
	"sinks":         -1.9,
	"miss":          -2.0,
	"misses":        -2.0,
	"missed":        -2.0,
	"downgrade":     -2.1,
	"downgraded":    -2.1,
	"downgrades":    -2.1,
	"underperform":  -2.0,
	"underperforms": -2.0,
	"bearish":       -2.2,
	"weak":          -1.6,
	"weakness":      -1.5,
	"risk":          -1.0,
	"risks":         -1.0,
	"risky":         -1.3,
	"debt":          -1.1,
	"default":       -2.4,
	"bankruptcy":    -3.2,
	"bankrupt":      -3.2,
	"lawsuit":       -1.8,
	"fraud":         -2.8,
	"investigation": -1.7,
	"recall":        -1.8,
	"layoff":        -2.0,
	"layoffs":       -2.0,
	"cut":           -1.2,
	"cuts":          -1.2,
	"warning":       -1.6,
	"warns":         -1.7,
	"warned":        -1.7,
	"fear":          -1.8,
	"fears":         -1.8,
	"selloff":       -2.3,
	"volatile":      -1.2,
	"volatility":    -1.1,
	"recession":     -2.4,
	"inflation":     -1.2,
	"shortfall":     -1.9,
	"disappointing": -2.0,
	"disappoints":   -2.0,
	"halted":        -1.7,
	"downturn":      -1.9,
	"crisis":        -2.5,
}

// negators flip the valence of the term that follows them.
var negators = map[string]struct{}{
	"not":     {},
	"no":      {},
	"never":   {},
	"without": {},
	"despite": {},
}

// boosters scale the valence of the term that follows them.
var boosters = map[string]float64{
	"very":      1.3,
	"extremely": 1.5,
	"sharply":   1.4,
	"strongly":  1.3,
	"slightly":  0.7,
	"somewhat":  0.8,
	"barely":    0.6,
}
