// Package climate provides a deterministic harvest factor per kingdom and day,
// built from the season plus layered simplex noise.
package climate

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/veloria/internal/config"
)

// Season constants.
const (
	SeasonSpring = 0
	SeasonSummer = 1
	SeasonAutumn = 2
	SeasonWinter = 3
)

// SeasonName returns a human-readable season name.
func SeasonName(season int) string {
	switch season {
	case SeasonSpring:
		return "Spring"
	case SeasonSummer:
		return "Summer"
	case SeasonAutumn:
		return "Autumn"
	case SeasonWinter:
		return "Winter"
	default:
		return "Unknown"
	}
}

// seasonOffset is each season's pull on the harvest, in units of amplitude.
var seasonOffset = [4]float64{
	SeasonSpring: 0,
	SeasonSummer: 0.5,
	SeasonAutumn: 0.25,
	SeasonWinter: -1,
}

// Field samples the harvest factor.
type Field struct {
	noise        opensimplex.Noise
	amplitude    float64
	dayScale     float64
	daysPerMonth int
}

// NewField creates a field for a world seed.
func NewField(seed int64, cfg config.ClimateTuning, daysPerMonth int) *Field {
	if daysPerMonth <= 0 {
		daysPerMonth = 30
	}
	return &Field{
		noise:        opensimplex.NewNormalized(seed + 500),
		amplitude:    cfg.Amplitude,
		dayScale:     cfg.DayScale,
		daysPerMonth: daysPerMonth,
	}
}

// Season returns the season of a simulated day (1-based). Each season lasts
// three months.
func (f *Field) Season(day int) int {
	if day < 1 {
		day = 1
	}
	return ((day - 1) / (3 * f.daysPerMonth)) % 4
}

// HarvestFactor returns the multiplier on food yield for a kingdom on a day.
// It is 1 when the amplitude is 0 and never drops below 0.
func (f *Field) HarvestFactor(kingdom, day int) float64 {
	if f == nil || f.amplitude == 0 {
		return 1
	}
	n := octaveNoise(f.noise, float64(day)*f.dayScale, float64(kingdom)*7.31, 3, 1, 0.5)
	factor := 1 + f.amplitude*(seasonOffset[f.Season(day)]+(2*n-1))
	return max(factor, 0)
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}
