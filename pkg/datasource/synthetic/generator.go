package synthetic

import (
	"math/rand"
	"time"

	"github.com/peter-kozarec/vigil/pkg/common"
	"github.com/peter-kozarec/vigil/pkg/datasource"
	"github.com/peter-kozarec/vigil/pkg/utility"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

const pointGeneratorComponentName = "datasource.synthetic.generator"

// PointGenerator produces a mean-reverting random walk with occasional
// injected spikes, for demoing the detector without a dataset file.
// Seeded, so a Reset replays exactly the same sequence.
type PointGenerator struct {
	seed int64
	rng  *rand.Rand

	startTime time.Time
	baseline  fixed.Point
	noise     float64
	steps     int64

	spikeChance float64
	spikeScale  float64

	avgInterval time.Duration

	t         int64
	lastTime  time.Time
	lastValue fixed.Point

	valueDigits int
}

func NewPointGenerator(seed int64, startTime time.Time, baseline fixed.Point, noise float64, steps int64) *PointGenerator {
	g := &PointGenerator{
		seed:      seed,
		startTime: startTime,
		baseline:  baseline,
		noise:     noise,
		steps:     steps,

		spikeChance: 0.01, // roughly one spike per hundred points
		spikeScale:  8.0,

		avgInterval: time.Second,

		valueDigits: 6,
	}
	g.rewind()
	return g
}

// SetSpikeDynamics tunes how often anomalies are injected and how far
// they land from the baseline, in multiples of the noise amplitude.
func (g *PointGenerator) SetSpikeDynamics(chance, scale float64) {
	g.spikeChance = chance
	g.spikeScale = scale
}

func (g *PointGenerator) SetInterval(avgInterval time.Duration) {
	g.avgInterval = avgInterval
}

func (g *PointGenerator) SetValueDigits(digits int) {
	g.valueDigits = digits
}

func (g *PointGenerator) GetNext() (common.DataPoint, error) {
	var point common.DataPoint

	if g.steps > 0 && g.t >= g.steps {
		return point, datasource.ErrEof
	}

	// Pull halfway back to the baseline, then add noise.
	mid := g.lastValue.Add(g.baseline).DivInt(2)
	value := mid.Add(fixed.FromFloat64(g.rng.NormFloat64() * g.noise))

	if g.rng.Float64() < g.spikeChance {
		spike := fixed.FromFloat64(g.rng.NormFloat64() * g.noise * g.spikeScale)
		value = value.Add(spike)
	}

	g.lastValue = value
	g.lastTime = g.lastTime.Add(g.avgInterval)
	g.t++

	// Misconfigured baselines can push the walk out of range; those
	// steps surface as rejections while the walk reverts.
	if value.Abs().Gt(fixed.MaxAbsValue) {
		return point, fixed.ErrOutOfRange
	}

	point.Value = value.Rescale(g.valueDigits)
	point.TimeStamp = g.lastTime
	point.Source = pointGeneratorComponentName
	point.ExecutionID = utility.GetExecutionID()
	point.TraceID = utility.CreateTraceID()

	return point, nil
}

func (g *PointGenerator) Reset() error {
	g.rewind()
	return nil
}

func (g *PointGenerator) rewind() {
	g.rng = rand.New(rand.NewSource(g.seed)) // #nosec G404
	g.t = 0
	g.lastTime = g.startTime
	g.lastValue = g.baseline
}
