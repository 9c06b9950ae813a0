package forecast

const (
	historyWeight  = 0.8
	baselineWeight = 0.2
)

// Blend returns the uncorrected forecast for slot. History dominates when it
// exists; without it the result is exactly the baseline rule.
func Blend(history History, curve Curve, slot int) float64 {
	rule := curve.Rule(slot)
	hist, ok := history.Get(slot)
	if !ok {
		hist = rule
	}
	return hist*historyWeight + rule*baselineWeight
}

// BaseSeries blends every slot of the day.
func BaseSeries(history History, curve Curve) [SlotsPerDay]float64 {
	var base [SlotsPerDay]float64
	for slot := range base {
		base[slot] = Blend(history, curve, slot)
	}
	return base
}
