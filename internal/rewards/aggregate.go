package rewards

import (
	"math"
	"sort"
)

// AggregatedValue is one operator's cross-city weighted Shapley value and
// its proportion (percent) of the total.
type AggregatedValue struct {
	Operator   string
	Value      float64
	Proportion float64
}

// CityWeightInput is the per-city stake proxy used to compute aggregation
// weights.
type CityWeightInput struct {
	StakeProxy float64
}

// AggregateShapleyOutputs computes normalized per-city weights
// (stake_proxy_c / sum(stake_proxy), or 1/N if the sum is zero), skips
// zero-weight cities, and computes each operator's weighted-average value
// across cities (operators absent from a city contribute 0). Proportions
// are value/total*100, 0 if total is 0. Both value and proportion are
// rounded to 4 decimal places. Grounded on the original implementation's
// calculator/shapley_aggregator.rs.
func AggregateShapleyOutputs(perCityOutputs map[string][]OperatorValue, cityWeights map[string]CityWeightInput) ([]AggregatedValue, error) {
	var totalStake float64
	for _, w := range cityWeights {
		totalStake += w.StakeProxy
	}

	n := len(cityWeights)
	weights := make(map[string]float64, n)
	for city, w := range cityWeights {
		if totalStake == 0 {
			if n > 0 {
				weights[city] = 1.0 / float64(n)
			}
		} else {
			weights[city] = w.StakeProxy / totalStake
		}
	}

	operatorValues := map[string]float64{}
	for city, outputs := range perCityOutputs {
		weight := weights[city]
		if weight == 0 {
			continue
		}
		for _, o := range outputs {
			operatorValues[o.Operator] += o.Value * weight
		}
	}

	var totalValue float64
	for _, v := range operatorValues {
		totalValue += v
	}

	operators := make([]string, 0, len(operatorValues))
	for op := range operatorValues {
		operators = append(operators, op)
	}
	sort.Strings(operators)

	out := make([]AggregatedValue, 0, len(operators))
	for _, op := range operators {
		value := operatorValues[op]
		var proportion float64
		if totalValue != 0 {
			proportion = 100 * value / totalValue
		}
		out = append(out, AggregatedValue{
			Operator:   op,
			Value:      roundToDecimals(value, 4),
			Proportion: roundToDecimals(proportion, 4),
		})
	}
	return out, nil
}

func roundToDecimals(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
