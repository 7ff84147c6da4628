package convert

import "github.com/vk/cmorize/internal/cdo"

// Canonical frequency tokens.
const (
	FreqDaily   = "day"
	FreqMonthly = "mon"
	FreqYearly  = "yr"
	FreqDecadal = "dec"
)

// DecadeYears is the exact number of input years a decadal aggregation
// accepts. Any other count is an infeasible request, never a partial decade.
const DecadeYears = 10

type freqPair struct{ from, to string }

// frequencyTable maps a (source, target) frequency pair to the single
// aggregation operator bridging it. Pairs not listed here are unsupported.
var frequencyTable = map[freqPair]func() cdo.Command{
	{FreqDaily, FreqMonthly}:   cdo.MonthlyMean,
	{FreqMonthly, FreqYearly}:  cdo.YearlyMean,
	{FreqDaily, FreqDecadal}:   cdo.TimeMean,
	{FreqMonthly, FreqDecadal}: cdo.TimeMean,
	{FreqYearly, FreqDecadal}:  cdo.TimeMean,
}

// FrequencySupported reports whether FrequencyCommands would succeed for the
// pair. It never errors.
func FrequencySupported(from, to string) bool {
	if from == to {
		return true
	}
	_, ok := frequencyTable[freqPair{from, to}]
	return ok
}

// FrequencyCommands returns the aggregation sub-commands bridging the two
// frequencies: empty when they are equal, exactly one periodic-mean reducer
// when the pair is in the table, and an error naming both frequencies
// otherwise.
func FrequencyCommands(from, to string) ([]cdo.Command, error) {
	if from == to {
		return nil, nil
	}
	build, ok := frequencyTable[freqPair{from, to}]
	if !ok {
		return nil, &UnsupportedConversionError{Kind: "frequency", From: from, To: to}
	}
	return []cdo.Command{build()}, nil
}
