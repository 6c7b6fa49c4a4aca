package otp

// TimeWindow describes the TOTP step containing a moment in time.
type TimeWindow struct {
	Counter           int64
	SecondsIntoWindow int
	ExpiresIn         int
	Period            int
}

// TimeWindowAt computes the window for timestampMs (milliseconds since the
// Unix epoch) shifted by epochOffsetSec. A non-positive period falls back to
// DefaultPeriod.
func TimeWindowAt(period int, timestampMs int64, epochOffsetSec int64) TimeWindow {
	if period <= 0 {
		period = DefaultPeriod
	}
	elapsed := floorDiv(timestampMs-epochOffsetSec*1000, 1000)
	counter := floorDiv(elapsed, int64(period))
	into := int(elapsed - counter*int64(period))
	return TimeWindow{
		Counter:           counter,
		SecondsIntoWindow: into,
		ExpiresIn:         period - into,
		Period:            period,
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
