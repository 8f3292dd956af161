package selector

import "time"

// ThinkTime is the uniform pause between two tasks of one user.
type ThinkTime struct {
	Min time.Duration
	Max time.Duration
}

// Next draws a duration in [Min, Max). Min is returned when the range is empty.
func (tt ThinkTime) Next(r Rand) time.Duration {
	return uniformDuration(r, tt.Min, tt.Max)
}

func uniformDuration(r Rand, min, max time.Duration) time.Duration {
	if min >= max {
		return min
	}
	return min + time.Duration(r.Float64()*float64(max-min))
}
