package wells

import (
	"encoding/json"
	"math"
)

// jsonStats is the wire form of ChannelStats. Undefined (NaN) statistics
// serialize as null; encoding/json rejects NaN outright.
type jsonStats struct {
	Median      *float64 `json:"median"`
	Mean        *float64 `json:"mean"`
	Std         *float64 `json:"std"`
	Sum         *float64 `json:"sum"`
	SatFraction *float64 `json:"sat_fraction"`
}

// MarshalJSON renders NaN fields as null.
func (s ChannelStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonStats{
		Median:      nullable(s.Median),
		Mean:        nullable(s.Mean),
		Std:         nullable(s.Std),
		Sum:         nullable(s.Sum),
		SatFraction: nullable(s.SatFraction),
	})
}

// UnmarshalJSON maps null fields back to NaN.
func (s *ChannelStats) UnmarshalJSON(data []byte) error {
	var js jsonStats
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	s.Median = fromNullable(js.Median)
	s.Mean = fromNullable(js.Mean)
	s.Std = fromNullable(js.Std)
	s.Sum = fromNullable(js.Sum)
	s.SatFraction = fromNullable(js.SatFraction)
	return nil
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func fromNullable(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
