package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Direction is the side an alert applies to. Only Long and Short are valid.
type Direction int

const (
	Short Direction = -1
	Long  Direction = 1
)

func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// Sign returns +1 for Long, -1 for Short and 0 for anything else.
func (d Direction) Sign() float64 {
	switch d {
	case Long:
		return 1
	case Short:
		return -1
	default:
		return 0
	}
}

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "undefined"
	}
}

// ParseDirection converts the legacy string forms ("long", "short", "buy",
// "sell", "1", "-1") into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy", "1", "+1", "up":
		return Long, nil
	case "short", "sell", "-1", "down":
		return Short, nil
	}
	return 0, fmt.Errorf("invalid direction %q", s)
}

// DirectionFromSign maps any positive number to Long and any negative one to
// Short. Zero is rejected.
func DirectionFromSign(v float64) (Direction, error) {
	switch {
	case v > 0:
		return Long, nil
	case v < 0:
		return Short, nil
	}
	return 0, fmt.Errorf("invalid direction %v", v)
}

// UnmarshalJSON accepts both the numeric and the string encodings.
func (d *Direction) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		dir, err := ParseDirection(s)
		if err != nil {
			return err
		}
		*d = dir
		return nil
	}

	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid direction %s", data)
	}
	dir, err := DirectionFromSign(v)
	if err != nil {
		return err
	}
	*d = dir
	return nil
}

func (d Direction) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(d))), nil
}

// PriceSource selects which quote an alert compares against.
type PriceSource int

const (
	PriceSourceBid PriceSource = iota
	PriceSourceAsk
	PriceSourceMid
)
