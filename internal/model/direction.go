package model

import (
	"fmt"
	"strings"
)

// Direction selects which reserve receives the swap input.
type Direction uint8

const (
	AToB Direction = iota
	BToA
)

func (d Direction) String() string {
	if d == BToA {
		return "b_to_a"
	}
	return "a_to_b"
}

// ParseDirection accepts "a_to_b"/"b_to_a" and the short forms "ab"/"ba".
func ParseDirection(input string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "a_to_b", "ab", "":
		return AToB, nil
	case "b_to_a", "ba":
		return BToA, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s", input)
	}
}
