package fileseq

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy selects the traversal and the ordering of a sequence.
type Strategy string

const (
	CurrentDirAlphabetical   Strategy = "current-dir-alphabetical"
	CurrentDirByTime         Strategy = "current-dir-by-time"
	TraverseTreeAlphabetical Strategy = "traverse-tree-alphabetical"
	TraverseTreeByTime       Strategy = "traverse-tree-by-time"
)

// ErrUnknownStrategy is returned for strategy names that are not supported.
var ErrUnknownStrategy = errors.New("unknown navigation strategy")

// Strategies lists every supported strategy.
func Strategies() []Strategy {
	return []Strategy{
		CurrentDirAlphabetical,
		CurrentDirByTime,
		TraverseTreeAlphabetical,
		TraverseTreeByTime,
	}
}

// ParseStrategy converts a configured name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return s, nil
}

// Valid reports whether s is a supported strategy.
func (s Strategy) Valid() bool {
	switch s {
	case CurrentDirAlphabetical, CurrentDirByTime, TraverseTreeAlphabetical, TraverseTreeByTime:
		return true
	}
	return false
}

// Tree reports whether the strategy traverses the whole directory tree.
func (s Strategy) Tree() bool {
	return s == TraverseTreeAlphabetical || s == TraverseTreeByTime
}

// ByTime reports whether the strategy orders by modification time.
func (s Strategy) ByTime() bool {
	return s == CurrentDirByTime || s == TraverseTreeByTime
}

func (s Strategy) String() string { return string(s) }
