// Package ingest holds types shared by the import pipelines.
package ingest

import (
	"errors"
	"fmt"
)

// ErrAborted is returned by pipelines stopped through their abort token.
var ErrAborted = errors.New("import aborted")

// Target selects which stores an import writes to. Imports can rebuild the
// vector side from the relational side without touching it, so the two are
// addressable separately.
type Target uint8

const (
	TargetSQL Target = 1 << iota
	TargetVector
)

const TargetAll = TargetSQL | TargetVector

func (t Target) Has(x Target) bool {
	return t&x != 0
}

func ParseTarget(s string) (Target, error) {
	switch s {
	case "", "all":
		return TargetAll, nil
	case "sql":
		return TargetSQL, nil
	case "vector":
		return TargetVector, nil
	default:
		return 0, fmt.Errorf("unknown target %q", s)
	}
}
