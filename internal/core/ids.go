package core

import (
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
)

// IDPolicy assigns identities to extracted products.
// A zero id means "let the database assign one".
type IDPolicy interface {
	Name() string
	NextID() int64
}

// ID policy names accepted by ParseIDPolicy.
const (
	IDPolicyDatabase = "database"
	IDPolicySequence = "sequence"
	IDPolicyRandom   = "random"
)

// DatabaseIDs leaves ids at zero so storage assigns identity on insert.
type DatabaseIDs struct{}

func (DatabaseIDs) Name() string  { return IDPolicyDatabase }
func (DatabaseIDs) NextID() int64 { return 0 }

// SequenceIDs hands out increasing ids starting at a configured value.
// The counter lives in memory only and restarts with the process.
type SequenceIDs struct {
	next atomic.Int64
}

// NewSequenceIDs returns a sequence whose first id is start.
func NewSequenceIDs(start int64) *SequenceIDs {
	s := &SequenceIDs{}
	s.next.Store(start)
	return s
}

func (s *SequenceIDs) Name() string { return IDPolicySequence }

func (s *SequenceIDs) NextID() int64 {
	return s.next.Add(1) - 1
}

// RandomIDs draws a random positive 31-bit id per product.
// Collisions with existing rows are possible and not checked.
type RandomIDs struct{}

func (RandomIDs) Name() string { return IDPolicyRandom }

func (RandomIDs) NextID() int64 {
	return int64(rand.Int31n(1<<31-1)) + 1
}

// ParseIDPolicy builds the policy named by name.
func ParseIDPolicy(name string, sequenceStart int64) (IDPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case IDPolicyDatabase, "":
		return DatabaseIDs{}, nil
	case IDPolicySequence:
		return NewSequenceIDs(sequenceStart), nil
	case IDPolicyRandom:
		return RandomIDs{}, nil
	default:
		return nil, fmt.Errorf("unknown id policy %q", name)
	}
}
