// Package storage defines persistence contracts for roll history.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/dicebox/internal/services/dice/filter"
)

var (
	// ErrNotFound indicates a requested roll is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a roll id is already taken.
	ErrAlreadyExists = errors.New("record already exists")
)

// Roll is one persisted evaluation. Failed evaluations keep their error text
// and an empty display.
type Roll struct {
	// Seq orders rolls by insertion and backs page tokens.
	Seq        int64
	ID         string
	Expression string
	Display    string
	Error      string
	Seed       int64
	CreatedAt  time.Time
}

// RollQuery selects one page of rolls, newest first.
type RollQuery struct {
	PageSize int
	// BeforeSeq restricts the page to rolls older than this sequence; zero
	// starts from the newest roll.
	BeforeSeq int64
	Where     filter.SQLCondition
}

// RollPage is one page of rolls. NextSeq is zero on the last page.
type RollPage struct {
	Rolls   []Roll
	NextSeq int64
}

// RollStore persists roll history.
type RollStore interface {
	PutRoll(ctx context.Context, roll Roll) (Roll, error)
	GetRoll(ctx context.Context, id string) (Roll, error)
	ListRolls(ctx context.Context, query RollQuery) (RollPage, error)
}
