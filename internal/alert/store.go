// Package alert keeps per-chat price alerts in memory and scans them
// against live prices. Nothing here survives a restart.
package alert

import (
	"math"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidSymbol = errors.New("symbol must not be empty")
	ErrInvalidTarget = errors.New("target price must be a positive number")
)

// Condition is one watched (symbol, target price) pair. It is removed when
// the price reaches the target and is never edited in place.
type Condition struct {
	Symbol string
	Target float64
}

// Fired reports one triggered condition together with the price that
// triggered it.
type Fired struct {
	ChatID    int64
	Condition Condition
	Price     float64
}

// PriceFetcher resolves a bare ticker to its current price.
type PriceFetcher func(symbol string) (float64, error)

// Store holds every chat's alert conditions behind a single mutex. All
// mutation goes through Add and Scan.
type Store struct {
	mu         sync.Mutex
	conditions map[int64][]Condition
}

func NewStore() *Store {
	return &Store{conditions: make(map[int64][]Condition)}
}

// Add validates and appends a condition for the chat. The symbol is trimmed
// and uppercased; validation failure leaves the store untouched.
func (s *Store) Add(chatID int64, symbol string, target float64) (Condition, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Condition{}, ErrInvalidSymbol
	}
	if target <= 0 || math.IsInf(target, 0) || math.IsNaN(target) {
		return Condition{}, ErrInvalidTarget
	}

	cond := Condition{Symbol: symbol, Target: target}

	s.mu.Lock()
	s.conditions[chatID] = append(s.conditions[chatID], cond)
	s.mu.Unlock()

	return cond, nil
}

// List returns a copy of the chat's active conditions.
func (s *Store) List(chatID int64) []Condition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Condition(nil), s.conditions[chatID]...)
}

// Count returns the total number of conditions across all chats.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, conds := range s.conditions {
		n += len(conds)
	}
	return n
}

// Scan checks every condition against its current price and removes the ones
// that fired (price >= target). A failed fetch skips that condition and
// leaves it in place for the next scan; it never aborts the rest.
//
// Scanning runs over a snapshot of each chat's list. Conditions are only ever
// appended outside of scans and scans never overlap, so snapshot indexes stay
// valid when the removals are applied afterwards; conditions added while the
// scan was running survive untouched.
func (s *Store) Scan(fetch PriceFetcher) []Fired {
	type snapshot struct {
		chatID int64
		conds  []Condition
	}

	s.mu.Lock()
	snapshots := make([]snapshot, 0, len(s.conditions))
	for chatID, conds := range s.conditions {
		snapshots = append(snapshots, snapshot{chatID, append([]Condition(nil), conds...)})
	}
	s.mu.Unlock()

	var fired []Fired
	removals := make(map[int64]map[int]bool)

	for _, snap := range snapshots {
		for i, cond := range snap.conds {
			price, err := fetch(cond.Symbol)
			if err != nil {
				log.Warnf("price check failed for %s (chat %d): %v", cond.Symbol, snap.chatID, err)
				continue
			}
			if price >= cond.Target {
				fired = append(fired, Fired{ChatID: snap.chatID, Condition: cond, Price: price})
				if removals[snap.chatID] == nil {
					removals[snap.chatID] = make(map[int]bool)
				}
				removals[snap.chatID][i] = true
			}
		}
	}

	if len(removals) > 0 {
		s.mu.Lock()
		for chatID, indexes := range removals {
			conds := s.conditions[chatID]
			kept := make([]Condition, 0, len(conds))
			for i, cond := range conds {
				if !indexes[i] {
					kept = append(kept, cond)
				}
			}
			if len(kept) == 0 {
				delete(s.conditions, chatID)
			} else {
				s.conditions[chatID] = kept
			}
		}
		s.mu.Unlock()
	}

	return fired
}
