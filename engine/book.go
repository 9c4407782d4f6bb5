package engine

import (
	"sync"

	apperrors "github.com/Digital-Creators-Team/round-engine/errors"
	"github.com/Digital-Creators-Team/round-engine/game"
)

// WagerBook holds exactly the wagers accepted for one still-open period.
// It is append-only until frozen; freeze hands the complete wager list to
// settlement and makes the book immutable. Accept and Freeze serialize on
// one mutex, so a racing accept either lands fully before the freeze or
// is rejected; settlement never sees a torn write.
type WagerBook struct {
	mu       sync.Mutex
	family   game.Family
	periodID int64
	frozen   bool
	wagers   []*game.Wager
	byID     map[string]*game.Wager
}

// NewWagerBook creates an empty book for one period
func NewWagerBook(family game.Family, periodID int64) *WagerBook {
	return &WagerBook{
		family:   family,
		periodID: periodID,
		byID:     make(map[string]*game.Wager),
	}
}

// PeriodID returns the period this book belongs to
func (b *WagerBook) PeriodID() int64 {
	return b.periodID
}

// Accept appends an already-funded wager. The caller has validated the
// bet and reserved the stake; Accept only guards the open/frozen window.
// A PeriodClosed error means the caller must release the reservation.
func (b *WagerBook) Accept(w *game.Wager) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return apperrors.PeriodClosed(b.periodID)
	}
	if w.PeriodID != b.periodID {
		return apperrors.PeriodClosed(w.PeriodID)
	}
	if _, dup := b.byID[w.ID]; dup {
		return apperrors.NewWithDebug(apperrors.ErrInvalidRequest, "duplicate wager id", w.ID)
	}
	b.wagers = append(b.wagers, w)
	b.byID[w.ID] = w
	return nil
}

// Freeze closes the book and returns the complete wager list. Called
// exactly once by the period clock at lock time; later calls return the
// same frozen snapshot.
func (b *WagerBook) Freeze() []*game.Wager {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frozen = true
	return b.wagers
}

// Get looks up an accepted wager by id
func (b *WagerBook) Get(wagerID string) (*game.Wager, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.byID[wagerID]
	return w, ok
}

// Len returns the number of accepted wagers
func (b *WagerBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.wagers)
}
