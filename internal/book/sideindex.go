package book

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"github.com/nyxbook/matchcore/internal/common"
)

// SideIndex is an ordered map price -> PriceLevel for one side of a
// book, backed by github.com/tidwall/btree for O(log n) insert/erase and
// a cached `best` cursor for O(1) top-of-book reads. Bids
// order by descending price, asks by ascending price; `less` captures
// that orientation so Min() on the underlying tree is always the best
// price for either side.
type SideIndex struct {
	side   common.Side
	less   func(a, b *PriceLevel) bool
	levels *btree.BTreeG[*PriceLevel]
	best   *PriceLevel
}

func newSideIndex(side common.Side) *SideIndex {
	var less func(a, b *PriceLevel) bool
	if side == common.Buy {
		less = func(a, b *PriceLevel) bool { return a.Price.GreaterThan(b.Price) }
	} else {
		less = func(a, b *PriceLevel) bool { return a.Price.LessThan(b.Price) }
	}
	return &SideIndex{
		side:   side,
		less:   less,
		levels: btree.NewBTreeG(less),
	}
}

// InsertLevel returns the existing PriceLevel at price, or creates,
// indexes, and returns a new one, refreshing the best cursor if the new
// level is now the most aggressive price.
func (s *SideIndex) InsertLevel(price decimal.Decimal) *PriceLevel {
	if existing, ok := s.levels.Get(&PriceLevel{Price: price}); ok {
		return existing
	}
	level := newPriceLevel(price, s.side)
	s.levels.Set(level)
	if s.best == nil || s.less(level, s.best) {
		s.best = level
	}
	return level
}

// Erase removes an emptied level from the index and, if it was best,
// refreshes the cursor to the new extremum (or nil if the side is now
// empty). Callers must only erase levels that are actually empty.
func (s *SideIndex) Erase(level *PriceLevel) {
	s.levels.Delete(level)
	if s.best == level {
		s.refreshBest()
	}
}

func (s *SideIndex) refreshBest() {
	if min, ok := s.levels.Min(); ok {
		s.best = min
	} else {
		s.best = nil
	}
}

// Best returns the cached extremum level for this side, or nil if the
// side holds no resting liquidity. O(1).
func (s *SideIndex) Best() *PriceLevel { return s.best }

// IterateFromBest walks levels from most to least aggressive, invoking
// fn for each; iteration stops early if fn returns false.
func (s *SideIndex) IterateFromBest(fn func(*PriceLevel) bool) {
	s.levels.Scan(fn)
}

// Len returns the number of distinct price levels resting on this side.
func (s *SideIndex) Len() int { return s.levels.Len() }
