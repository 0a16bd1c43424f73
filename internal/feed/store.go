package feed

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/shahar-caura/lurker/internal/classify"
	"github.com/shahar-caura/lurker/internal/event"
	"github.com/shahar-caura/lurker/internal/item"
)

// Kind is the short event family used in the API.
type Kind string

const (
	KindItem  Kind = "item"
	KindTrade Kind = "trade"
)

// Record is one stored event.
type Record struct {
	Seq   uint64               `json:"seq"`
	Kind  Kind                 `json:"kind"`
	At    time.Time            `json:"at"`
	Item  *item.Item           `json:"item,omitempty"`
	Offer *classify.TradeOffer `json:"offer,omitempty"`
}

// NewRecord converts a domain event. ok is false for unknown event types.
func NewRecord(e event.Event) (rec Record, ok bool) {
	rec.At = e.OccurredAt()
	switch ev := e.(type) {
	case event.ItemCaptured:
		it := ev.Item
		rec.Kind, rec.Item = KindItem, &it
	case event.TradeOfferDetected:
		offer := ev.Offer
		rec.Kind, rec.Offer = KindTrade, &offer
	default:
		return Record{}, false
	}
	return rec, true
}

// Store keeps recent events in memory. Records expire after the retention
// window and the oldest are evicted beyond maxEvents.
type Store struct {
	cache     *cache.Cache
	maxEvents int

	mu  sync.Mutex
	seq uint64
}

// NewStore creates a store. retention <= 0 keeps records until evicted by
// the size cap.
func NewStore(retention time.Duration, maxEvents int) *Store {
	expiry, cleanup := retention, retention
	if retention <= 0 {
		expiry, cleanup = cache.NoExpiration, 0
	}
	return &Store{
		cache:     cache.New(expiry, cleanup),
		maxEvents: max(maxEvents, 1),
	}
}

// Add stores e and returns its record.
func (s *Store) Add(e event.Event) (Record, error) {
	rec, ok := NewRecord(e)
	if !ok {
		return Record{}, fmt.Errorf("unsupported event type %q", e.EventType())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	rec.Seq = s.seq
	s.cache.Set(key(rec.Seq), rec, cache.DefaultExpiration)

	if s.cache.ItemCount() > s.maxEvents {
		if recs := s.sorted(); len(recs) > s.maxEvents {
			for _, old := range recs[s.maxEvents:] {
				s.cache.Delete(key(old.Seq))
			}
		}
	}
	return rec, nil
}

// Recent returns up to limit records, newest first. An empty kind matches all.
// A limit below one returns none.
func (s *Store) Recent(limit int, kind Kind) []Record {
	out := []Record{}
	if limit < 1 {
		return out
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.sorted() {
		if kind != "" && rec.Kind != kind {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, rec)
	}
	return out
}

// Len counts unexpired records.
func (s *Store) Len() int {
	return len(s.cache.Items())
}

func (s *Store) sorted() []Record {
	items := s.cache.Items()
	recs := make([]Record, 0, len(items))
	for _, it := range items {
		recs = append(recs, it.Object.(Record))
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq > recs[j].Seq })
	return recs
}

func key(seq uint64) string { return strconv.FormatUint(seq, 10) }
