package event

import (
	"time"

	"github.com/shahar-caura/lurker/internal/classify"
	"github.com/shahar-caura/lurker/internal/item"
)

// Event type names.
const (
	TypeItemCaptured       = "item.captured"
	TypeTradeOfferDetected = "trade.detected"
)

// Event is a domain notification emitted by the capture core.
type Event interface {
	EventType() string
	OccurredAt() time.Time
}

// ItemCaptured carries an identified item copied from the game window.
type ItemCaptured struct {
	Item item.Item `json:"item"`
	At   time.Time `json:"at"`
}

func (e ItemCaptured) EventType() string     { return TypeItemCaptured }
func (e ItemCaptured) OccurredAt() time.Time { return e.At }

// TradeOfferDetected carries trade-chat text exactly as it was copied.
type TradeOfferDetected struct {
	Offer classify.TradeOffer `json:"offer"`
	At    time.Time           `json:"at"`
}

func (e TradeOfferDetected) EventType() string     { return TypeTradeOfferDetected }
func (e TradeOfferDetected) OccurredAt() time.Time { return e.At }
