package domain

// Event is a loosely-typed record of something the token or treasury did,
// suitable for JSON encoding onto the server's websocket feed.
type Event struct {
	Type string            `json:"type"`
	At   int64             `json:"at_ms"`
	Data map[string]string `json:"data"`
}

// Event type constants
const (
	EventTransfer       = "TRANSFER"
	EventFeeDistributed = "FEE_DISTRIBUTED"
	EventBurn           = "BURN"
	EventDelegate       = "DELEGATE"
	EventWithdrawal     = "WITHDRAWAL"
	EventConfigChange   = "CONFIG_CHANGE"
	EventPause          = "PAUSE"
)

// EventSink receives emitted events. Implementations must not block.
type EventSink interface {
	Emit(e Event)
}

// NopSink discards all events.
type NopSink struct{}

// Emit implements EventSink.
func (NopSink) Emit(Event) {}
