package observability

// Metric name prefix
const (
	MetricPrefix = "parlor"
)

// Metric names
const (
	// Room metrics
	RoomsActive       = MetricPrefix + ".rooms.active"
	MovesPlayedTotal  = MetricPrefix + ".rooms.moves_played_total"
	SettlementsTotal  = MetricPrefix + ".rooms.settlements_total"

	// NATS metrics
	NATSMessagesReceivedTotal  = MetricPrefix + ".nats.messages_received_total"
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Ledger metrics
	LedgerEntriesTotal = MetricPrefix + ".ledger.entries_total"

	// Database metrics
	DatabaseQueriesTotal  = MetricPrefix + ".database.queries_total"
	DatabaseQueryDuration = MetricPrefix + ".database.query_duration"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelCurrency  = "currency"
	LabelReason    = "reason"
	LabelOutcome   = "outcome"

	LabelRepository = "repository"
	LabelMethod     = "method"
)

// Settlement outcomes
const (
	OutcomeWin     = "win"
	OutcomeDraw    = "draw"
	OutcomeForfeit = "forfeit"
	OutcomeRefund  = "refund"
)
