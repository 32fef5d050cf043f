package model

import "time"

// NoMessageIDPrefix prefixes the generated fallback id used when a
// message carries no Message-Id header. The suffix is the record's own
// timestamp as fractional epoch seconds, so repeated fallbacks stay
// unique per occurrence.
const NoMessageIDPrefix = "NO_ID_"

// Record is the canonical normalized form of one inbound mail message,
// as persisted in the record store. Records are keyed by MessageID;
// saving the same key again replaces the stored document in place.
type Record struct {
	// MessageID is the Message-Id header verbatim (angle brackets
	// included), or a generated NO_ID_ fallback when absent.
	MessageID string `bson:"message_id"`

	// Sender is the address portion of the From header, display name
	// discarded. Empty when From is missing or unparsable.
	Sender string `bson:"sender"`

	// Subject is the decoded subject line, or the "[No subject]"
	// placeholder when the header is absent.
	Subject string `bson:"subject"`

	// Timestamp is taken from the Date header (timezone offset
	// honored) when parseable, else the moment of processing.
	Timestamp time.Time `bson:"timestamp"`

	// ProcessedAt is assigned by the store on every save.
	ProcessedAt time.Time `bson:"processed_at,omitempty"`
}
