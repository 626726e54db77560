package eventlog

import "ledger/internal/domain/account"

// wireEvent is the JSON shape stored in a single stream entry's "event"
// field: {"id","version","type"[, "amount"]}. The log assigns the
// entry's timestamp; callers never set it.
type wireEvent struct {
	ID      string           `json:"id"`
	Version int64            `json:"version"`
	Type    account.EventType `json:"type"`
	Amount  int64            `json:"amount,omitempty"`
}

// Published is the result of a successful publish: the new version and
// the log-assigned timestamp token.
type Published struct {
	Version   int64
	Timestamp string
}
