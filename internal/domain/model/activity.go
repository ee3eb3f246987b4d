package model

import "time"

// ActivityEntry is one audit-trail record. The activity log is a
// fire-and-forget sink: recording failures are reported but never fail
// the operation being audited.
type ActivityEntry struct {
	ID        string
	ActorID   string
	Action    ActivityAction
	Target    string
	Outcome   string
	Detail    string
	CreatedAt time.Time
}
