// Package votecoordinator implements the Vote Coordination Engine inside the
// election-session context.
//
// The module owns identity resolution (opaque token -> voter record),
// exactly-once vote casting under concurrent requests, consistent tally
// aggregation, and tally broadcast triggering. Business rules live in the
// application/domain layers; storage and transport concerns sit behind ports
// and adapters.
package votecoordinator
