// Package policy holds the authoritative access-control and ticket lifecycle
// rules. Every function is a pure decision over a caller identity and the
// records involved; nothing here touches storage or shared state.
//
// Concurrent claims of the same unassigned ticket are not arbitrated here:
// two technicians may both pass AuthorizeUpdate and the store keeps the last
// write.
package policy
