// Package store is a small in-memory state container that satisfies
// persist.Store. It exists so the persistence plugin can be exercised without
// an external state library, and doubles as a reference for adapters.
//
// Data flow:
//
//	Commit(name, payload) -> MutationFunc(copy) -> swap state -> listeners
//
// Mutations run against a deep copy of the current tree. The copy replaces the
// state only when the mutation succeeds, so a failed mutation leaves no trace
// and notifies nobody. Listeners run synchronously in subscribe order while
// the commit lock is held; they see the committed tree and must not call
// Commit themselves.
package store
