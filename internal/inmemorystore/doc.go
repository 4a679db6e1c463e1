// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the valuestore.Store interface.
//
// # Concurrency Model
//
// Schema completion runs one worker per feature and every worker writes
// a disjoint set of keys, so the store uses sync.Map rather than a single
// RWMutex: writes to different keys never contend, and the bucketing
// phase reads the table only after all writers have finished.
package inmemorystore
