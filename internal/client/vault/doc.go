// Package vault holds the unlocked entry collection in memory and keeps an
// encrypted copy of it in durable storage.
//
// A Vault starts Locked. Unlock decrypts the stored envelope (or creates an
// empty vault when none exists); Lock forgets the password and entries.
// Mutators change the in-memory list immediately and schedule a debounced
// write. The write pipeline is a single-writer state machine:
//
//	idle --mutation--> scheduled --delay--> writing --done--> idle
//	                       ^                   |
//	                       +----mutation-------+
//
// Every mutation made while a write is scheduled joins that write. A
// mutation made while a write is in flight schedules the next one, which
// starts only after the current write completes. Lock and ClearAll cancel
// a scheduled write; an in-flight write is always awaited.
package vault
