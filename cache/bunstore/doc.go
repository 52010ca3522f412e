// Package bunstore implements cache.Repository on a SQL database through Bun.
// Entries live in the cache_entries table; expired rows are ignored on read
// and removed by Prune.
package bunstore
