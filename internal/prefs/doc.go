// Package prefs looks up user preferences by key.
//
// The chat client reads a single value from it, the default nickname. Backends:
//   - MapStore: in memory
//   - FileStore: a flat YAML mapping of keys to strings
//   - PostgresStore: a key/value table
package prefs
