// Package database opens the PostgreSQL pool behind the preferences store.
package database
