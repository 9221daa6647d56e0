// Package database owns the shared MongoDB connection: connecting with retries, write concern
// parsing, the uniqueness indexes both repositories rely on, and the mapping of driver errors onto
// the persistence error taxonomy in package common.
package database
