// Package session contains the implementation of interacting with the MongoDB sessions collection.
// The SessionManager struct is responsible for creating, reading and deleting login sessions.
// A Session binds a bearer token to a user identifier, which is the user's email.
package session
