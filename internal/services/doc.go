// Package services contains the implementation of all services used by the web server.
//
// The services are responsible for interacting with the database and performing anything that is not strictly HTTP-related.
// The services are injected into the web server, and are used to handle requests dispatched by it.
//
// Current services include:
//   - AccountService:
//     Is the main handler for account requests: registration, login and logout, session validation for
//     authenticated requests, preferences and account deletion. It owns password hashing and JWT minting.
//   - AMPQPublisher:
//     Publishes account lifecycle events (user.registered, user.deleted) to an AMQP 0.9.1 broker so other services
//     of the catalog can react to them. NopPublisher stands in when no broker is configured.
package services
