// Package user contains the implementation of interacting with the MongoDB users collection.
// The UserManager struct is responsible for interacting with the MongoDB users collection. It is CRUD for the user collection.
// The User struct is used to represent an account and its viewing preferences.
// Interaction is by email, which a unique index keeps unique. BSON is used to interact with the database.
package user
