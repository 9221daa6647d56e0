// This file contains the expected structure of incoming requests to the API. These structs are used to
// validate incoming requests and to pass data to the appropriate handlers.

// The user's email is never part of an authenticated request body. It comes from the JWT subject.

package common

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type UpdatePreferencesRequest struct {
	Preferences map[string]any `json:"preferences" validate:"required,min=1,prefkeys"`
}

type DeleteUserRequest struct {
	Password string `json:"password" validate:"required"`
}
