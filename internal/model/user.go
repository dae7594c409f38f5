// Package model defines the data structures shared by the upstream client,
// the services and the HTTP handlers.
//
// These are plain structs with JSON tags. The tags match the upstream
// dog API field names so the same types can be decoded from the API and
// encoded to the browser without a mapping layer in between.
package model

// User is the identity a visitor logs in with. The upstream API accepts
// any name/email pair; there is no password.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
