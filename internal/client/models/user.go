// Package models defines client-side data models: directory users, the
// session projection, and roles.
package models

import "strings"

// User is a directory record and the unit of local persistence and remote
// replication.
type User struct {
	Username     string `json:"username"`
	DisplayName  string `json:"displayName"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"passwordHash"`
}

// Matches reports whether name refers to this user. Usernames compare
// case-insensitively.
func (u User) Matches(name string) bool {
	return strings.EqualFold(u.Username, name)
}

// Session returns the session projection of u.
func (u User) Session() Session {
	return Session{Username: u.Username, DisplayName: u.DisplayName, Role: u.Role}
}

// UserPatch carries a partial update. Nil fields are left untouched.
type UserPatch struct {
	DisplayName *string
	Role        *Role
	Password    *string
}

// Session is a value copy of the logged-in user, owned by the local device.
type Session struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}
