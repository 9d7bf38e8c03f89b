package users

import "time"

const DefaultRole = "viewer"

type User struct {
	ID           int64
	Username     string
	Email        string
	Role         string
	AccountID    *int64
	PasswordHash []byte
	CreatedAt    time.Time
}

func (u *User) clone() *User {
	c := *u
	c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	if u.AccountID != nil {
		id := *u.AccountID
		c.AccountID = &id
	}
	return &c
}
