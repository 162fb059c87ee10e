package models

import "time"

// User is a registered account in the directory.
type User struct {
	UID             string    `db:"uid" json:"uid"`
	Nickname        string    `db:"nickname" json:"nickname"`
	Profession      string    `db:"profession" json:"profession"`
	ProfileImageURL string    `db:"profile_image_url" json:"profile_image_url"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
