package types

import (
	"time"
)

type Permission struct {
	Entity string `json:"entity"`
	Action string `json:"action"`
	Scope  string `json:"scope"`
}

type Role struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions,omitempty"`
}

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name,omitempty"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	Roles        []Role    `json:"roles,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Channel struct {
	Id          int       `json:"id"`
	ExternalId  string    `json:"external_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       User      `json:"owner"`
	IsPrivate   bool      `json:"is_private"`
	Members     []User    `json:"members,omitempty"`
	Messages    []Message `json:"messages,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// ChannelSummary is a single directory search result row.
type ChannelSummary struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

type Message struct {
	Id        int       `json:"id"`
	ChannelId int       `json:"channel_id"`
	UserId    int       `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
