package database

import "time"

type User struct {
	Id           int
	Username     string
	Name         string
	EmailAddress string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Role struct {
	Id          int
	Name        string
	Permissions []Permission
}

type Permission struct {
	Id     int
	Entity string
	Action string
	Scope  string
}

type Channel struct {
	Id          int
	ExternalId  string
	Name        string
	Description string
	OwnerId     int
	Owner       User
	IsPrivate   bool
	MemberIds   []int
	Members     []User
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Membership struct {
	Id        int
	ChannelId int
	AccountId int
	CreatedAt time.Time
}

type Message struct {
	Id        int
	ChannelId int
	UserId    int
	Username  string
	Text      string
	CreatedAt time.Time
}

// ChannelSummary is a directory search result row.
type ChannelSummary struct {
	Id   int
	Name string
}

type CreateAccountParams struct {
	Username     string
	Name         string
	EmailAddress string
	PasswordHash string
	RoleNames    []string
}

type CreateChannelParams struct {
	Name        string
	Description string
	ExternalId  string
	OwnerId     int
	IsPrivate   bool
}

type UpdateChannelParams struct {
	ChannelId   int
	Name        string
	Description string
	IsPrivate   bool
}

type CreateMessageParams struct {
	ChannelId int
	UserId    int
	Text      string
}
