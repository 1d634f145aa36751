package database

type Repository interface {
	Ping() error
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	GetAccountByUsername(username string) (User, error)
	GetChannelByName(name string) (Channel, error)
	SearchChannels(accountId int, nameFilter, ownerFilter string, includeAll bool) ([]ChannelSummary, error)
	CreateChannel(params CreateChannelParams) (Channel, error)
	UpdateChannel(params UpdateChannelParams) (Channel, error)
	DeleteChannel(channelId int) error
	CreateMembership(channelId, accountId int) (Membership, error)
	DeleteMembership(channelId, accountId int) error
	MembershipExists(channelId, accountId int) bool
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessages(channelId, limit int) ([]Message, error)
}
