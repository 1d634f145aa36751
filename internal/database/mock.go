package database

import (
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountByUsername(username string) (User, error) {
	args := m.Called(username)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetChannelByName(name string) (Channel, error) {
	args := m.Called(name)
	return args.Get(0).(Channel), args.Error(1)
}
func (m *MockRepository) SearchChannels(accountId int, nameFilter, ownerFilter string, includeAll bool) ([]ChannelSummary, error) {
	args := m.Called(accountId, nameFilter, ownerFilter, includeAll)
	if channels, ok := args.Get(0).([]ChannelSummary); ok {
		return channels, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) CreateChannel(params CreateChannelParams) (Channel, error) {
	args := m.Called(params)
	return args.Get(0).(Channel), args.Error(1)
}
func (m *MockRepository) UpdateChannel(params UpdateChannelParams) (Channel, error) {
	args := m.Called(params)
	return args.Get(0).(Channel), args.Error(1)
}
func (m *MockRepository) DeleteChannel(channelId int) error {
	args := m.Called(channelId)
	return args.Error(0)
}
func (m *MockRepository) CreateMembership(channelId, accountId int) (Membership, error) {
	args := m.Called(channelId, accountId)
	return args.Get(0).(Membership), args.Error(1)
}
func (m *MockRepository) DeleteMembership(channelId, accountId int) error {
	args := m.Called(channelId, accountId)
	return args.Error(0)
}
func (m *MockRepository) MembershipExists(channelId, accountId int) bool {
	args := m.Called(channelId, accountId)
	return args.Bool(0)
}
func (m *MockRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockRepository) GetMessages(channelId, limit int) ([]Message, error) {
	args := m.Called(channelId, limit)
	if messages, ok := args.Get(0).([]Message); ok {
		return messages, args.Error(1)
	}
	return nil, args.Error(1)
}
