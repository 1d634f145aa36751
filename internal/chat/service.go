// Package chat implements the channel lifecycle, directory search and
// message ingestion on top of the repository, gated by the rbac
// resolver. All operations are single-request and stateless; atomicity
// of compound writes is delegated to the repository's transactions.
package chat

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/devchat/devchat/internal/database"
	"github.com/devchat/devchat/internal/rbac"
	"github.com/devchat/devchat/internal/stats"
	"github.com/devchat/devchat/internal/types"
	"github.com/teris-io/shortid"
)

const (
	minChannelNameLen = 2
	maxChannelNameLen = 50
	maxDescriptionLen = 500
	maxMessageLen     = 1000
	messagePageSize   = 50
)

type ChannelPatch struct {
	Name        string
	Description string
	IsPrivate   bool
}

// UpdateResult carries the updated channel and whether its address
// changed. A rename is a resource-moved event: the caller must signal a
// full navigation to the new address, not a data-only refresh.
type UpdateResult struct {
	Channel types.Channel
	Renamed bool
}

type Service struct {
	log   *log.Logger
	db    database.Repository
	stats stats.Provider
}

func NewService(logger *log.Logger, db database.Repository, statsProvider stats.Provider) *Service {
	if statsProvider != nil {
		statsProvider.RegisterMetric(stats.ChannelsCreated)
		statsProvider.RegisterMetric(stats.ChannelsDeleted)
		statsProvider.RegisterMetric(stats.MessagesPosted)
		statsProvider.RegisterMetric(stats.SearchErrors)
	}

	return &Service{
		log:   logger,
		db:    db,
		stats: statsProvider,
	}
}

func (s *Service) incr(name string) {
	if s.stats != nil {
		s.stats.Incr(name)
	}
}

func channelFacts(ch database.Channel) rbac.ChannelFacts {
	return rbac.ChannelFacts{
		OwnerId:   ch.OwnerId,
		Private:   ch.IsPrivate,
		MemberIds: ch.MemberIds,
	}
}

func validateChannelInput(name, description string) error {
	if n := utf8.RuneCountInString(name); n < minChannelNameLen || n > maxChannelNameLen {
		return &ValidationError{
			Field:  "name",
			Reason: fmt.Sprintf("must be between %d and %d characters", minChannelNameLen, maxChannelNameLen),
		}
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return &ValidationError{
			Field:  "description",
			Reason: fmt.Sprintf("must be at most %d characters", maxDescriptionLen),
		}
	}
	return nil
}

// SearchChannels returns the directory rows visible to the requester:
// public channels plus private ones they own or belong to, or everything
// when they hold the read-any override. An empty ownerFilter matches any
// owner. The filters are evaluated in a single set-filtering query, not
// per channel.
func (s *Service) SearchChannels(requester types.User, nameFilter, ownerFilter string) ([]types.ChannelSummary, error) {
	eval := rbac.NewEvaluator(requester)
	includeAll := eval.Allowed(rbac.EntityChannel, rbac.ActionRead, rbac.ScopeAny)

	rows, err := s.db.SearchChannels(requester.Id, nameFilter, ownerFilter, includeAll)
	if err != nil {
		if errors.Is(err, database.ErrMalformedRow) {
			s.incr(stats.SearchErrors)
			s.log.Println("search channels:", err)
			return nil, &ParseError{Err: err}
		}
		return nil, fmt.Errorf("search channels: %w", err)
	}

	channels := make([]types.ChannelSummary, 0, len(rows))
	for _, row := range rows {
		channels = append(channels, types.ChannelSummary{Id: row.Id, Name: row.Name})
	}

	return channels, nil
}

// GetChannel returns the channel with its roster and the first page of
// messages in creation order, provided the requester passes the read
// resolver (owner, public, member, or read-any override).
func (s *Service) GetChannel(requester types.User, name string) (types.Channel, error) {
	ch, err := s.db.GetChannelByName(name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Channel{}, &NotFoundError{Resource: "channel", Name: name}
		}
		return types.Channel{}, fmt.Errorf("get channel: %w", err)
	}

	eval := rbac.NewEvaluator(requester)
	if !rbac.CanPerform(eval, channelFacts(ch), requester.Id, rbac.ActionRead) {
		return types.Channel{}, &AuthorizationError{Action: "read this channel"}
	}

	messages, err := s.db.GetMessages(ch.Id, messagePageSize)
	if err != nil {
		return types.Channel{}, fmt.Errorf("get messages: %w", err)
	}

	return toApiChannel(ch, messages), nil
}

// CreateChannel creates a channel owned by the caller. The privacy
// extension row exists iff isPrivate; both inserts are one atomic unit.
func (s *Service) CreateChannel(owner types.User, name, description string, isPrivate bool) (types.Channel, error) {
	if err := validateChannelInput(name, description); err != nil {
		return types.Channel{}, err
	}

	externalId, err := shortid.Generate()
	if err != nil {
		return types.Channel{}, fmt.Errorf("generate channel id: %w", err)
	}

	ch, err := s.db.CreateChannel(database.CreateChannelParams{
		Name:        name,
		Description: description,
		ExternalId:  externalId,
		OwnerId:     owner.Id,
		IsPrivate:   isPrivate,
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return types.Channel{}, &ConflictError{Field: "name", Reason: "a channel already exists with this name"}
		}
		return types.Channel{}, fmt.Errorf("create channel: %w", err)
	}
	ch.Owner = database.User{Id: owner.Id, Username: owner.Username, Name: owner.Name}

	s.incr(stats.ChannelsCreated)
	return toApiChannel(ch, nil), nil
}

// UpdateChannel applies the patch after an update check with admin
// override (own first, then any). Renames to a taken name fail with a
// ConflictError and change nothing.
func (s *Service) UpdateChannel(actor types.User, name string, patch ChannelPatch) (UpdateResult, error) {
	ch, err := s.db.GetChannelByName(name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UpdateResult{}, &NotFoundError{Resource: "channel", Name: name}
		}
		return UpdateResult{}, fmt.Errorf("get channel: %w", err)
	}

	eval := rbac.NewEvaluator(actor)
	if !rbac.CanPerformWithOverride(eval, channelFacts(ch), actor.Id, rbac.ActionUpdate) {
		return UpdateResult{}, &AuthorizationError{Action: "update this channel"}
	}

	if err := validateChannelInput(patch.Name, patch.Description); err != nil {
		return UpdateResult{}, err
	}

	updated, err := s.db.UpdateChannel(database.UpdateChannelParams{
		ChannelId:   ch.Id,
		Name:        patch.Name,
		Description: patch.Description,
		IsPrivate:   patch.IsPrivate,
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return UpdateResult{}, &ConflictError{Field: "name", Reason: "a channel already exists with this name"}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return UpdateResult{}, &NotFoundError{Resource: "channel", Name: name}
		}
		return UpdateResult{}, fmt.Errorf("update channel: %w", err)
	}
	updated.Owner = ch.Owner

	return UpdateResult{
		Channel: toApiChannel(updated, nil),
		Renamed: updated.Name != name,
	}, nil
}

// DeleteChannel removes the channel and everything under it. The delete
// check probes own scope first and then the any override. Irreversible.
func (s *Service) DeleteChannel(actor types.User, name string) error {
	ch, err := s.db.GetChannelByName(name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Resource: "channel", Name: name}
		}
		return fmt.Errorf("get channel: %w", err)
	}

	eval := rbac.NewEvaluator(actor)
	if !rbac.CanPerformWithOverride(eval, channelFacts(ch), actor.Id, rbac.ActionDelete) {
		return &AuthorizationError{Action: "delete this channel"}
	}

	if err := s.db.DeleteChannel(ch.Id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Resource: "channel", Name: name}
		}
		return fmt.Errorf("delete channel: %w", err)
	}

	s.incr(stats.ChannelsDeleted)
	return nil
}

// PostMessage validates, authorizes and appends in that order, with no
// partial writes. The visibility gate mirrors read eligibility: owner,
// public channel, or member. It is enforced here regardless of what the
// UI exposes.
func (s *Service) PostMessage(author types.User, channelName, text string) (types.Message, error) {
	if n := utf8.RuneCountInString(text); n < 1 || n > maxMessageLen {
		return types.Message{}, &ValidationError{
			Field:  "text",
			Reason: fmt.Sprintf("must be between 1 and %d characters", maxMessageLen),
		}
	}

	ch, err := s.db.GetChannelByName(channelName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Message{}, &NotFoundError{Resource: "channel", Name: channelName}
		}
		return types.Message{}, fmt.Errorf("get channel: %w", err)
	}

	if !rbac.CanPost(channelFacts(ch), author.Id) {
		return types.Message{}, &AuthorizationError{Action: "post to this channel"}
	}

	msg, err := s.db.CreateMessage(database.CreateMessageParams{
		ChannelId: ch.Id,
		UserId:    author.Id,
		Text:      text,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Message{}, &NotFoundError{Resource: "channel", Name: channelName}
		}
		return types.Message{}, fmt.Errorf("create message: %w", err)
	}

	s.incr(stats.MessagesPosted)
	return types.Message{
		Id:        msg.Id,
		ChannelId: msg.ChannelId,
		UserId:    msg.UserId,
		Username:  author.Username,
		Text:      msg.Text,
		Timestamp: msg.CreatedAt,
	}, nil
}

// AddMember grants a user access to a private channel. Only the owner or
// an update-any admin manages the roster.
func (s *Service) AddMember(actor types.User, channelName, username string) error {
	ch, err := s.memberAction(actor, channelName)
	if err != nil {
		return err
	}

	target, err := s.db.GetAccountByUsername(username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Resource: "user", Name: username}
		}
		return fmt.Errorf("get account: %w", err)
	}

	if _, err := s.db.CreateMembership(ch.Id, target.Id); err != nil {
		if database.IsUniqueViolation(err) {
			return &ConflictError{Field: "username", Reason: "user is already a member"}
		}
		return fmt.Errorf("create membership: %w", err)
	}

	return nil
}

// RemoveMember revokes a user's membership in a private channel.
func (s *Service) RemoveMember(actor types.User, channelName, username string) error {
	ch, err := s.memberAction(actor, channelName)
	if err != nil {
		return err
	}

	target, err := s.db.GetAccountByUsername(username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Resource: "user", Name: username}
		}
		return fmt.Errorf("get account: %w", err)
	}

	if err := s.db.DeleteMembership(ch.Id, target.Id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Resource: "membership", Name: username}
		}
		return fmt.Errorf("delete membership: %w", err)
	}

	return nil
}

func (s *Service) memberAction(actor types.User, channelName string) (database.Channel, error) {
	ch, err := s.db.GetChannelByName(channelName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Channel{}, &NotFoundError{Resource: "channel", Name: channelName}
		}
		return database.Channel{}, fmt.Errorf("get channel: %w", err)
	}

	facts := channelFacts(ch)
	eval := rbac.NewEvaluator(actor)
	if !facts.IsOwner(actor.Id) && !eval.Allowed(rbac.EntityChannel, rbac.ActionUpdate, rbac.ScopeAny) {
		return database.Channel{}, &AuthorizationError{Action: "manage members of this channel"}
	}

	if !ch.IsPrivate {
		return database.Channel{}, &ValidationError{Field: "channel", Reason: "channel is not private"}
	}

	return ch, nil
}

func toApiChannel(ch database.Channel, messages []database.Message) types.Channel {
	out := types.Channel{
		Id:          ch.Id,
		ExternalId:  ch.ExternalId,
		Name:        ch.Name,
		Description: ch.Description,
		Owner: types.User{
			Id:       ch.Owner.Id,
			Username: ch.Owner.Username,
			Name:     ch.Owner.Name,
		},
		IsPrivate: ch.IsPrivate,
		CreatedAt: ch.CreatedAt,
		UpdatedAt: ch.UpdatedAt,
	}

	for _, member := range ch.Members {
		out.Members = append(out.Members, types.User{
			Id:       member.Id,
			Username: member.Username,
			Name:     member.Name,
		})
	}

	for _, msg := range messages {
		out.Messages = append(out.Messages, types.Message{
			Id:        msg.Id,
			ChannelId: msg.ChannelId,
			UserId:    msg.UserId,
			Username:  msg.Username,
			Text:      msg.Text,
			Timestamp: msg.CreatedAt,
		})
	}

	return out
}
