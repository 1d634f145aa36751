package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/devchat/devchat/internal/chat"
	"github.com/devchat/devchat/internal/database"
	"github.com/devchat/devchat/internal/types"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
}

type UpdateChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type MemberRequest struct {
	Username string `json:"username"`
}

// SearchResponse is the directory listing payload. Status is "idle" for
// a usable result set and "error" when the results were unavailable.
type SearchResponse struct {
	Status   string                 `json:"status"`
	Channels []types.ChannelSummary `json:"channels,omitempty"`
	Message  string                 `json:"message,omitempty"`
}

func (s *App) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func toApiUser(u database.User) types.User {
	user := types.User{
		Id:           u.Id,
		Username:     u.Username,
		Name:         u.Name,
		EmailAddress: u.EmailAddress,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}

	for _, role := range u.Roles {
		apiRole := types.Role{Name: role.Name}
		for _, p := range role.Permissions {
			apiRole.Permissions = append(apiRole.Permissions, types.Permission{
				Entity: p.Entity,
				Action: p.Action,
				Scope:  p.Scope,
			})
		}
		user.Roles = append(user.Roles, apiRole)
	}

	return user
}

// currentUser loads the authenticated user with its role snapshot. The
// snapshot is loaded once here and reused for every permission check in
// the request.
func (s *App) currentUser(r *http.Request) (types.User, *ApiError) {
	userId, ok := UserId(r.Context())
	if !ok {
		return types.User{}, NewUnauthorizedError()
	}

	dbUser, err := s.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, NewUnauthorizedError()
		}
		return types.User{}, NewInternalServerError(err)
	}

	return toApiUser(dbUser), nil
}

func (s *App) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *App) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewUnauthorizedError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.createJwtForSession(dbUser.Id, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, toApiUser(dbUser))
}

func (s *App) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *App) session(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, user)
}

func (s *App) listChannels(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// an explicit empty filter is a client error: normalize it by
	// redirecting to the unfiltered listing
	query := r.URL.Query()
	if (query.Has("search") && query.Get("search") == "") ||
		(query.Has("owner") && query.Get("owner") == "") {
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
		return
	}

	channels, err := s.chat.SearchChannels(user, query.Get("search"), query.Get("owner"))
	if err != nil {
		var parseErr *chat.ParseError
		if errors.As(err, &parseErr) {
			s.writeJson(w, http.StatusBadRequest, SearchResponse{
				Status:  "error",
				Message: "there was an error parsing the results",
			})
			return
		}
		errResp := serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, SearchResponse{Status: "idle", Channels: channels})
}

func (s *App) createChannel(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	channel, err := s.chat.CreateChannel(user, req.Name, req.Description, req.IsPrivate)
	if err != nil {
		errResp := serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, channel)
}

func (s *App) getChannel(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	channel, err := s.chat.GetChannel(user, r.PathValue("channelName"))
	if err != nil {
		errResp := serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, channel)
}

func (s *App) updateChannel(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	res, err := s.chat.UpdateChannel(user, r.PathValue("channelName"), chat.ChannelPatch{
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		errResp := serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// a rename moves the resource: send the caller to the new address
	// instead of refreshing in place
	if res.Renamed {
		http.Redirect(w, r, "/api/channels/"+url.PathEscape(res.Channel.Name), http.StatusSeeOther)
		return
	}

	s.writeJson(w, http.StatusOK, res.Channel)
}

func (s *App) deleteChannel(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.chat.DeleteChannel(user, r.PathValue("channelName")); err != nil {
		errResp := serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.Redirect(w, r, "/api/channels", http.StatusSeeOther)
}

func (s *App) sendMessage(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.chat.PostMessage(user, r.PathValue("channelName"), req.Text)
	if err != nil {
		errResp := serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *App) addMember(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.chat.AddMember(user, r.PathValue("channelName"), req.Username); err != nil {
		errResp := serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *App) removeMember(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.chat.RemoveMember(user, r.PathValue("channelName"), r.PathValue("username")); err != nil {
		errResp := serviceError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}
