package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/parleychat/parley/internal/database"
	"github.com/parleychat/parley/internal/server"
	"github.com/parleychat/parley/internal/types"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *ParleyApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ParleyApp) writeApiError(w http.ResponseWriter, errResp *ApiError) {
	if errResp.Err != nil {
		s.log.Println(errResp.Error())
	}

	s.writeJson(w, errResp.StatusCode, errResp)
}

func userResponse(u database.User) types.User {
	return types.User{
		Id:        u.Id,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

func (s *ParleyApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeApiError(w, NewBadRequestError(""))
		return
	}

	if req.Username == "" || req.Password == "" {
		s.writeApiError(w, NewBadRequestError("username and password are required"))
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		s.writeApiError(w, NewInternalServerError(err))
		return
	}

	newUser, err := s.db.CreateAccount(database.CreateAccountParams{
		Username:     req.Username,
		PasswordHash: pwdHash,
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateUser) {
			s.writeApiError(w, NewConflictError("username already taken"))
			return
		}
		s.writeApiError(w, NewInternalServerError(err))
		return
	}

	token, err := s.createJwtForSession(newUser.Id, defaultJwtExpiration)
	if err != nil {
		s.writeApiError(w, NewInternalServerError(err))
		return
	}
	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusCreated, userResponse(newUser))
}

func (s *ParleyApp) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeApiError(w, NewBadRequestError(""))
		return
	}

	if req.Username == "" || req.Password == "" {
		s.writeApiError(w, NewBadRequestError("username and password are required"))
		return
	}

	dbUser, err := s.db.GetAccountByUsername(req.Username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// same response as a wrong password, usernames are not probeable
			s.writeApiError(w, NewUnauthorizedError())
			return
		}
		s.writeApiError(w, NewInternalServerError(err))
		return
	}

	if !verifyPassword(dbUser.PasswordHash, req.Password) {
		s.writeApiError(w, NewUnauthorizedError())
		return
	}

	token, err := s.createJwtForSession(dbUser.Id, defaultJwtExpiration)
	if err != nil {
		s.writeApiError(w, NewInternalServerError(err))
		return
	}
	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, userResponse(dbUser))
}

func (s *ParleyApp) logout(w http.ResponseWriter, _ *http.Request) {
	// overwrite the cookie with an expired empty token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *ParleyApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeApiError(w, NewUnauthorizedError())
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.writeApiError(w, NewUnauthorizedError())
			return
		}
		s.writeApiError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, userResponse(user))
}

func (s *ParleyApp) getRooms(w http.ResponseWriter, _ *http.Request) {
	rooms, err := s.db.GetAllRooms()
	if err != nil {
		s.writeApiError(w, NewInternalServerError(err))
		return
	}

	if rooms == nil {
		rooms = []types.Room{}
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *ParleyApp) getMessages(w http.ResponseWriter, r *http.Request) {
	roomId, err := strconv.Atoi(r.PathValue("roomId"))
	if err != nil {
		s.writeApiError(w, NewBadRequestError("invalid room id"))
		return
	}

	if _, err := s.db.GetRoomById(roomId); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.writeApiError(w, NewNotFoundError())
			return
		}
		s.writeApiError(w, NewInternalServerError(err))
		return
	}

	limit := s.historyLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			s.writeApiError(w, NewBadRequestError("invalid limit"))
			return
		}
	}

	messages, err := s.db.GetMessagesByRoom(roomId, limit)
	if err != nil {
		s.writeApiError(w, NewInternalServerError(err))
		return
	}

	if messages == nil {
		messages = []types.MessageWithUser{}
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *ParleyApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeApiError(w, NewUnauthorizedError())
		return
	}

	msgId, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.writeApiError(w, NewBadRequestError("invalid message id"))
		return
	}

	msg, err := s.db.GetMessageById(msgId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.writeApiError(w, NewNotFoundError())
			return
		}
		s.writeApiError(w, NewInternalServerError(err))
		return
	}

	if msg.UserId != userId {
		s.writeApiError(w, NewForbiddenError("you can only delete your own messages"))
		return
	}

	deleted, err := s.db.DeleteMessage(msgId, userId)
	if err != nil {
		s.writeApiError(w, NewInternalServerError(err))
		return
	}
	if !deleted {
		s.writeApiError(w, NewNotFoundError())
		return
	}

	s.writeJson(w, http.StatusOK, map[string]bool{"success": true})
}

// serveWs upgrades the request to a websocket and starts the session pumps.
// The connection starts unauthenticated, identity arrives with the first
// in-protocol auth event.
func (s *ParleyApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(conn, s.cs, s.log, s.stats)
	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
