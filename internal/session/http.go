package session

import (
	"net/http"

	"go.uber.org/zap"

	"FurniStore/pkg/kit"
)

type Server struct {
	Tokens *TokenMaker
	Log    *zap.Logger
}

type sessionResp struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

// Issue starts an anonymous shopper session.
func (s *Server) Issue(w http.ResponseWriter, r *http.Request) {
	id, tok, err := s.Tokens.New()
	if err != nil {
		if s.Log != nil {
			s.Log.Error("session token issue", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, sessionResp{SessionID: id, Token: tok})
}
