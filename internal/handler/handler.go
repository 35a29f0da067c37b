package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/avdeenkov/cardbank/internal/middleware"
	"github.com/avdeenkov/cardbank/internal/models"
	"github.com/avdeenkov/cardbank/internal/service"
)

// Handler exposes the engine over HTTP/JSON.
type Handler struct {
	auth      *service.AuthService
	cards     *service.CardService
	transfers *service.TransferService
	blocks    *service.BlockRequestService
	log       *logrus.Logger
}

// NewHandler initializes a new handler
func NewHandler(auth *service.AuthService, cards *service.CardService, transfers *service.TransferService, blocks *service.BlockRequestService, log *logrus.Logger) *Handler {
	return &Handler{auth: auth, cards: cards, transfers: transfers, blocks: blocks, log: log}
}

type cardTransitionFunc func(ctx context.Context, identity models.Identity, cardID int64) (*models.Card, error)

// identity extracts the authenticated caller set by the auth middleware.
func identity(r *http.Request) (models.Identity, bool) {
	return middleware.IdentityFromContext(r.Context())
}

// pathID parses a numeric path variable.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
