package telegram

import (
	"encoding/json"
	"errors"
	"net/http"

	e "remindbot/internal/core/domain/errors"
	"remindbot/internal/core/domain/logging"
	ratelimiter "remindbot/internal/core/domain/rate_limiter"
	"remindbot/internal/core/domain/user"
	"remindbot/internal/core/services"
	"remindbot/internal/http/handlers/response"
	tg "remindbot/internal/implementations/telegram"
)

// Handler accepts webhook updates. It always answers 200 so that Telegram
// does not redeliver an update the bot has already reacted to.
type Handler struct {
	log     logging.Logger
	updates services.Service[Input, Result]
}

func NewHandler(log logging.Logger, updates services.Service[Input, Result]) *Handler {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if updates == nil {
		panic(e.NewNilArgumentError("updates"))
	}
	return &Handler{log: log, updates: updates}
}

func (h *Handler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	var update tg.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.log.Warning(r.Context(), "Could not decode Telegram update.", logging.Entry("err", err))
		response.RenderError(rw, "invalid update", http.StatusBadRequest)
		return
	}

	defer response.Render(rw, struct{}{}, http.StatusOK)

	ownerID, ok := ownerOf(update)
	if !ok {
		h.log.Info(r.Context(), "Telegram update has no sender.", logging.Entry("updateID", update.ID))
		return
	}

	_, err := h.updates.Run(r.Context(), Input{OwnerID: ownerID, Update: update})
	if errors.Is(err, ratelimiter.ErrRateLimitExceeded) {
		return
	}
	if err != nil {
		logging.Error(r.Context(), h.log, err, logging.Entry("updateID", update.ID))
	}
}

func ownerOf(update tg.Update) (user.ID, bool) {
	switch {
	case update.CallbackQuery != nil:
		return user.ID(update.CallbackQuery.From.ID), update.CallbackQuery.From.ID > 0
	case update.Message != nil && update.Message.From != nil:
		return user.ID(update.Message.From.ID), update.Message.From.ID > 0
	case update.Message != nil:
		return user.ID(update.Message.Chat.ID), update.Message.Chat.ID > 0
	}
	return 0, false
}
