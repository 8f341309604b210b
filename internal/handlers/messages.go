package handlers

import (
	"net/http"
	"strconv"

	"github.com/eliu/babble/internal/models"
	"github.com/eliu/babble/internal/store"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

type MessageHandler struct {
	Store store.Store
}

type pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

type messagesResponse struct {
	Messages   []models.Message `json:"messages"`
	Pagination pagination       `json:"pagination"`
}

// GetMessages serves a page of the persisted log. The store query is
// newest-first; the page is reversed so clients always see oldest-to-newest
// within a page.
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", defaultLimit)
	offset := parseQueryInt(r, "offset", 0)
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := h.Store.GetMessages(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}

	total, err := h.Store.CountMessages()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}

	// Reverse to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	if messages == nil {
		messages = []models.Message{}
	}

	writeJSON(w, http.StatusOK, messagesResponse{
		Messages: messages,
		Pagination: pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+limit < total,
		},
	})
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
