package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eliu/babble/internal/models"
	"github.com/eliu/babble/internal/store/sqlstore"
)

type messagesPage struct {
	Messages   []models.Message `json:"messages"`
	Pagination struct {
		Total   int  `json:"total"`
		Limit   int  `json:"limit"`
		Offset  int  `json:"offset"`
		HasMore bool `json:"hasMore"`
	} `json:"pagination"`
}

func newMessageHandler(t *testing.T) (*MessageHandler, *sqlstore.SQLStore) {
	t.Helper()
	st, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	return &MessageHandler{Store: st}, st
}

func getPage(t *testing.T, handler *MessageHandler, query string) messagesPage {
	t.Helper()
	req := httptest.NewRequest("GET", "/api/messages"+query, nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.GetMessages).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}

	var page messagesPage
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	return page
}

func seedMessages(t *testing.T, st *sqlstore.SQLStore, contents ...string) {
	t.Helper()
	user := &models.User{Username: "alice", Password: "hashed"}
	if err := st.CreateUser(user); err != nil {
		t.Fatal(err)
	}
	for _, content := range contents {
		if _, err := st.SaveMessage(user.ID, content); err != nil {
			t.Fatal(err)
		}
	}
}

func TestGetMessagesPagination(t *testing.T) {
	handler, st := newMessageHandler(t)
	seedMessages(t, st, "A", "B", "C")

	// The two most recent messages, in chronological order within the page
	page := getPage(t, handler, "?limit=2&offset=0")
	if len(page.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(page.Messages))
	}
	if page.Messages[0].Content != "B" || page.Messages[1].Content != "C" {
		t.Errorf("Expected page [B, C], got [%s, %s]", page.Messages[0].Content, page.Messages[1].Content)
	}
	if page.Pagination.Total != 3 || page.Pagination.Limit != 2 || page.Pagination.Offset != 0 {
		t.Errorf("Unexpected pagination metadata: %+v", page.Pagination)
	}
	if !page.Pagination.HasMore {
		t.Error("Expected hasMore=true with one message remaining")
	}

	page = getPage(t, handler, "?limit=1&offset=0")
	if len(page.Messages) != 1 || page.Messages[0].Content != "C" {
		t.Errorf("Expected page [C], got %+v", page.Messages)
	}
	if !page.Pagination.HasMore {
		t.Error("Expected hasMore=true")
	}

	// Last page
	page = getPage(t, handler, "?limit=2&offset=2")
	if len(page.Messages) != 1 || page.Messages[0].Content != "A" {
		t.Errorf("Expected page [A], got %+v", page.Messages)
	}
	if page.Pagination.HasMore {
		t.Error("Expected hasMore=false on the last page")
	}
}

func TestGetMessagesDefaults(t *testing.T) {
	handler, st := newMessageHandler(t)
	seedMessages(t, st, "A")

	page := getPage(t, handler, "")
	if page.Pagination.Limit != 50 {
		t.Errorf("Expected default limit 50, got %d", page.Pagination.Limit)
	}
	if page.Pagination.Offset != 0 {
		t.Errorf("Expected default offset 0, got %d", page.Pagination.Offset)
	}
}

func TestGetMessagesClamping(t *testing.T) {
	handler, st := newMessageHandler(t)
	seedMessages(t, st, "A")

	page := getPage(t, handler, "?limit=500")
	if page.Pagination.Limit != 100 {
		t.Errorf("Expected limit clamped to 100, got %d", page.Pagination.Limit)
	}

	page = getPage(t, handler, "?limit=0")
	if page.Pagination.Limit != 1 {
		t.Errorf("Expected limit clamped to 1, got %d", page.Pagination.Limit)
	}

	page = getPage(t, handler, "?offset=-5")
	if page.Pagination.Offset != 0 {
		t.Errorf("Expected offset clamped to 0, got %d", page.Pagination.Offset)
	}

	page = getPage(t, handler, "?limit=abc")
	if page.Pagination.Limit != 50 {
		t.Errorf("Expected unparseable limit to fall back to 50, got %d", page.Pagination.Limit)
	}
}

func TestGetMessagesOffsetPastEnd(t *testing.T) {
	handler, st := newMessageHandler(t)
	seedMessages(t, st, "A", "B")

	page := getPage(t, handler, "?limit=10&offset=5")
	if len(page.Messages) != 0 {
		t.Errorf("Expected empty messages array, got %d", len(page.Messages))
	}
	if page.Pagination.HasMore {
		t.Error("Expected hasMore=false past the end")
	}
	if page.Pagination.Total != 2 {
		t.Errorf("Expected total 2, got %d", page.Pagination.Total)
	}
}

func TestGetMessagesEmptyStore(t *testing.T) {
	handler, _ := newMessageHandler(t)

	req := httptest.NewRequest("GET", "/api/messages", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.GetMessages).ServeHTTP(rr, req)

	// messages must encode as [] rather than null
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["messages"]) != "[]" {
		t.Errorf("Expected empty array, got %s", raw["messages"])
	}
}
