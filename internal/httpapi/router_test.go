package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-lending/library"
)

func setupRouter(t *testing.T) (*gin.Engine, *library.LibraryManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := func() time.Time { return time.Date(2025, time.January, 10, 9, 30, 0, 0, time.UTC) }
	mgr, err := library.NewLibraryManager(filepath.Join(t.TempDir(), "api.db"), 0, library.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	return NewRouter(RouterConfig{Store: mgr, Version: "test"}), mgr
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
	assert.Equal(t, "test", resp.Version)
}

func TestRequestID(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, "GET", "/health", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req, _ := http.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestBooksAPI(t *testing.T) {
	router, _ := setupRouter(t)

	t.Run("create and fetch", func(t *testing.T) {
		w := doJSON(t, router, "POST", "/api/books", gin.H{"title": "Dune", "page_count": 412})
		require.Equal(t, http.StatusCreated, w.Code)
		book := decode[library.Book](t, w)
		assert.Equal(t, int64(1), book.ID)
		assert.True(t, book.Available)

		w = doJSON(t, router, "GET", "/api/books/1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		status := decode[library.BookStatus](t, w)
		assert.False(t, status.Borrowed)
		assert.Equal(t, "Dune", status.Book.Title)
	})

	t.Run("validation", func(t *testing.T) {
		w := doJSON(t, router, "POST", "/api/books", gin.H{"title": "", "page_count": 10})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_title", decode[ErrorResponse](t, w).Code)
	})

	t.Run("unknown and malformed ids", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, doJSON(t, router, "GET", "/api/books/99", nil).Code)
		assert.Equal(t, http.StatusBadRequest, doJSON(t, router, "GET", "/api/books/abc", nil).Code)
	})

	t.Run("partial update", func(t *testing.T) {
		w := doJSON(t, router, "PUT", "/api/books/1", gin.H{"page_count": 500})
		require.Equal(t, http.StatusOK, w.Code)
		book := decode[library.Book](t, w)
		assert.Equal(t, "Dune", book.Title)
		assert.Equal(t, 500, book.PageCount)
	})

	t.Run("list", func(t *testing.T) {
		doJSON(t, router, "POST", "/api/books", gin.H{"title": "Emma", "page_count": 300})
		w := doJSON(t, router, "GET", "/api/books", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(2), decode[map[string]any](t, w)["count"])
	})

	t.Run("purge unlent", func(t *testing.T) {
		w := doJSON(t, router, "DELETE", "/api/books/2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[struct {
			Data struct {
				Purged bool `json:"purged"`
			} `json:"data"`
		}](t, w)
		assert.True(t, resp.Data.Purged)
		assert.Equal(t, http.StatusNotFound, doJSON(t, router, "DELETE", "/api/books/2", nil).Code)
	})
}

func TestCirculationAPI(t *testing.T) {
	router, mgr := setupRouter(t)

	w := doJSON(t, router, "POST", "/api/users", gin.H{"name": "Alice", "student_number": "S100"})
	require.Equal(t, http.StatusCreated, w.Code)
	alice := decode[library.User](t, w)
	w = doJSON(t, router, "POST", "/api/users", gin.H{"name": "Bob", "student_number": "S100"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_student_number", decode[ErrorResponse](t, w).Code)

	doJSON(t, router, "POST", "/api/books", gin.H{"title": "Dune", "page_count": 412})

	w = doJSON(t, router, "POST", "/api/books/1/borrow", gin.H{"user_id": alice.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	rec := decode[library.LendingRecord](t, w)
	assert.Equal(t, "2025-01-10", rec.IssueDate)
	assert.Equal(t, "2025-01-24", rec.DueDate)

	w = doJSON(t, router, "POST", "/api/books/1/borrow", gin.H{"user_id": alice.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "book_borrowed", decode[ErrorResponse](t, w).Code)

	w = doJSON(t, router, "DELETE", "/api/books/1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, "GET", "/api/books/1", nil)
	status := decode[library.BookStatus](t, w)
	assert.True(t, status.Borrowed)
	require.NotNil(t, status.Borrower)
	assert.Equal(t, "Alice", status.Borrower.Name)

	w = doJSON(t, router, "GET", "/api/users/1/books", nil)
	assert.Equal(t, float64(1), decode[map[string]any](t, w)["count"])

	w = doJSON(t, router, "POST", "/api/books/1/return", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, "POST", "/api/books/1/return", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "book_not_borrowed", decode[ErrorResponse](t, w).Code)

	w = doJSON(t, router, "GET", "/api/users/1/lendings", nil)
	assert.Equal(t, float64(1), decode[map[string]any](t, w)["count"])

	books, err := mgr.GetAvailableBooks(context.Background())
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestBorrowRefusalsAPI(t *testing.T) {
	router, _ := setupRouter(t)

	doJSON(t, router, "POST", "/api/books", gin.H{"title": "Dune", "page_count": 412})
	doJSON(t, router, "POST", "/api/users", gin.H{"name": "Mallory"})
	doJSON(t, router, "POST", "/api/users", gin.H{"name": "Alice"})
	w := doJSON(t, router, "PUT", "/api/users/1/ban", gin.H{"banned": true})
	require.Equal(t, http.StatusOK, w.Code)

	tests := []struct {
		name string
		path string
		body gin.H
		code int
		want string
	}{
		{"banned user", "/api/books/1/borrow", gin.H{"user_id": 1}, http.StatusConflict, "user_banned"},
		{"unknown user", "/api/books/1/borrow", gin.H{"user_id": 9}, http.StatusNotFound, "user_not_found"},
		{"unknown book", "/api/books/9/borrow", gin.H{"user_id": 2}, http.StatusNotFound, "book_not_found"},
		{"bad due date", "/api/books/1/borrow", gin.H{"user_id": 1, "due_date": "soon"}, http.StatusBadRequest, "invalid_due_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, "POST", tt.path, tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.Equal(t, tt.want, decode[ErrorResponse](t, w).Code)
		})
	}

	assert.Equal(t, http.StatusBadRequest, doJSON(t, router, "POST", "/api/books/1/borrow", gin.H{}).Code)
}

func TestUsersAPI(t *testing.T) {
	router, _ := setupRouter(t)

	doJSON(t, router, "POST", "/api/users", gin.H{"name": "Alice", "student_number": "S100"})
	doJSON(t, router, "POST", "/api/users", gin.H{"name": "Bob", "banned": true})

	w := doJSON(t, router, "GET", "/api/users?student_number=S100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alice", decode[library.User](t, w).Name)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, "GET", "/api/users?student_number=S999", nil).Code)

	w = doJSON(t, router, "GET", "/api/users?eligible=true", nil)
	assert.Equal(t, float64(1), decode[map[string]any](t, w)["count"])

	w = doJSON(t, router, "PUT", "/api/users/2", gin.H{"banned": false, "student_number": "S200"})
	require.Equal(t, http.StatusOK, w.Code)
	bob := decode[library.User](t, w)
	assert.Equal(t, "Bob", bob.Name)
	assert.False(t, bob.Banned)

	w = doJSON(t, router, "PUT", "/api/users/2", gin.H{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, router, "PUT", "/api/users/1/ban", gin.H{}).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, "PUT", "/api/users/9/ban", gin.H{"banned": true}).Code)

	assert.Equal(t, http.StatusOK, doJSON(t, router, "DELETE", "/api/users/2", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, "GET", "/api/users/2", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, "DELETE", "/api/users/2", nil).Code)
}

func TestLendingsAPI(t *testing.T) {
	router, _ := setupRouter(t)

	doJSON(t, router, "POST", "/api/books", gin.H{"title": "Dune", "page_count": 412})
	doJSON(t, router, "POST", "/api/books", gin.H{"title": "Emma", "page_count": 300})
	doJSON(t, router, "POST", "/api/users", gin.H{"name": "Alice"})
	doJSON(t, router, "POST", "/api/books/1/borrow", gin.H{"user_id": 1, "due_date": "2025-01-01"})
	doJSON(t, router, "POST", "/api/books/2/borrow", gin.H{"user_id": 1})

	w := doJSON(t, router, "GET", "/api/lendings", nil)
	assert.Equal(t, float64(2), decode[map[string]any](t, w)["count"])

	w = doJSON(t, router, "GET", "/api/lendings?overdue=true", nil)
	resp := decode[struct {
		Lendings []library.LendingRecord `json:"lendings"`
	}](t, w)
	require.Len(t, resp.Lendings, 1)
	assert.Equal(t, int64(1), resp.Lendings[0].BookID)
}
