package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONOrError(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	t.Run("valid body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"hello"}`))
		rec := httptest.NewRecorder()

		var p payload
		ok := ParseJSONOrError(rec, r, &p)

		require.True(t, ok)
		assert.Equal(t, "hello", p.Title)
	})

	t.Run("malformed body writes 400", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":`))
		rec := httptest.NewRecorder()

		var p payload
		ok := ParseJSONOrError(rec, r, &p)

		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid JSON")
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		big := `{"title":"` + strings.Repeat("x", maxRequestBody+1) + `"}`
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		rec := httptest.NewRecorder()

		var p payload
		ok := ParseJSONOrError(rec, r, &p)

		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestParsePathInt64(t *testing.T) {
	newRequest := func(vars map[string]string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		return mux.SetURLVars(r, vars)
	}

	t.Run("valid", func(t *testing.T) {
		id, err := ParsePathInt64(newRequest(map[string]string{"id": "42"}), "id")
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := ParsePathInt64(newRequest(nil), "id")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing path parameter")
	})

	t.Run("not a number", func(t *testing.T) {
		_, err := ParsePathInt64(newRequest(map[string]string{"id": "abc"}), "id")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid integer")
	})

	t.Run("or-error writes 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := ParsePathInt64OrError(rec, newRequest(map[string]string{"id": "abc"}), "id")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestParsePathString(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = mux.SetURLVars(r, map[string]string{"slug": "notes"})

	slug, err := ParsePathString(r, "slug")
	require.NoError(t, err)
	assert.Equal(t, "notes", slug)

	rec := httptest.NewRecorder()
	_, ok := ParsePathStringOrError(rec, httptest.NewRequest(http.MethodGet, "/", nil), "slug")
	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
