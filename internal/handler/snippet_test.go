package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-vault/internal/handler"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository/sqlite"
	"github.com/sakif/snippet-vault/internal/service"
)

// env wires the full handler stack over an in-memory database, so these tests
// cover the same path a request takes in production, minus the router.
type env struct {
	snippets *handler.SnippetHandler
	tags     *handler.TagHandler
	transfer *handler.TransferHandler
	stats    *handler.StatsHandler

	snippetSvc *service.SnippetService
	tagSvc     *service.TagService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	// Named shared-cache memory DB: every pooled connection sees the same
	// database, and each test still gets its own.
	db, err := sqlite.New("file:" + xid.New().String() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	snippetSvc := service.NewSnippetService(db, logger)
	tagSvc := service.NewTagService(db, logger)
	transferSvc := service.NewTransferService(db, logger)
	statsSvc := service.NewStatsService(db, logger)

	return &env{
		snippets:   handler.NewSnippetHandler(snippetSvc, logger),
		tags:       handler.NewTagHandler(tagSvc, logger),
		transfer:   handler.NewTransferHandler(transferSvc, logger),
		stats:      handler.NewStatsHandler(statsSvc, logger),
		snippetSvc: snippetSvc,
		tagSvc:     tagSvc,
	}
}

func (e *env) seed(t *testing.T, title, content string) *model.Snippet {
	t.Helper()
	snippet, err := e.snippetSvc.Create(context.Background(), service.SnippetInput{
		Title: title, Content: content, Language: "python",
	})
	require.NoError(t, err)
	return snippet
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var res handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	return res
}

func TestSnippetHandler_HandleCreate(t *testing.T) {
	t.Run("valid snippet", func(t *testing.T) {
		e := newEnv(t)

		req := jsonRequest(http.MethodPost, "/api/snippets",
			`{"title":"hello","content":"print('hi')","language":"python","tags":["demo"]}`)
		rr := httptest.NewRecorder()

		e.snippets.HandleCreate(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var res model.Snippet
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.NotZero(t, res.ID)
		assert.Equal(t, "hello", res.Title)
		assert.Equal(t, 1, res.Version)
		assert.Len(t, res.Tags, 1)
	})

	t.Run("invalid request body", func(t *testing.T) {
		e := newEnv(t)

		req := jsonRequest(http.MethodPost, "/api/snippets", `{"title":`)
		rr := httptest.NewRecorder()

		e.snippets.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "validation_error", decodeError(t, rr).Error)
	})

	t.Run("empty title", func(t *testing.T) {
		e := newEnv(t)

		req := jsonRequest(http.MethodPost, "/api/snippets", `{"title":"","content":"x"}`)
		rr := httptest.NewRecorder()

		e.snippets.HandleCreate(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSnippetHandler_HandleGetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		e := newEnv(t)
		seeded := e.seed(t, "lookup", "x=1")

		req := httptest.NewRequest(http.MethodGet, "/api/snippets/1", nil)
		req.SetPathValue("id", "1")
		rr := httptest.NewRecorder()

		e.snippets.HandleGetByID(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var res model.Snippet
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, seeded.ID, res.ID)
		assert.Equal(t, "lookup", res.Title)
	})

	t.Run("missing id answers 404", func(t *testing.T) {
		e := newEnv(t)

		req := httptest.NewRequest(http.MethodGet, "/api/snippets/999", nil)
		req.SetPathValue("id", "999")
		rr := httptest.NewRecorder()

		e.snippets.HandleGetByID(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", decodeError(t, rr).Error)
	})

	t.Run("non-numeric id answers 400", func(t *testing.T) {
		e := newEnv(t)

		req := httptest.NewRequest(http.MethodGet, "/api/snippets/abc", nil)
		req.SetPathValue("id", "abc")
		rr := httptest.NewRecorder()

		e.snippets.HandleGetByID(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSnippetHandler_HandleList(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "python one", "a")
	e.seed(t, "python two", "b")

	req := httptest.NewRequest(http.MethodGet, "/api/snippets?language=python", nil)
	rr := httptest.NewRecorder()

	e.snippets.HandleList(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var res []model.Snippet
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Len(t, res, 2)
}

func TestSnippetHandler_HandleUpdate(t *testing.T) {
	e := newEnv(t)
	seeded := e.seed(t, "before", "x=1")

	req := jsonRequest(http.MethodPut, "/api/snippets/1",
		`{"title":"before","content":"x=2","language":"python"}`)
	req.SetPathValue("id", "1")
	rr := httptest.NewRecorder()

	e.snippets.HandleUpdate(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var res model.Snippet
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, seeded.ID, res.ID)
	assert.Equal(t, "x=2", res.Content)
	assert.Equal(t, 2, res.Version, "content change should bump the version")
}

func TestSnippetHandler_HandleDelete(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "doomed", "x")

	req := httptest.NewRequest(http.MethodDelete, "/api/snippets/1", nil)
	req.SetPathValue("id", "1")
	rr := httptest.NewRecorder()

	e.snippets.HandleDelete(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/snippets/1", nil)
	req.SetPathValue("id", "1")
	rr = httptest.NewRecorder()
	e.snippets.HandleGetByID(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSnippetHandler_HandleToggleFavorite(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "fav", "x")

	req := httptest.NewRequest(http.MethodPost, "/api/snippets/1/favorite", nil)
	req.SetPathValue("id", "1")
	rr := httptest.NewRecorder()

	e.snippets.HandleToggleFavorite(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var res map[string]bool
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.True(t, res["is_favorite"])
}

func TestSnippetHandler_HandleSetTags(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "tagged", "x")

	req := jsonRequest(http.MethodPut, "/api/snippets/1/tags", `{"tags":["go","cli"]}`)
	req.SetPathValue("id", "1")
	rr := httptest.NewRecorder()

	e.snippets.HandleSetTags(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var res []model.Tag
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Len(t, res, 2)
}

func TestSnippetHandler_VersionRoutes(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "versioned", "x=1\n")

	update := jsonRequest(http.MethodPut, "/api/snippets/1",
		`{"title":"versioned","content":"x=2\n","language":"python"}`)
	update.SetPathValue("id", "1")
	rr := httptest.NewRecorder()
	e.snippets.HandleUpdate(rr, update)
	require.Equal(t, http.StatusOK, rr.Code)

	t.Run("list versions", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/snippets/1/versions", nil)
		req.SetPathValue("id", "1")
		rr := httptest.NewRecorder()

		e.snippets.HandleListVersions(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var versions []model.SnippetVersion
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&versions))
		require.Len(t, versions, 1)
		assert.Equal(t, "x=1\n", versions[0].Content)
	})

	t.Run("diff against version 1", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/snippets/1/versions/1/diff", nil)
		req.SetPathValue("id", "1")
		req.SetPathValue("version", "1")
		rr := httptest.NewRecorder()

		e.snippets.HandleDiff(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var res model.DiffResult
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Contains(t, res.Diff, "-x=1")
		assert.Contains(t, res.Diff, "+x=2")
	})

	t.Run("rollback restores version 1", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/snippets/1/versions/1/rollback", nil)
		req.SetPathValue("id", "1")
		req.SetPathValue("version", "1")
		rr := httptest.NewRecorder()

		e.snippets.HandleRollback(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var res model.Snippet
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "x=1\n", res.Content)
		assert.Equal(t, 3, res.Version)
	})

	t.Run("rollback to unknown version answers 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/snippets/1/versions/42/rollback", nil)
		req.SetPathValue("id", "1")
		req.SetPathValue("version", "42")
		rr := httptest.NewRecorder()

		e.snippets.HandleRollback(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
