package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/payroll-breakdowns/internal/session"
)

type stubParser struct {
	id  uuid.UUID
	err error
}

func (p stubParser) Parse(string) (uuid.UUID, error) {
	return p.id, p.err
}

type storeResolver struct {
	store *session.Store
}

func (r storeResolver) Session(id uuid.UUID) (*session.Session, error) {
	sess, ok := r.store.Get(id)
	if !ok {
		return nil, errors.New("unknown session")
	}
	return sess, nil
}

func newRouter(parser TokenParser, store *session.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(parser, storeResolver{store: store}))
	router.GET("/whoami", func(c *gin.Context) {
		sess, ok := MustSession(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, sess.ID.String())
	})
	return router
}

func TestAuth(t *testing.T) {
	store := session.NewStore(time.Hour)
	sess := store.Create()

	tests := []struct {
		name       string
		header     string
		parser     stubParser
		wantStatus int
	}{
		{"valid", "Bearer token", stubParser{id: sess.ID}, http.StatusOK},
		{"lowercase scheme", "bearer token", stubParser{id: sess.ID}, http.StatusOK},
		{"missing header", "", stubParser{id: sess.ID}, http.StatusUnauthorized},
		{"wrong scheme", "Basic token", stubParser{id: sess.ID}, http.StatusUnauthorized},
		{"bad token", "Bearer token", stubParser{err: errors.New("bad")}, http.StatusUnauthorized},
		{"unknown session", "Bearer token", stubParser{id: uuid.New()}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(tt.parser, store)
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, sess.ID.String(), rec.Body.String())
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	router := gin.New()
	router.Use(RequestLogger(zerolog.New(&buf)))
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Contains(t, buf.String(), `"path":"/healthz"`)
	assert.Contains(t, buf.String(), `"status":204`)
}
