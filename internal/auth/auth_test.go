package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OptionalUser())
	r.GET("/who", func(c *gin.Context) {
		c.String(http.StatusOK, Actor(c)+"/"+Role(c))
	})
	r.PUT("/write", RequireAssessor(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestOptionalUser(t *testing.T) {
	r := newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))
	assert.Equal(t, "demo-user/student", w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("X-User-Id", " 42 ")
	req.Header.Set("X-User-Role", "Student")
	r.ServeHTTP(w, req)
	assert.Equal(t, "42/student", w.Body.String())
}

func TestRequireRole(t *testing.T) {
	r := newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/write", nil))
	assert.Equal(t, http.StatusForbidden, w.Code, "callers without a role header are students")

	cases := map[string]int{
		"owner":      http.StatusNoContent,
		"instructor": http.StatusNoContent,
		"admin":      http.StatusNoContent,
		"student":    http.StatusForbidden,
		"guest":      http.StatusForbidden,
	}
	for role, want := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/write", nil)
		req.Header.Set("X-User-Role", role)
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
		if want == http.StatusForbidden {
			assert.Contains(t, w.Body.String(), `"code":"FORBIDDEN"`)
		}
	}
}

func TestActorWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "anonymous", Actor(c))
	assert.Equal(t, "", Role(c))
}
