package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedis returns a client whose every command fails fast.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func limitedRouter(rdb *redis.Client, max int, allow AllowFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(rdb, max, time.Minute, KeyByIP(), allow))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimit_NilClientPassesThrough(t *testing.T) {
	r := limitedRouter(nil, 5, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimit_FailsOpenOnRedisError(t *testing.T) {
	rdb := unreachableRedis()
	defer func() { _ = rdb.Close() }()
	r := limitedRouter(rdb, 1, nil)

	// Every counter update errors out, so no request is rejected.
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimit_InvalidConfigPassesThrough(t *testing.T) {
	rdb := unreachableRedis()
	defer func() { _ = rdb.Close() }()

	for _, r := range []*gin.Engine{
		limitedRouter(rdb, 0, nil),
		func() *gin.Engine {
			gin.SetMode(gin.TestMode)
			e := gin.New()
			e.Use(RateLimit(rdb, 5, 0, KeyByIP(), nil))
			e.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
			return e
		}(),
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestKeyFuncs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/signup", nil)
	c.Set("real_ip", "203.0.113.7")

	assert.Equal(t, "rl:ip:203.0.113.7", KeyByIP()(c))
	assert.Equal(t, "rl:path:/api/signup:ip:203.0.113.7", KeyByIPAndPath()(c))
}

func TestAllowPrivateIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	allow := AllowPrivateIP()

	cases := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"192.168.0.9", true},
		{"203.0.113.7", false},
		{"not-an-ip", false},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Set("real_ip", tc.ip)
		assert.Equal(t, tc.want, allow(c), "ip %s", tc.ip)
	}
}
