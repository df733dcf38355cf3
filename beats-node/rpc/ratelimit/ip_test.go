package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPHeaderPrecedence(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Vercel-Forwarded-For", "1.1.1.1")
	r.Header.Set("X-Real-Ip", "2.2.2.2")
	r.Header.Set("X-Forwarded-For", "3.3.3.3, 4.4.4.4")
	assert.Equal(t, "1.1.1.1", ClientIP(r))

	r.Header.Del("X-Vercel-Forwarded-For")
	assert.Equal(t, "2.2.2.2", ClientIP(r))

	r.Header.Del("X-Real-Ip")
	r.Header.Set("Cf-Connecting-Ip", "5.5.5.5")
	assert.Equal(t, "5.5.5.5", ClientIP(r))
}

func TestClientIPForwardedForUsesLastHop(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "9.9.9.9, 8.8.8.8, 7.7.7.7")
	assert.Equal(t, "7.7.7.7", ClientIP(r))

	r.Header.Set("X-Forwarded-For", " 6.6.6.6 ")
	assert.Equal(t, "6.6.6.6", ClientIP(r))
}

func TestClientIPDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "127.0.0.1", ClientIP(r))

	r.Header.Set("X-Real-Ip", "   ")
	assert.Equal(t, "127.0.0.1", ClientIP(r))
}
