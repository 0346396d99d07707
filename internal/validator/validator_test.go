package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/link-shortener/internal/model"
)

func TestValidateURL(t *testing.T) {
	v := NewURLValidator().WithBlockedDomains("evil.example")

	tests := []struct {
		name  string
		url   string
		valid bool
	}{
		{"https", "https://example.com/path", true},
		{"http with port", "http://example.com:8080", true},
		{"empty", "", false},
		{"no scheme", "example.com", false},
		{"ftp scheme", "ftp://example.com", false},
		{"no host", "https://", false},
		{"blocked domain", "https://evil.example/x", false},
		{"blocked subdomain", "https://www.evil.example", false},
		{"lookalike not blocked", "https://notevil.example", true},
		{"loopback", "http://127.0.0.1:9000", false},
		{"localhost", "http://localhost", false},
		{"private range", "http://192.168.1.10", false},
		{"ipv6 loopback", "http://[::1]:80", false},
		{"public ip", "http://93.184.216.34", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateURL(tt.url)
			if tt.valid {
				assert.Nil(t, err)
			} else {
				require.NotNil(t, err)
				assert.Equal(t, "url", err.Field)
			}
		})
	}
}

func TestValidateURL_AllowPrivate(t *testing.T) {
	v := NewURLValidator().WithAllowPrivateIPs()
	assert.Nil(t, v.ValidateURL("http://127.0.0.1:9000"))
}

func TestValidateURL_MaxLength(t *testing.T) {
	v := NewURLValidator().WithMaxLength(25)
	assert.Nil(t, v.ValidateURL("https://example.com"))
	assert.NotNil(t, v.ValidateURL("https://example.com/a/very/long/path"))
}

func TestValidateStruct(t *testing.T) {
	v := NewURLValidator()

	err := v.ValidateStruct(model.CreateLinkRequest{URL: "https://example.com", Duration: "1h"})
	assert.Nil(t, err)

	err = v.ValidateStruct(model.CreateLinkRequest{URL: "https://example.com"})
	require.NotNil(t, err)
	assert.Equal(t, "duration", err.Field)

	err = v.ValidateStruct(model.CreateLinkRequest{URL: "not a url", Duration: "1h"})
	require.NotNil(t, err)
	assert.Equal(t, "url", err.Field)

	zero := 0
	err = v.ValidateStruct(model.CreateLinkRequest{URL: "https://example.com", Duration: "1h", VisitLimit: &zero})
	require.NotNil(t, err)
	assert.Equal(t, "visit_limit", err.Field)

	err = v.ValidateStruct(model.AuthenticateRequest{})
	require.NotNil(t, err)
	assert.Equal(t, "name", err.Field)
}

func TestValidateToken(t *testing.T) {
	v := NewURLValidator()
	assert.Nil(t, v.ValidateToken("abc123"))
	assert.NotNil(t, v.ValidateToken("favicon.ico"))
	assert.NotNil(t, v.ValidateToken(""))
}
