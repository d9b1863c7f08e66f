package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDisplayLocation(t *testing.T) {
	assert.Equal(t, "12 Main St, Brownsburg, IN", BuildDisplayLocation("12 Main St", "Brownsburg", "IN"))
	assert.Equal(t, "Brownsburg, IN", BuildDisplayLocation("", " Brownsburg ", "IN", ""))
	assert.Equal(t, "Unknown location", BuildDisplayLocation("", "  "))
}

func TestGoogleMapsURL(t *testing.T) {
	url := GoogleMapsURL("12 Main St", "Brownsburg", "IN", "46112")
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=12+Main+St%2C+Brownsburg%2C+IN%2C+46112", url)
}

func TestEmailDomain(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"owner@Example.com", "example.com"},
		{"owner@www.example.com", "example.com"},
		{"not-an-email", ""},
		{"trailing@", ""},
		{"a@b@corp.io", "corp.io"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EmailDomain(tt.email), tt.email)
	}
}
