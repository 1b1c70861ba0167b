package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePhonePatterns(t *testing.T) {
	patterns, err := parsePhonePatterns(`[{"name":"VN","regex":"^(\\+84|0)[35789][0-9]{8}$"},{"name":"US","regex":"^\\+1[0-9]{10}$"}]`)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "VN", patterns[0].Name)
	assert.Equal(t, "^\\+1[0-9]{10}$", patterns[1].Regex)
}

func TestParsePhonePatternsEmpty(t *testing.T) {
	patterns, err := parsePhonePatterns("")
	require.NoError(t, err)
	assert.Nil(t, patterns)
}

func TestParsePhonePatternsInvalid(t *testing.T) {
	_, err := parsePhonePatterns("not json")
	require.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 30*time.Minute, parseDuration("30m", time.Hour))
	assert.Equal(t, time.Hour, parseDuration("", time.Hour))
	assert.Equal(t, time.Hour, parseDuration("garbage", time.Hour))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"},
		splitAndTrim("http://localhost:3000, https://app.example.com"))
	assert.Nil(t, splitAndTrim(""))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, int64(5*1024*1024), cfg.Imports.MaxFileSizeBytes)
	assert.NotEmpty(t, cfg.Validation.PhonePatterns)
}
