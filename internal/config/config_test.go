package config

import (
	"reflect"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.value)
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      int
		expected int
	}{
		{"valid integer", "42", 1, 42},
		{"invalid integer uses default", "forty-two", 7, 7},
		{"missing variable uses default", "", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.value)
			if got := getenvInt("TEST_INT", tt.def); got != tt.expected {
				t.Errorf("getenvInt() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_BOOL_MISSING",
			value:    "",
			def:      false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{` a , "b" ,, 'c' `, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		if got := splitAndTrim(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitAndTrim(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORTAL_STORE_BACKEND", "")

	cfg := Load()

	if cfg.ListenPort != ":3001" {
		t.Errorf("ListenPort = %q, want :3001", cfg.ListenPort)
	}
	if cfg.StoreBackend != BackendFile || cfg.DataDir != "./data" {
		t.Errorf("store = %s at %s", cfg.StoreBackend, cfg.DataDir)
	}
	if cfg.SessionTTL != 2*time.Hour || cfg.RequireSession {
		t.Errorf("session = %v require=%v", cfg.SessionTTL, cfg.RequireSession)
	}
	if cfg.HealthInterval != 30*time.Second || cfg.ProbeTimeout != 5*time.Second {
		t.Errorf("health = %v probe = %v", cfg.HealthInterval, cfg.ProbeTimeout)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"*"}) {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if !reflect.DeepEqual(cfg.AllowedCIDRS, []string{"127.0.0.1/32", "::1/128"}) {
		t.Errorf("AllowedCIDRS = %v", cfg.AllowedCIDRS)
	}
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"PORTAL_STORE_BACKEND": "sqlite"}},
		{"redis without addr", map[string]string{"PORTAL_STORE_BACKEND": "redis", "PORTAL_REDIS_ADDR": ""}},
		{"redis password required", map[string]string{
			"PORTAL_STORE_BACKEND":           "redis",
			"PORTAL_REDIS_ADDR":              "localhost:6379",
			"PORTAL_REDIS_PASSWORD_REQUIRED": "true",
			"PORTAL_REDIS_PASSWORD":          "",
		}},
		{"short session key", map[string]string{"PORTAL_SESSION_KEY": "short"}},
		{"zero probe concurrency", map[string]string{"PORTAL_PROBE_CONCURRENCY": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			defer func() {
				if r := recover(); r == nil {
					t.Error("Load() should have panicked")
				}
			}()
			Load()
		})
	}
}

func TestLoadRedisBackend(t *testing.T) {
	t.Setenv("PORTAL_STORE_BACKEND", "Redis")
	t.Setenv("PORTAL_REDIS_ADDR", "redis:6379")
	t.Setenv("PORTAL_REDIS_DB", "2")

	cfg := Load()
	if cfg.StoreBackend != BackendRedis || cfg.RedisAddr != "redis:6379" || cfg.RedisDB != 2 {
		t.Errorf("redis config = %s %s %d", cfg.StoreBackend, cfg.RedisAddr, cfg.RedisDB)
	}
}
