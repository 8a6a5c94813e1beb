package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "taskhub-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "taskhub-auth")
	}
	if cfg.JWTAudience != "taskhub-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "taskhub-api")
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 168*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", cfg.RefreshTTL())
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.MaxActiveSessions != 5 {
		t.Errorf("MaxActiveSessions = %d, want 5", cfg.MaxActiveSessions)
	}
	if cfg.SweepEvery() != 10*time.Minute {
		t.Errorf("SweepEvery = %v, want 10m", cfg.SweepEvery())
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("MAX_ACTIVE_SESSIONS", "3")
	os.Setenv("REFRESH_TOKEN_TTL", "24h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.MaxActiveSessions != 3 {
		t.Errorf("MaxActiveSessions = %d, want 3", cfg.MaxActiveSessions)
	}
	if cfg.RefreshTTL() != 24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 24h", cfg.RefreshTTL())
	}
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("BCRYPT_COST", "50")
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject BCRYPT_COST above 31")
	}
}

func TestLoad_InvalidMaxSessions(t *testing.T) {
	os.Clearenv()
	os.Setenv("MAX_ACTIVE_SESSIONS", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject non-positive MAX_ACTIVE_SESSIONS")
	}
}

func TestConfig_KafkaBrokersList(t *testing.T) {
	c := &Config{KafkaBrokers: "localhost:9092, broker2:9092 ,"}
	got := c.KafkaBrokersList()
	if len(got) != 2 || got[0] != "localhost:9092" || got[1] != "broker2:9092" {
		t.Errorf("KafkaBrokersList = %v", got)
	}
	if (&Config{}).KafkaBrokersList() != nil {
		t.Error("empty brokers should return nil")
	}
}

func TestConfig_DurationFallbacks(t *testing.T) {
	c := &Config{AccessTokenTTL: "bogus", RefreshTokenTTL: "-5h"}
	if c.AccessTTL() != 15*time.Minute {
		t.Errorf("invalid AccessTokenTTL should fall back to 15m, got %v", c.AccessTTL())
	}
	if c.RefreshTTL() != 168*time.Hour {
		t.Errorf("negative RefreshTokenTTL should fall back to 168h, got %v", c.RefreshTTL())
	}
}
