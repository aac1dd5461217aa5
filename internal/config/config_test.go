package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "TICK_INTERVAL", "SWEEP_SCHEDULE", "AMQP_URL", "CORS_ORIGINS", "ADMIN_PASS_HASH"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.Mode != ModeOffline || c.HTTPAddr != ":8080" || c.DBDriver != "sqlite" {
		t.Fatalf("defaults: %+v", c)
	}
	if c.TickInterval != time.Second || c.SweepSchedule != "" || c.AMQPURL != "" {
		t.Fatalf("defaults: %+v", c)
	}
	if len(c.CORSOrigins) != 2 {
		t.Fatalf("cors %v", c.CORSOrigins)
	}
	if c.AdminPassHash != "" {
		t.Fatal("admin login must be off until a password hash is configured")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "debug")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("ENABLE_LOCAL_AUTH", "no")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("LOG_LEVEL", "warn")

	c := FromEnv()
	if c.DBDriver != "memory" || c.TickInterval != 250*time.Millisecond || c.EnableLocalAuth {
		t.Fatalf("overrides: %+v", c)
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors %q", c.CORSOrigins)
	}
	if c.Logger().Level != logrus.DebugLevel {
		t.Fatal("debug mode should force debug logging")
	}
	c.Mode = ModeOnline
	if c.Logger().Level != logrus.WarnLevel {
		t.Fatalf("level %v", c.Logger().Level)
	}
}

func TestTickIntervalSeconds(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "2")
	if d := FromEnv().TickInterval; d != 2*time.Second {
		t.Fatalf("got %v", d)
	}
	t.Setenv("TICK_INTERVAL", "bogus")
	if d := FromEnv().TickInterval; d != time.Second {
		t.Fatalf("got %v", d)
	}
}
