package utils

import "testing"

func TestPostgresPoolConfig_Defaults(t *testing.T) {
	c := PostgresPoolConfig{}.withDefaults()
	if c.MaxOpenConns <= 0 || c.MaxIdleConns <= 0 {
		t.Fatalf("expected positive pool sizes, got %+v", c)
	}
	if c.PingTimeout <= 0 {
		t.Fatalf("expected positive ping timeout, got %+v", c)
	}
}
