package probe_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/calder-dev/stackstatus/internal/config"
	"github.com/calder-dev/stackstatus/internal/probe"
)

func TestRedisProbe_NothingListening(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	svc := makeTCPService(t, addr, func(s *config.Service) {
		s.Type = "redis"
		s.Timeout = config.Duration{Duration: 500 * time.Millisecond}
	})

	start := time.Now()
	result := probe.NewRedisProbe(svc).Run(context.Background())
	elapsed := time.Since(start)

	if result.Failed {
		t.Fatalf("dead cache must be unreachable, not failed: %s", result.Reason)
	}
	if result.Reachable {
		t.Error("expected reachable=false with nothing listening")
	}
	if elapsed > 3*time.Second {
		t.Errorf("probe took %v, should be bounded by timeout", elapsed)
	}
}

func TestRedisProbe_NonRedisListener(t *testing.T) {
	// A listener that accepts and says nothing is not a usable cache.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			// Hold the connection open without speaking RESP.
			go func() {
				time.Sleep(2 * time.Second)
				conn.Close()
			}()
		}
	}()

	svc := makeTCPService(t, ln.Addr().String(), func(s *config.Service) {
		s.Type = "redis"
		s.Timeout = config.Duration{Duration: 200 * time.Millisecond}
	})

	result := probe.NewRedisProbe(svc).Run(context.Background())
	if result.Reachable {
		t.Error("expected reachable=false when PING gets no reply")
	}
}
