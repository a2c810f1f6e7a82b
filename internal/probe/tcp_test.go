package probe_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/calder-dev/stackstatus/internal/config"
	"github.com/calder-dev/stackstatus/internal/probe"
)

func makeTCPService(t *testing.T, addr string, extras ...func(*config.Service)) config.Service {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	svc := config.Service{
		Name:    "test-tcp",
		Type:    "tcp",
		Host:    host,
		Port:    port,
		Timeout: config.Duration{Duration: 2 * time.Second},
	}
	for _, fn := range extras {
		fn(&svc)
	}
	return svc
}

func TestTCPProbe_Reachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	// Accept connections in background
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := probe.NewTCPProbe(makeTCPService(t, ln.Addr().String()))
	result := p.Run(context.Background())

	if result.Failed {
		t.Fatalf("expected ok result, got failure: %s", result.Reason)
	}
	if !result.Reachable {
		t.Error("expected reachable=true for a live listener")
	}
	if result.CheckedAt.IsZero() {
		t.Error("expected CheckedAt to be set")
	}
}

func TestTCPProbe_NothingListening(t *testing.T) {
	// Bind and immediately close to get a port that's not listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	p := probe.NewTCPProbe(makeTCPService(t, addr))

	start := time.Now()
	result := p.Run(context.Background())
	elapsed := time.Since(start)

	if result.Failed {
		t.Fatalf("refused connection must be unreachable, not failed: %s", result.Reason)
	}
	if result.Reachable {
		t.Error("expected reachable=false for a closed port")
	}
	// Must resolve well inside timeout + epsilon.
	if elapsed > 3*time.Second {
		t.Errorf("probe took %v, longer than timeout bound", elapsed)
	}
}

func TestTCPProbe_DoesNotHangPastTimeout(t *testing.T) {
	// A listener that accepts nothing: dial will sit in the backlog on
	// some platforms, so the timeout is the only bound.
	svc := makeTCPService(t, "10.255.255.1:9", func(s *config.Service) {
		s.Timeout = config.Duration{Duration: 100 * time.Millisecond}
	})
	p := probe.NewTCPProbe(svc)

	start := time.Now()
	result := p.Run(context.Background())
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Errorf("probe took %v, should be bounded by the 100ms timeout", elapsed)
	}
	if result.Reachable {
		t.Error("expected reachable=false for a black-hole address")
	}
}

func TestTCPProbe_InvalidHost(t *testing.T) {
	svc := config.Service{
		Name:    "bad",
		Type:    "tcp",
		Host:    "definitely-not-a-real-host.invalid",
		Port:    80,
		Timeout: config.Duration{Duration: 2 * time.Second},
	}
	result := probe.NewTCPProbe(svc).Run(context.Background())

	if !result.Failed {
		t.Fatal("expected failed result for an unresolvable host")
	}
	if result.Reason == "" {
		t.Error("expected a failure reason")
	}
}

func TestForService_UnknownType(t *testing.T) {
	_, err := probe.ForService(config.Service{Name: "x", Type: "carrier-pigeon"})
	if err == nil {
		t.Fatal("expected error for unknown service type")
	}
}
