// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type mockHTTPServer struct {
	listenErr   error
	block       bool
	shutdownErr error
	listens     atomic.Int32
	shutdowns   atomic.Int32
	started     chan struct{}
	stop        chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{started: make(chan struct{}, 1), stop: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	m.listens.Add(1)
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.listenErr != nil {
		return m.listenErr
	}
	if m.block {
		<-m.stop
		return http.ErrServerClosed
	}
	return nil
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdowns.Add(1)
	close(m.stop)
	return m.shutdownErr
}

var _ suture.Service = (*HTTPServerService)(nil)

func TestNewHTTPServerService_DefaultTimeout(t *testing.T) {
	for _, timeout := range []time.Duration{0, -5 * time.Second} {
		svc := NewHTTPServerService(newMockHTTPServer(), timeout)
		if svc.shutdownTimeout != 10*time.Second {
			t.Errorf("timeout %v became %v, want 10s", timeout, svc.shutdownTimeout)
		}
	}
	if got := NewHTTPServerService(newMockHTTPServer(), time.Second).String(); got != "http-server" {
		t.Errorf("String = %q", got)
	}
}

func TestHTTPServerService_Serve(t *testing.T) {
	t.Run("shuts down on cancellation", func(t *testing.T) {
		server := newMockHTTPServer()
		server.block = true
		svc := NewHTTPServerService(server, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		<-server.started
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("err = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}
		if server.listens.Load() != 1 || server.shutdowns.Load() != 1 {
			t.Errorf("listens=%d shutdowns=%d", server.listens.Load(), server.shutdowns.Load())
		}
	})

	t.Run("returns startup failure", func(t *testing.T) {
		bindErr := errors.New("bind: address already in use")
		server := newMockHTTPServer()
		server.listenErr = bindErr

		err := NewHTTPServerService(server, time.Second).Serve(context.Background())
		if !errors.Is(err, bindErr) {
			t.Errorf("err = %v, want %v", err, bindErr)
		}
	})

	t.Run("returns shutdown failure", func(t *testing.T) {
		shutdownErr := errors.New("shutdown timeout")
		server := newMockHTTPServer()
		server.block = true
		server.shutdownErr = shutdownErr
		svc := NewHTTPServerService(server, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()
		<-server.started
		cancel()

		if err := <-errCh; !errors.Is(err, shutdownErr) {
			t.Errorf("err = %v, want shutdown error", err)
		}
	})
}

func TestHTTPServerService_RealServer(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", ReadHeaderTimeout: time.Second}
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}
