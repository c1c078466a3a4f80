package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/moto-rentals/internal/config"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("STORE", config.StoreMemory)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MQTT_BROKER", "")
	return config.Load()
}

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return strconv.Itoa(l.Addr().(*net.TCPAddr).Port)
}

func TestNewApp_MemoryStore(t *testing.T) {
	log, _ := test.NewNullLogger()
	a, err := newApp(context.Background(), memoryConfig(t), log)
	require.NoError(t, err)
	defer a.close(context.Background())

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","store":"ok","notifications":"disabled"}`, w.Body.String())

	w = httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/motorcycles", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestNewApp_UnreachableMongo(t *testing.T) {
	t.Setenv("STORE", config.StoreMongo)
	t.Setenv("MONGO_URI", "not-a-mongo-uri")
	log, _ := test.NewNullLogger()

	_, err := newApp(context.Background(), config.Load(), log)
	assert.ErrorContains(t, err, "connect to MongoDB")
}

func TestRun_GracefulShutdown(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Port = freePort(t)
	log, hook := test.NewNullLogger()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, log) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:" + cfg.Port + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, "Server stopped", hook.LastEntry().Message)
}

func TestRun_ListenError(t *testing.T) {
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer l.Close()

	cfg := memoryConfig(t)
	cfg.Port = strconv.Itoa(l.Addr().(*net.TCPAddr).Port)
	log, _ := test.NewNullLogger()

	err = run(context.Background(), cfg, log)
	assert.ErrorContains(t, err, "listen on")
}
