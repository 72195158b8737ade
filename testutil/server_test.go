package testutil

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/apikit/component"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestServer_RoutesAndRecords(t *testing.T) {
	srv := NewServer()
	srv.Engine().GET("/users/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	T(t).WithContext(t.Context()).Setup(srv)

	status, body := get(t, srv.BaseURL()+"/users/42?verbose=1")
	if status != http.StatusOK || !strings.Contains(body, `"42"`) {
		t.Fatalf("got %d %s", status, body)
	}
	last, ok := srv.Last()
	if !ok || last.Path != "/users/42" || last.Query != "verbose=1" || last.Method != http.MethodGet {
		t.Fatalf("unexpected recorded request %+v", last)
	}

	status, _ = get(t, srv.BaseURL()+"/missing")
	if status != http.StatusNotFound {
		t.Fatalf("unrouted path should be 404, got %d", status)
	}
	if len(srv.Requests()) != 2 {
		t.Fatalf("expected 2 recorded requests, got %d", len(srv.Requests()))
	}
}

func TestServer_ResetSnapshotRestore(t *testing.T) {
	srv := NewServer()
	srv.Engine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	T(t).Setup(srv)
	ctx := context.Background()

	get(t, srv.BaseURL()+"/ping")
	snap, _ := srv.Snapshot(ctx)
	get(t, srv.BaseURL()+"/ping")
	if err := srv.Restore(ctx, snap); err != nil {
		t.Fatal(err)
	}
	if len(srv.Requests()) != 1 {
		t.Fatalf("restore should keep 1 request, got %d", len(srv.Requests()))
	}

	url := srv.BaseURL()
	T(t).Reset(srv)
	if srv.BaseURL() != url {
		t.Fatal("reset should keep the address")
	}
	if status, _ := get(t, url+"/ping"); status != http.StatusNotFound {
		t.Fatalf("routes should be dropped by reset, got %d", status)
	}
}

func TestServer_Health(t *testing.T) {
	srv := NewServer()
	ctx := context.Background()
	if srv.Health(ctx).Status != component.StatusUnhealthy {
		t.Fatal("stopped server should be unhealthy")
	}
	cleanup, err := Setup(ctx, srv)
	if err != nil {
		t.Fatal(err)
	}
	if srv.Health(ctx).Status != component.StatusHealthy {
		t.Fatal("started server should be healthy")
	}
	if err := srv.Start(ctx); err == nil {
		t.Fatal("second start should fail")
	}
	if err := cleanup(); err != nil {
		t.Fatal(err)
	}
	if srv.BaseURL() != "" {
		t.Fatal("stopped server has no address")
	}
}
