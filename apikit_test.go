package apikit

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/apikit/auth"
	"github.com/kbukum/apikit/component"
	"github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/internal/stubgen/golden"
	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/task"
	"github.com/kbukum/apikit/testutil"
)

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userAPI struct {
	Client `filter:"svc"`

	GetUser    func(ctx context.Context, id string) (*user, error)                `GET:"users/{id}" params:"id:path"`
	Search     func(ctx context.Context, q string, limit int) ([]user, error)     `GET:"users" params:"q;limit" cache:"1m"`
	CreateUser func(ctx context.Context, u *user) (*user, error)                 `POST:"users" params:"u:json"`
	Delete     func(ctx context.Context, id string) error                        `DELETE:"users/{id}"`
	Lazy       func(ctx context.Context, id string) task.Task[*user]             `GET:"users/{id}"`
	Soon       func(ctx context.Context, id string) *task.Future[*user]          `GET:"users/{id}"`
	Raw        func(ctx context.Context, id string) (*http.Response, error)      `GET:"users/{id}" return:"allow-error"`
	Upload     func(ctx context.Context, body io.Reader) task.Task[string]       `POST:"uploads" params:"body:raw=text/plain"`
}

type plainAPI struct {
	Client
	GetUser func(ctx context.Context, id string) (*user, error) `GET:"users/{id}"`
}

type brokenAPI struct {
	Client
	Nothing func(ctx context.Context) error
}

func fakeAPI(t *testing.T) *testutil.Server {
	t.Helper()
	srv := testutil.NewServer()
	e := srv.Engine()
	e.GET("/users/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, user{ID: c.Param("id"), Name: "Ada"})
	})
	e.GET("/users", func(c *gin.Context) {
		c.JSON(http.StatusOK, []user{{ID: "1", Name: c.Query("q")}})
	})
	e.POST("/users", func(c *gin.Context) {
		var u user
		if err := c.ShouldBindJSON(&u); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		u.ID = "new"
		c.JSON(http.StatusCreated, u)
	})
	e.DELETE("/users/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	testutil.T(t).Setup(srv)
	return srv
}

func newFactory(t *testing.T, srv *testutil.Server, mutate func(*Config), opts ...Option) *Factory {
	t.Helper()
	cfg := Config{Name: "test", BaseURL: srv.BaseURL()}
	if mutate != nil {
		mutate(&cfg)
	}
	opts = append([]Option{
		WithLogger(logger.NewNop()),
		WithTokenSource("svc", auth.Static("Bearer", "secret")),
	}, opts...)
	f, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestCreateAndCall(t *testing.T) {
	srv := fakeAPI(t)
	f := newFactory(t, srv, nil)
	api, err := Create[*userAPI](f)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer api.Close()

	u, err := api.GetUser(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u.ID != "42" || u.Name != "Ada" {
		t.Errorf("GetUser() = %+v", u)
	}
	last, _ := srv.Last()
	if last.Method != http.MethodGet || last.Path != "/users/42" {
		t.Errorf("request = %s %s, want GET /users/42", last.Method, last.Path)
	}
	if got := last.Header.Get("Authorization"); got != "Bearer secret" {
		t.Errorf("Authorization = %q", got)
	}
	if got := last.Header.Get("User-Agent"); !strings.HasPrefix(got, "apikit/") {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestBodyAndNoContent(t *testing.T) {
	srv := fakeAPI(t)
	api, err := Create[*userAPI](newFactory(t, srv, nil))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	u, err := api.CreateUser(ctx, &user{Name: "Grace"})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID != "new" || u.Name != "Grace" {
		t.Errorf("CreateUser() = %+v", u)
	}
	last, _ := srv.Last()
	if !strings.Contains(last.Header.Get("Content-Type"), "application/json") {
		t.Errorf("Content-Type = %q", last.Header.Get("Content-Type"))
	}

	if err := api.Delete(ctx, "7"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	last, _ = srv.Last()
	if last.Path != "/users/7" {
		t.Errorf("path = %q", last.Path)
	}
}

func TestStatusError(t *testing.T) {
	srv := fakeAPI(t)
	api, err := Create[*userAPI](newFactory(t, srv, nil))
	if err != nil {
		t.Fatal(err)
	}

	_, err = api.GetUser(context.Background(), "missing")
	if !stderrors.Is(err, errors.ErrTransport) {
		t.Fatalf("GetUser() error = %v, want TRANSPORT_ERROR", err)
	}
	ae, _ := errors.AsAppError(err)
	if ae.HTTPStatus != http.StatusNotFound {
		t.Errorf("HTTPStatus = %d", ae.HTTPStatus)
	}

	resp, err := api.Raw(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Raw() error = %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Raw() status = %d", resp.StatusCode)
	}
}

func TestCachedOperation(t *testing.T) {
	srv := fakeAPI(t)
	api, err := Create[*userAPI](newFactory(t, srv, nil))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for range 3 {
		got, err := api.Search(ctx, "ada", 10)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(got) != 1 || got[0].Name != "ada" {
			t.Fatalf("Search() = %+v", got)
		}
	}
	if n := len(srv.Requests()); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
	last, _ := srv.Last()
	if last.Query != "limit=10&q=ada" && last.Query != "q=ada&limit=10" {
		t.Errorf("query = %q", last.Query)
	}

	if _, err := api.Search(ctx, "bob", 10); err != nil {
		t.Fatal(err)
	}
	if n := len(srv.Requests()); n != 2 {
		t.Errorf("requests = %d, want 2 after a different query", n)
	}
}

func TestDeferredShapes(t *testing.T) {
	srv := fakeAPI(t)
	api, err := Create[*userAPI](newFactory(t, srv, nil))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	lazy := api.Lazy(ctx, "1")
	if n := len(srv.Requests()); n != 0 {
		t.Fatalf("requests before Invoke = %d", n)
	}
	u, err := lazy.Invoke(ctx)
	if err != nil || u.ID != "1" {
		t.Fatalf("Invoke() = %+v, %v", u, err)
	}

	u, err = api.Soon(ctx, "2").Await(ctx)
	if err != nil || u.ID != "2" {
		t.Fatalf("Await() = %+v, %v", u, err)
	}
}

func TestRetryDecorator(t *testing.T) {
	srv := testutil.NewServer()
	var hits atomic.Int32
	srv.Engine().GET("/users/:id", func(c *gin.Context) {
		if hits.Add(1) < 3 {
			c.Status(http.StatusServiceUnavailable)
			return
		}
		c.JSON(http.StatusOK, user{ID: c.Param("id")})
	})
	testutil.T(t).Setup(srv)

	api, err := Create[*userAPI](newFactory(t, srv, nil))
	if err != nil {
		t.Fatal(err)
	}
	u, err := task.Retry(api.Lazy(context.Background(), "9"), 3).Invoke(context.Background())
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if u.ID != "9" || hits.Load() != 3 {
		t.Errorf("got %+v after %d hits", u, hits.Load())
	}
}

func TestRetryResendsReaderBody(t *testing.T) {
	tests := []struct {
		name string
		body func() io.Reader
	}{
		{"seeker", func() io.Reader { return strings.NewReader("payload") }},
		{"stream", func() io.Reader { return io.MultiReader(strings.NewReader("pay"), strings.NewReader("load")) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := testutil.NewServer()
			var mu sync.Mutex
			var bodies []string
			srv.Engine().POST("/uploads", func(c *gin.Context) {
				b, _ := io.ReadAll(c.Request.Body)
				mu.Lock()
				bodies = append(bodies, string(b))
				n := len(bodies)
				mu.Unlock()
				if n == 1 {
					c.Status(http.StatusServiceUnavailable)
					return
				}
				c.String(http.StatusOK, "got "+string(b))
			})
			testutil.T(t).Setup(srv)

			api, err := Create[*userAPI](newFactory(t, srv, nil))
			if err != nil {
				t.Fatal(err)
			}
			res, err := task.Retry(api.Upload(context.Background(), tc.body()), 1).Invoke(context.Background())
			if err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}
			mu.Lock()
			defer mu.Unlock()
			if res != "got payload" || len(bodies) != 2 || bodies[0] != "payload" || bodies[1] != "payload" {
				t.Errorf("result = %q, bodies = %q", res, bodies)
			}
		})
	}
}

func TestGeneratedStub(t *testing.T) {
	srv := fakeAPI(t)
	f := newFactory(t, srv, nil)
	api, err := Create[golden.UserService](f)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	ctx := context.Background()

	u, err := api.GetUser(ctx, "42")
	if err != nil || u.ID != "42" || u.Name != "Ada" {
		t.Fatalf("GetUser() = %+v, %v", u, err)
	}
	last, _ := srv.Last()
	if last.Path != "/users/42" || last.Header.Get("X-Client") != "golden" {
		t.Errorf("GetUser sent %s with X-Client %q", last.Path, last.Header.Get("X-Client"))
	}

	found, err := api.Search(ctx, "ada")
	if err != nil || len(found) != 1 || found[0].Name != "ada" {
		t.Fatalf("Search() = %+v, %v", found, err)
	}
	if last, _ = srv.Last(); last.Path != "/users" || last.Query != "q=ada" {
		t.Errorf("Search sent %s?%s", last.Path, last.Query)
	}

	if u, err = api.Lazy(ctx, "7").Invoke(ctx); err != nil || u.ID != "7" {
		t.Fatalf("Lazy() = %+v, %v", u, err)
	}
	if u, err = api.Soon(ctx, "8").Await(ctx); err != nil || u.ID != "8" {
		t.Fatalf("Soon() = %+v, %v", u, err)
	}
	if err := api.Delete(ctx, "9"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if last, _ = srv.Last(); last.Method != http.MethodDelete || last.Path != "/users/9" {
		t.Errorf("Delete sent %s %s", last.Method, last.Path)
	}

	if err := api.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := api.GetUser(ctx, "42"); !stderrors.Is(err, errors.ErrClientClosed) {
		t.Errorf("call after Close() error = %v", err)
	}
}

func TestDefaultTimeout(t *testing.T) {
	srv := testutil.NewServer()
	srv.Engine().GET("/users/:id", func(c *gin.Context) {
		time.Sleep(100 * time.Millisecond)
		c.JSON(http.StatusOK, user{ID: c.Param("id")})
	})
	testutil.T(t).Setup(srv)

	tests := []struct {
		name    string
		timeout time.Duration
		code    errors.ErrorCode
	}{
		{"bounded", 20 * time.Millisecond, errors.ErrCodeTimeout},
		{"disabled", -1, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFactory(t, srv, func(c *Config) { c.Timeout = tc.timeout })
			api, err := Create[*userAPI](f)
			if err != nil {
				t.Fatal(err)
			}
			_, err = api.GetUser(context.Background(), "1")
			if got := errors.CodeOf(err); got != tc.code {
				t.Errorf("code = %q, want %q (err %v)", got, tc.code, err)
			}
		})
	}
}

func TestClose(t *testing.T) {
	srv := fakeAPI(t)
	f := newFactory(t, srv, nil)
	api, err := Create[*userAPI](f)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Stats().Clients; got != 1 {
		t.Fatalf("Clients = %d, want 1", got)
	}
	if err := api.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := api.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if got := f.Stats().Clients; got != 0 {
		t.Errorf("Clients = %d, want 0", got)
	}
	if _, err := api.GetUser(context.Background(), "1"); !stderrors.Is(err, errors.ErrClientClosed) {
		t.Errorf("GetUser() after Close error = %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Create[*userAPI](f); !stderrors.Is(err, errors.ErrClientClosed) {
		t.Errorf("Create() after factory Close error = %v", err)
	}
}

func TestTemplatesShared(t *testing.T) {
	srv := fakeAPI(t)
	f := newFactory(t, srv, nil)
	for range 3 {
		api, err := Create[*userAPI](f)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := api.GetUser(context.Background(), "1"); err != nil {
			t.Fatal(err)
		}
	}
	st := f.Stats()
	if st.Builds != 1 || st.Templates != 1 {
		t.Errorf("Builds = %d Templates = %d, want 1 and 1", st.Builds, st.Templates)
	}
	if st.Handles.Active != 1 {
		t.Errorf("active handles = %d, want 1", st.Handles.Active)
	}
}

func TestTemplateErrors(t *testing.T) {
	srv := fakeAPI(t)

	lazy := newFactory(t, srv, nil)
	api, err := Create[*brokenAPI](lazy)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := api.Nothing(context.Background()); !stderrors.Is(err, errors.ErrConfiguration) {
		t.Errorf("Nothing() error = %v, want CONFIGURATION_ERROR", err)
	}

	eager := newFactory(t, srv, func(c *Config) { c.EagerTemplates = true })
	if _, err := Create[*brokenAPI](eager); !stderrors.Is(err, errors.ErrConfiguration) {
		t.Errorf("Create() error = %v, want CONFIGURATION_ERROR", err)
	}
	if _, err := Create[brokenAPI](eager); !stderrors.Is(err, errors.ErrConfiguration) {
		t.Errorf("Create() of a struct value error = %v", err)
	}
}

func TestStaticAuth(t *testing.T) {
	srv := fakeAPI(t)
	f := newFactory(t, srv, func(c *Config) {
		c.Auth = AuthConfig{Type: "api_key", Key: "k1", Name: "X-Token"}
		c.UserAgent = "apikit-test/1"
	})
	api, err := Create[*plainAPI](f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := api.GetUser(context.Background(), "1"); err != nil {
		t.Fatal(err)
	}
	last, _ := srv.Last()
	if got := last.Header.Get("X-Token"); got != "k1" {
		t.Errorf("X-Token = %q", got)
	}
	if got := last.Header.Get("User-Agent"); got != "apikit-test/1" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestComponent(t *testing.T) {
	srv := fakeAPI(t)
	c := NewComponent("users", Config{BaseURL: srv.BaseURL()}, WithLogger(logger.NewNop()))
	ctx := context.Background()

	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("Health() before Start = %s", h.Status)
	}
	reg := component.NewRegistry(logger.NewNop())
	if err := reg.Register(c); err != nil {
		t.Fatal(err)
	}
	if err := reg.StartAll(ctx); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("Health() = %s %s", h.Status, h.Message)
	}
	if d := c.Describe(); d.Type != "http-client" || !strings.Contains(d.Details, srv.BaseURL()) {
		t.Errorf("Describe() = %+v", d)
	}
	api, err := Create[*plainAPI](c.Factory())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := api.GetUser(ctx, "3"); err != nil {
		t.Fatal(err)
	}
	if err := reg.StopAll(ctx); err != nil {
		t.Fatalf("StopAll() error = %v", err)
	}
	if c.Factory() != nil {
		t.Error("Factory() after Stop is not nil")
	}
}

func TestTelemetryEnabled(t *testing.T) {
	srv := fakeAPI(t)
	f := newFactory(t, srv, func(c *Config) { c.Telemetry.Enabled = true })
	api, err := Create[*plainAPI](f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := api.GetUser(context.Background(), "5"); err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
