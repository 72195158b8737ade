package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/apikit/contract"
	apierrors "github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/hooks"
	"github.com/kbukum/apikit/proxy"
	"github.com/kbukum/apikit/task"
)

type profile struct{ Name string }

type profileAPI struct {
	proxy.Base `host:"https://profiles.example.com"`

	Get     func(ctx context.Context, name string) (*profile, error)      `GET:"profiles/{name}" params:"name"`
	Touch   func(ctx context.Context, name string) error                  `POST:"profiles/{name}/touch" params:"name"`
	Later   func(ctx context.Context, name string) task.Task[*profile]    `GET:"profiles/{name}" params:"name"`
	Now     func(ctx context.Context, name string) *task.Future[*profile] `GET:"profiles/{name}" params:"name"`
	Broken  func(ctx context.Context) task.Task[string]                   `GET:"broken" hook:"missing"`
	Blocked func(ctx context.Context) task.Task[string]                   `GET:"blocked"`
}

// fakeExec echoes the bound name argument and counts executions.
type fakeExec struct {
	runs atomic.Int32
	fn   func(ctx context.Context, b *contract.BoundAction) (any, error)
}

func (e *fakeExec) Execute(ctx context.Context, b *contract.BoundAction) (any, error) {
	e.runs.Add(1)
	if e.fn != nil {
		return e.fn(ctx, b)
	}
	name, _ := b.Lookup("name")
	return &profile{Name: name.(string)}, nil
}

func newClient(t *testing.T, exec Executor, opts ...Option) (*profileAPI, *Dispatcher, *contract.Templates) {
	t.Helper()
	tpl := contract.NewTemplates(hooks.NewRegistry())
	d := New(tpl, exec, opts...)
	v, _, err := proxy.NewGenerator(proxy.NewStubRegistry()).Generate(reflect.TypeFor[profileAPI](), d)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return v.Interface().(*profileAPI), d, tpl
}

func TestIntercept_SyncRunsInline(t *testing.T) {
	exec := &fakeExec{}
	api, d, _ := newClient(t, exec)

	p, err := api.Get(context.Background(), "ada")
	if err != nil || p.Name != "ada" {
		t.Fatalf("Get = %+v, %v", p, err)
	}
	if err := api.Touch(context.Background(), "ada"); err != nil {
		t.Fatal(err)
	}
	if exec.runs.Load() != 2 || d.Calls() != 2 {
		t.Fatalf("expected 2 executions, got %d", exec.runs.Load())
	}
}

func TestIntercept_DeferredWaitsForInvoke(t *testing.T) {
	exec := &fakeExec{}
	api, _, _ := newClient(t, exec)

	later := api.Later(context.Background(), "grace")
	if exec.runs.Load() != 0 {
		t.Fatal("a task must not run before Invoke")
	}
	for i := 1; i <= 2; i++ {
		p, err := later.Invoke(context.Background())
		if err != nil || p.Name != "grace" {
			t.Fatalf("Invoke = %+v, %v", p, err)
		}
		if got := exec.runs.Load(); got != int32(i) {
			t.Fatalf("each Invoke runs the call again, got %d runs", got)
		}
	}
}

func TestIntercept_DeferredHonoursDeclarationContext(t *testing.T) {
	exec := &fakeExec{fn: func(ctx context.Context, _ *contract.BoundAction) (any, error) {
		<-ctx.Done()
		return nil, context.Cause(ctx)
	}}
	api, _, _ := newClient(t, exec)

	declared, cancel := context.WithCancelCause(context.Background())
	later := api.Blocked(declared)
	stop := errors.New("declaration cancelled")
	time.AfterFunc(10*time.Millisecond, func() { cancel(stop) })

	if _, err := later.Invoke(context.Background()); !errors.Is(err, stop) {
		t.Fatalf("expected the declaration cause, got %v", err)
	}
}

func TestIntercept_DeferredHonoursInvokeContext(t *testing.T) {
	exec := &fakeExec{fn: func(ctx context.Context, b *contract.BoundAction) (any, error) {
		if b.Context() != ctx {
			return nil, errors.New("bound context should be the invoke context")
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	api, _, _ := newClient(t, exec)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := api.Blocked(context.Background()).Invoke(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestIntercept_FutureStartsImmediately(t *testing.T) {
	started := make(chan struct{})
	exec := &fakeExec{}
	exec.fn = func(_ context.Context, b *contract.BoundAction) (any, error) {
		close(started)
		name, _ := b.Lookup("name")
		return &profile{Name: name.(string)}, nil
	}
	api, _, _ := newClient(t, exec)

	f := api.Now(context.Background(), "linus")
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("a future should start without Await")
	}
	p, err := f.Await(context.Background())
	if err != nil || p.Name != "linus" {
		t.Fatalf("Await = %+v, %v", p, err)
	}
}

func TestIntercept_TemplateErrorDeferredIntoTask(t *testing.T) {
	api, _, tpl := newClient(t, &fakeExec{})

	broken := api.Broken(context.Background())
	_, err := broken.Invoke(context.Background())
	if apierrors.CodeOf(err) != apierrors.ErrCodeConfiguration {
		t.Fatalf("expected configuration error on Invoke, got %v", err)
	}
	if tpl.Len() != 1 {
		t.Fatalf("failed builds are cached, got %d templates", tpl.Len())
	}
}

func TestClose_ReleasesOnceAndRejectsLaterCalls(t *testing.T) {
	var releases atomic.Int32
	exec := &fakeExec{}
	api, d, _ := newClient(t, exec, WithRelease(func() { releases.Add(1) }))

	pending := api.Later(context.Background(), "x")
	if err := api.Close(); err != nil {
		t.Fatal(err)
	}
	if err := api.Close(); err != nil {
		t.Fatal(err)
	}
	if releases.Load() != 1 || !d.Closed() {
		t.Fatalf("release should run once, ran %d times", releases.Load())
	}

	if _, err := api.Get(context.Background(), "x"); apierrors.CodeOf(err) != apierrors.ErrCodeClientClosed {
		t.Fatalf("expected CLIENT_CLOSED, got %v", err)
	}
	if _, err := pending.Invoke(context.Background()); apierrors.CodeOf(err) != apierrors.ErrCodeClientClosed {
		t.Fatalf("a task declared before Close should fail on Invoke, got %v", err)
	}
	if exec.runs.Load() != 0 {
		t.Fatal("nothing should run after Close")
	}
}

func TestIntercept_ConcurrentCallsKeepTheirArguments(t *testing.T) {
	exec := &fakeExec{fn: func(_ context.Context, b *contract.BoundAction) (any, error) {
		name, _ := b.Lookup("name")
		time.Sleep(time.Millisecond)
		again, _ := b.Lookup("name")
		if name != again {
			return nil, fmt.Errorf("argument changed from %v to %v", name, again)
		}
		return &profile{Name: name.(string)}, nil
	}}
	api, _, tpl := newClient(t, exec)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			want := fmt.Sprintf("user-%d", i)
			p, err := api.Get(context.Background(), want)
			if err != nil {
				errs <- err
				return
			}
			if p.Name != want {
				errs <- fmt.Errorf("got %s, want %s", p.Name, want)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if tpl.Builds() != 1 {
		t.Fatalf("the template should be built once, built %d times", tpl.Builds())
	}
}
