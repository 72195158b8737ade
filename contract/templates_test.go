package contract

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	apierrors "github.com/kbukum/apikit/errors"
)

func mustAnalyze(t *testing.T, typ reflect.Type) *Contract {
	t.Helper()
	c, err := Analyze(typ)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return c
}

func TestTemplates_BuildsOncePerOperation(t *testing.T) {
	c := mustAnalyze(t, reflect.TypeFor[userAPI]())
	tpl := NewTemplates(fakeResolver{})

	var wg sync.WaitGroup
	results := make([]*Action, 32)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := tpl.Get(c, 0)
			if err != nil {
				t.Error(err)
			}
			results[i] = a
		}()
	}
	wg.Wait()

	if tpl.Builds() != 1 {
		t.Fatalf("expected one build, got %d", tpl.Builds())
	}
	for _, a := range results {
		if a != results[0] {
			t.Fatal("callers received different templates")
		}
	}
	if _, err := tpl.Get(c, 0); err != nil || tpl.Builds() != 1 {
		t.Fatalf("second lookup rebuilt the template (builds=%d, err=%v)", tpl.Builds(), err)
	}
	if _, err := tpl.Get(c, 99); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestTemplates_Prepare(t *testing.T) {
	c := mustAnalyze(t, reflect.TypeFor[userAPI]())
	tpl := NewTemplates(fakeResolver{})
	if err := tpl.Prepare(c); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if tpl.Builds() != 4 || tpl.Len() != 4 {
		t.Fatalf("expected 4 templates, got builds=%d len=%d", tpl.Builds(), tpl.Len())
	}
}

func TestTemplates_Action(t *testing.T) {
	c := mustAnalyze(t, reflect.TypeFor[userAPI]())
	a, err := NewTemplates(fakeResolver{}).Get(c, 0)
	if err != nil {
		t.Fatal(err)
	}
	if a.Method != "GET" || a.Path != "users/{id}" {
		t.Errorf("method/path = %s %s", a.Method, a.Path)
	}
	if len(a.Parameters) != 2 || !a.Parameters[0].IsContext || a.Parameters[1].Name != "id" {
		t.Fatalf("unexpected parameters %+v", a.Parameters)
	}
	if p := a.Parameters[1].Hooks[0].(*fakeParam); p.kind != KindPath {
		t.Errorf("expected path binding, got %s", p.kind)
	}
	if a.Return.Shape != ShapeSync || a.Return.Type != reflect.TypeFor[*user]() || a.Return.Hook == nil {
		t.Errorf("unexpected return %+v", a.Return)
	}
	if len(a.Hooks) != 2 {
		t.Errorf("expected host and header hooks, got %d", len(a.Hooks))
	}
}

type overrideAPI struct {
	base `host:"https://contract/" header:"X-A: 1; X-B: 2" timeout:"5s" hook:"trace"`

	Get func(ctx context.Context) error `GET:"x" host:"https://operation/" header:"X-C: 3" hook:"trace"`
}

func TestTemplates_OperationLevelOverridesContractLevel(t *testing.T) {
	c := mustAnalyze(t, reflect.TypeFor[overrideAPI]())
	a, err := NewTemplates(fakeResolver{}).Get(c, 0)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, h := range a.Hooks {
		f := h.(*fakeAction)
		got = append(got, f.key+"="+f.value)
	}
	want := []string{
		"header=X-A: 1",
		"header=X-B: 2",
		"timeout=5s",
		"host=https://operation/",
		"header=X-C: 3",
		"named:trace=trace",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("merged hooks\n got %v\nwant %v", got, want)
	}
}

func TestMerge(t *testing.T) {
	ch := &fakeAction{key: "host", value: "contract"}
	ch2 := &fakeAction{key: "host", value: "contract-2"}
	hdr := &fakeAction{key: "header", multiple: true}
	oh := &fakeAction{key: "host", value: "operation"}
	oh2 := &fakeAction{key: "host", value: "operation-2"}

	got := Merge([]Hook{ch, hdr, ch2}, []Hook{oh, hdr, oh2})
	if len(got) != 3 || got[0] != hdr || got[1] != oh || got[2] != hdr {
		t.Fatalf("unexpected merge %v", got)
	}

	got = Merge([]Hook{ch, ch2}, nil)
	if len(got) != 1 || got[0] != ch {
		t.Fatalf("first contract-level hook should win, got %v", got)
	}

	f1, f2 := &fakeFilter{name: "a"}, &fakeFilter{name: "b"}
	if got := Merge([]Hook{f1}, []Hook{f2}); len(got) != 2 {
		t.Fatalf("filters allow duplicates, got %v", got)
	}
}

type paramsAPI struct {
	List    func(ctx context.Context, q string, page int) error      `GET:"users" params:"q:query=search+header=X-Q;page" validate:"page=min=1"`
	Wait    func(ctx context.Context, d time.Duration) error          `GET:"wait" params:"d:timeout"`
	BadWait func(ctx context.Context, d string) error                 `GET:"wait" params:"d:timeout"`
	TooMany func(id string) error                                     `GET:"x" params:"a;b"`
	BadRule func(id string) error                                     `GET:"x" params:"id" validate:"nope=required"`
	BadKind func(id string) error                                     `GET:"x" params:"id:bogus"`
	Unnamed func(a, b string) error                                   `GET:"x"`
	NoVerb  func() error                                              `host:"x"`
	TwoVerb func() error                                              `GET:"x" POST:"y"`
	Hook    func() error                                              `GET:"x" hook:"missing"`
	Cached  func() ([]byte, error)                                    `GET:"x" cache:"30s,read-only,store=shared" return:"raw,allow-error" validate-result:"true"`
}

func TestTemplates_Parameters(t *testing.T) {
	c := mustAnalyze(t, reflect.TypeFor[paramsAPI]())
	tpl := NewTemplates(fakeResolver{})

	list, err := tpl.Get(c, 0)
	if err != nil {
		t.Fatal(err)
	}
	q := list.Parameters[1]
	if q.Name != "q" || len(q.Hooks) != 2 {
		t.Fatalf("unexpected q parameter %+v", q)
	}
	if h := q.Hooks[0].(*fakeParam); h.kind != KindQuery || h.alias != "search" {
		t.Errorf("first binding = %+v", h)
	}
	if h := q.Hooks[1].(*fakeParam); h.kind != KindHeader || h.alias != "X-Q" {
		t.Errorf("second binding = %+v", h)
	}
	page := list.Parameters[2]
	if page.Rules != "min=1" || page.Hooks[0].(*fakeParam).kind != KindPathQuery {
		t.Errorf("unexpected page parameter %+v", page)
	}

	if _, err := tpl.Get(c, 1); err != nil {
		t.Errorf("duration timeout parameter: %v", err)
	}

	unnamed, err := tpl.Get(c, 6)
	if err != nil || unnamed.Parameters[0].Name != "arg0" || unnamed.Parameters[1].Name != "arg1" {
		t.Errorf("default names: %v", err)
	}

	cached, err := tpl.Get(c, 10)
	if err != nil {
		t.Fatal(err)
	}
	cs := cached.Cache.(*fakeCache).spec
	if !cs.Read || cs.Write || cs.Store != "shared" || cs.TTL != 30*time.Second {
		t.Errorf("cache spec = %+v", cs)
	}
	if !cached.Return.AllowError || !cached.Return.Validate || cached.Return.Hook.(*fakeReturn).spec.Format != FormatRaw {
		t.Errorf("return = %+v", cached.Return)
	}

	for _, i := range []int{2, 3, 4, 5, 7, 8, 9} {
		if _, err := tpl.Get(c, i); !errors.Is(err, apierrors.ErrConfiguration) {
			t.Errorf("%s: expected configuration error, got %v", c.Operations[i].Name, err)
		}
	}
	if _, err := tpl.Get(c, 2); err == nil {
		t.Error("build errors should be cached")
	}
}

func TestBind_IsolatesCalls(t *testing.T) {
	c := mustAnalyze(t, reflect.TypeFor[userAPI]())
	a, _ := NewTemplates(fakeResolver{}).Get(c, 0)

	ctx := context.WithValue(context.Background(), struct{}{}, "v")
	args := []any{ctx, "1"}
	b1, err := a.Bind(args)
	if err != nil {
		t.Fatal(err)
	}
	args[1] = "mutated"
	b2, _ := a.Bind([]any{nil, "2"})

	if v, _ := b1.Lookup("id"); v != "1" {
		t.Errorf("b1 sees %v", v)
	}
	if v, _ := b2.Lookup("id"); v != "2" {
		t.Errorf("b2 sees %v", v)
	}
	if b1.Context() != ctx || b2.Context() == nil {
		t.Error("context argument not bound")
	}
	if _, ok := b1.Lookup("ctx"); ok {
		t.Error("context must not be looked up as an argument")
	}
	if _, err := a.Bind([]any{"only"}); err == nil {
		t.Error("expected argument count error")
	}
}

func TestBind_ConcurrentCallsSeeOwnArguments(t *testing.T) {
	c := mustAnalyze(t, reflect.TypeFor[userAPI]())
	a, _ := NewTemplates(fakeResolver{}).Get(c, 0)

	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('A' + i%26))
			b, err := a.Bind([]any{context.Background(), id})
			if err != nil {
				t.Error(err)
				return
			}
			time.Sleep(time.Millisecond)
			if v := b.Value(a.Parameters[1]); v != id {
				t.Errorf("call %d saw %v, want %s", i, v, id)
			}
		}()
	}
	wg.Wait()
	if a.Parameters[1].Name != "id" {
		t.Fatal("template was mutated")
	}
}
