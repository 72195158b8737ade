package contract

import (
	"context"
	"errors"
	"reflect"
	"testing"

	apierrors "github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/task"
)

type user struct {
	ID string `json:"id"`
}

type base struct{}

type userAPI struct {
	base `host:"https://api.example.com/" header:"Accept: application/json"`

	GetUser  func(ctx context.Context, id string) (*user, error) `GET:"users/{id}" params:"id:path"`
	Delete   func(ctx context.Context, id string) error          `DELETE:"users/{id}" params:"id:path"`
	Lazy     func(id string) task.Task[*user]                    `GET:"users/{id}" params:"id"`
	Eager    func(ctx context.Context) *task.Future[[]user]      `GET:"users"`
	Close    func() error
	internal int
}

func TestAnalyze_Struct(t *testing.T) {
	c, err := Analyze(reflect.TypeFor[*userAPI]())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if c.Name != "userAPI" || c.Tag.Get("host") != "https://api.example.com/" {
		t.Fatalf("unexpected contract %+v", c)
	}

	want := []struct {
		name  string
		shape Shape
		res   reflect.Type
	}{
		{"GetUser", ShapeSync, reflect.TypeFor[*user]()},
		{"Delete", ShapeError, nil},
		{"Lazy", ShapeDeferred, reflect.TypeFor[*user]()},
		{"Eager", ShapeFuture, reflect.TypeFor[[]user]()},
		{"Close", ShapeError, nil},
	}
	if len(c.Operations) != len(want) {
		t.Fatalf("expected %d operations, got %d", len(want), len(c.Operations))
	}
	for i, w := range want {
		op := c.Operations[i]
		if op.Index != i || op.Name != w.name || op.Shape() != w.shape || op.ResultType() != w.res {
			t.Errorf("operation %d: got %s/%s/%v", i, op.Name, op.Shape(), op.ResultType())
		}
	}
	if !c.Operations[4].Dispose {
		t.Error("Close should be the dispose operation")
	}
	if op, ok := c.Operation("Lazy"); !ok || op.ID() != "userAPI.Lazy" {
		t.Error("lookup by name failed")
	}
}

func TestAnalyze_RejectsUnsupportedShapes(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		op   string
	}{
		{"property field", reflect.TypeFor[struct{ Name string }](), "Name"},
		{"property accessor", reflect.TypeFor[struct{ Name func() string }](), "Name"},
		{"bad return", reflect.TypeFor[struct{ Get func() (int, string) }](), "Get"},
		{"no return", reflect.TypeFor[struct{ Get func(int) }](), "Get"},
		{"variadic", reflect.TypeFor[struct{ Get func(...string) error }](), "Get"},
		{"channel", reflect.TypeFor[struct{ Get func(chan int) error }](), "Get"},
		{"callback", reflect.TypeFor[struct{ Get func(func()) error }](), "Get"},
		{"pointer to pointer", reflect.TypeFor[struct{ Get func(**user) error }](), "Get"},
		{"bad close", reflect.TypeFor[struct{ Close func() }](), "Close"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(tt.typ)
			if !errors.Is(err, apierrors.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			appErr, _ := apierrors.AsAppError(err)
			if appErr.Details[apierrors.DetailOperation] != tt.op {
				t.Errorf("error should name %s, got %v", tt.op, appErr.Details)
			}
		})
	}
}

type generic[T any] struct {
	Get func() (T, error) `GET:"x"`
}

func TestAnalyze_RejectsGeneric(t *testing.T) {
	if _, err := Analyze(reflect.TypeFor[generic[int]]()); !errors.Is(err, apierrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := Analyze(reflect.TypeFor[int]()); err == nil {
		t.Fatal("expected error for non-struct")
	}
}

type userService interface {
	Search(ctx context.Context, q string) ([]user, error)
	Get(ctx context.Context, id string) (*user, error)
	Close() error
}

func TestFromInterface_DeclarationOrder(t *testing.T) {
	specs := []OperationSpec{
		{Name: "Search", Tag: `GET:"users" params:"q:query"`},
		{Name: "Get", Tag: `GET:"users/{id}" params:"id:path"`},
		{Name: "Close"},
	}
	c, err := FromInterface(reflect.TypeFor[userService](), `host:"http://x"`, specs)
	if err != nil {
		t.Fatalf("FromInterface: %v", err)
	}
	for i, s := range specs {
		if c.Operations[i].Name != s.Name || c.Operations[i].Index != i {
			t.Errorf("operation %d is %s", i, c.Operations[i].Name)
		}
	}

	if _, err := FromInterface(reflect.TypeFor[userService](), "", specs[:2]); err == nil {
		t.Error("expected count mismatch error")
	}
	bad := append([]OperationSpec{{Name: "Nope"}}, specs[1:]...)
	if _, err := FromInterface(reflect.TypeFor[userService](), "", bad); err == nil {
		t.Error("expected unknown method error")
	}
}

func TestContract_Dispose(t *testing.T) {
	c, err := Analyze(reflect.TypeFor[userAPI]())
	if err != nil {
		t.Fatal(err)
	}
	if d := c.Dispose(); d != c.Operations[4] {
		t.Errorf("declared Close not used: %+v", d)
	}

	type noClose struct {
		Ping func() error `GET:"ping"`
	}
	c, err = Analyze(reflect.TypeFor[noClose]())
	if err != nil {
		t.Fatal(err)
	}
	if d := c.Dispose(); d == nil || !d.Dispose || d.Index != -1 || d.Name != DisposeName {
		t.Errorf("synthetic dispose = %+v", d)
	}
	if len(c.Operations) != 1 {
		t.Errorf("synthetic dispose leaked into operations")
	}
}
