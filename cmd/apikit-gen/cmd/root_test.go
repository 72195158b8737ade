package cmd

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestSources(t *testing.T) {
	dir := t.TempDir()
	write := func(rel string) {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("package p\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("a.go")
	write("a_test.go")
	write("a_apikit.go")
	write("sub/b.go")
	write("_skip/c.go")

	got, err := sources([]string{dir}, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{filepath.Join(dir, "a.go")}; !slices.Equal(got, want) {
		t.Errorf("sources() = %v, want %v", got, want)
	}

	got, err = sources([]string{dir}, true)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.go"), filepath.Join(dir, "sub", "b.go")}
	if !slices.Equal(got, want) {
		t.Errorf("recursive sources() = %v, want %v", got, want)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	src := `package users

import "context"

//apikit:contract host:"https://api.example.com/"
type Users interface {
	//apikit: GET:"users/{id}"
	Get(ctx context.Context, id string) error
}
`
	if err := os.WriteFile(filepath.Join(dir, "users.go"), []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	rootCmd.SetArgs([]string{dir})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "users_apikit.go")); err != nil {
		t.Errorf("stub not written: %v", err)
	}
}
