// Package golden holds an interface contract and the stubs apikit-gen
// generates for it. The stubs are checked in; tests regenerate them and
// call the contract through a factory.
package golden

//go:generate go run ../../../cmd/apikit-gen users.go

import (
	"context"

	"github.com/kbukum/apikit/task"
)

// User is the resource served by UserService.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserService is the users API.
//
//apikit:contract header:"X-Client: golden"
type UserService interface {
	//apikit: GET:"users/{id}" params:"id:path"
	GetUser(ctx context.Context, id string) (*User, error)

	//apikit: GET:"users" params:"q"
	Search(ctx context.Context, q string) ([]User, error)

	//apikit: GET:"users/{id}" params:"id:path"
	Lazy(ctx context.Context, id string) task.Task[*User]

	//apikit: GET:"users/{id}" params:"id:path"
	Soon(ctx context.Context, id string) *task.Future[*User]

	//apikit: DELETE:"users/{id}" params:"id:path"
	Delete(ctx context.Context, id string) error

	Close() error
}
