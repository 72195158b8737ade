// Package apikit turns annotated contract types into HTTP clients.
//
// A contract is a struct of func fields, or an interface processed by
// apikit-gen. Tags on the embedded Client and on each operation describe
// how a call maps onto a request:
//
//	type UserAPI struct {
//		apikit.Client `host:"https://api.example.com/" filter:"logging"`
//
//		GetUser func(ctx context.Context, id string) (*User, error) `GET:"users/{id}" params:"id:path"`
//		Search  func(ctx context.Context, q string) ([]User, error) `GET:"users" params:"q:query" cache:"30s"`
//		Lazy    func(ctx context.Context, id string) task.Task[*User] `GET:"users/{id}" params:"id"`
//	}
//
//	f, err := apikit.New(cfg)
//	defer f.Close()
//	api, err := apikit.Create[*UserAPI](f)
//	defer api.Close()
//	u, err := api.GetUser(ctx, "42")
//
// One Factory owns the template cache, the transport handle pool and the
// response caches shared by every client it creates.
package apikit
