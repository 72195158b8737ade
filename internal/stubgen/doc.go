// Package stubgen generates stubs for interface contracts.
//
// An interface is a contract when its doc comment holds an
// //apikit:contract directive. Text after the directive is the
// contract-level tag; //apikit: lines on a method are its operation tag:
//
//	//apikit:contract host:"https://api.example.com/"
//	type UserService interface {
//		//apikit: GET:"users/{id}" params:"id:path"
//		GetUser(ctx context.Context, id string) (*User, error)
//		Close() error
//	}
//
// For users.go the generator writes users_apikit.go holding one stub per
// contract and an init function registering it with proxy.DefaultStubs.
package stubgen
