// Package component defines the lifecycle contract shared by long-lived
// parts of an application, such as a client factory or a fake API server
// in tests.
//
// A Registry starts components in registration order and stops them in
// reverse.
package component
