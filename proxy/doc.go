// Package proxy turns contract types into callable clients whose every
// operation forwards (target, operation, arguments) to one Interceptor.
//
// Struct contracts are synthesized on demand: each exported func field is
// set to a reflect.MakeFunc closure that already holds its *Operation, so
// dispatch needs no lookup. Interface contracts need a stub generated
// ahead of time by apikit-gen; the generated init code registers it in
// DefaultStubs.
//
// Operation i of a stub is operation i of the analysed contract. That index
// is what binds stubs to cached call templates.
package proxy
