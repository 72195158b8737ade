// Package validation checks call parameters and decoded results with
// go-playground/validator rules.
//
// Parameters carry rule strings from the operation's validate tag and are
// checked with Var; struct results are checked with Struct using their own
// validate struct tags.
package validation
