package contract

import (
	"reflect"
	"time"
)

// Hook is a unit of declarative behavior attached to a contract, an
// operation or a parameter.
type Hook interface {
	// AllowMultiple reports whether several hooks with the same identity
	// may be active on one operation.
	AllowMultiple() bool
}

// Keyed hooks share an identity across types. Hooks without a key are
// identified by their dynamic type.
type Keyed interface {
	HookKey() string
}

// ActionHook mutates the outbound request before parameters are bound.
type ActionHook interface {
	Hook
	OnRequest(cc *CallContext) error
}

// Argument is a bound argument as seen by a ParameterHook.
type Argument struct {
	Name  string
	Type  reflect.Type
	Value any
}

// ParameterHook maps one argument onto the request.
type ParameterHook interface {
	Hook
	OnParameter(cc *CallContext, arg Argument) error
}

// TypeChecker is implemented by parameter hooks that only accept some
// argument types. It runs when the template is built.
type TypeChecker interface {
	CheckType(t reflect.Type) error
}

// FilterHook wraps a whole call. OnEnd runs even when the send failed and
// can inspect CallContext.Err.
type FilterHook interface {
	Hook
	OnBegin(cc *CallContext) error
	OnEnd(cc *CallContext) error
}

// ReturnHook extracts the declared result from the response.
type ReturnHook interface {
	Hook
	OnReturn(cc *CallContext) (any, error)
}

// CachePolicy is the per-call cache decision.
type CachePolicy struct {
	Read  bool
	Write bool
}

// CacheHook controls the response cache for an operation.
type CacheHook interface {
	Hook
	Policy(cc *CallContext) CachePolicy
	Key(cc *CallContext) (string, error)
	TTL() time.Duration
	// Store names the cache store, empty for the default one.
	Store() string
}

// CacheSpec is the parsed value of a cache tag.
type CacheSpec struct {
	TTL   time.Duration
	Read  bool
	Write bool
	Store string
	Vary  []string
}

// Return formats accepted by the return tag.
const (
	FormatAuto  = "auto"
	FormatJSON  = "json"
	FormatXML   = "xml"
	FormatYAML  = "yaml"
	FormatProto = "proto"
	FormatForm  = "form"
	FormatRaw   = "raw"
)

// ReturnSpec is the parsed value of a return tag.
type ReturnSpec struct {
	Format string
	// AllowError hands non-2xx responses to the return hook instead of
	// failing the call.
	AllowError bool
}

// Resolver builds hooks from tag values. Every error it returns is reported
// as a configuration error naming the operation.
type Resolver interface {
	// Action resolves the method keys, host, header and timeout.
	Action(key, value string) (ActionHook, error)
	// NamedAction resolves an entry of a hook tag.
	NamedAction(name string) (ActionHook, error)
	// Filter resolves an entry of a filter tag.
	Filter(name string) (FilterHook, error)
	// Parameter resolves one parameter kind; alias may be empty.
	Parameter(kind, alias string) (ParameterHook, error)
	Return(spec ReturnSpec) (ReturnHook, error)
	Cache(spec CacheSpec) (CacheHook, error)
}

// HookProvider is implemented by contract types that declare hooks in code.
// Programmatic hooks follow tag hooks of the same level.
type HookProvider interface {
	ContractHooks() []Hook
	OperationHooks(operation string) []Hook
}

// Merge combines contract-level and operation-level hooks. For hooks that
// forbid duplicates, the first operation-level occurrence wins; without
// one, the first contract-level occurrence wins. Survivors keep their
// position in the contract-then-operation order.
func Merge(contractLevel, operationLevel []Hook) []Hook {
	merged := make([]Hook, 0, len(contractLevel)+len(operationLevel))
	merged = append(merged, contractLevel...)
	merged = append(merged, operationLevel...)

	winner := make(map[any]int)
	claim := func(from, to int) {
		for i := from; i < to; i++ {
			h := merged[i]
			if h == nil || h.AllowMultiple() {
				continue
			}
			if _, ok := winner[identity(h)]; !ok {
				winner[identity(h)] = i
			}
		}
	}
	claim(len(contractLevel), len(merged))
	claim(0, len(contractLevel))

	out := make([]Hook, 0, len(merged))
	for i, h := range merged {
		if h == nil {
			continue
		}
		if h.AllowMultiple() || winner[identity(h)] == i {
			out = append(out, h)
		}
	}
	return out
}

func identity(h Hook) any {
	if k, ok := h.(Keyed); ok {
		return "key:" + k.HookKey()
	}
	return reflect.TypeOf(h)
}
