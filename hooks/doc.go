// Package hooks holds the built-in hooks and the Registry that resolves
// contract tags into them.
//
// Registry implements contract.Resolver. Tag keys map to hooks as follows:
//
//	host:"https://api.example.com/"     Host
//	header:"Accept: application/json"   Header, one per pair
//	timeout:"5s"                        Timeout
//	hook:"requestid,useragent"          named action hooks
//	filter:"logging"                    named filters
//	params:"id:path;q:query"            parameter hooks per kind
//	cache:"30s"                         Cache
//	return:"json"                       Return
//
// Hooks that need runtime collaborators, such as Auth or TokenFilter, are
// registered by name or attached in code through contract.HookProvider.
package hooks
