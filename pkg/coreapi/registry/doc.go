// Package registry provides the concurrency-safe lookup table behind the
// hub's channel signature store.
//
// The table is generic over comparable keys and any value type, and is
// tuned for the signature store's access pattern: channels declare their
// shapes once at startup, then every listener registration reads. Within
// coreapi, channel names map to declared argument shapes:
//
//	sigs := registry.New[string, hub.Signature]()
//	sigs.Register("context.started.web.request", hub.Signature{Arity: 1})
//
//	sig, ok := sigs.Get("context.started.web.request")
//	if ok {
//	    fmt.Println(sig.Arity) // Output: 1
//	}
//
// The registry is equally usable for host-side lookup tables, for example
// mapping channel namespaces to product owners:
//
//	owners := registry.New[string, string]()
//	owners.Register("appsec", "security-products")
//	owners.Register("trace", "apm")
package registry
