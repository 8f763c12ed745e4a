// Package provider implements a small generic framework for swappable
// backends: a registry of named factories with cached instances, and
// priority-based selection among the instances that report available.
//
// Transcription backends, export targets and audio decoders all plug in
// through this package, so wiring anywhere in the codebase follows the
// same pattern.
//
// # Usage
//
//	reg := provider.NewRegistry[MyProvider]()
//	reg.RegisterFactory("default", myFactory)
//	p, _ := reg.Create("default", cfg)
//	reg.Set("default", p)
//
//	sel := &provider.PrioritySelector[MyProvider]{Priority: []string{"default", "fallback"}}
//	p, _ = sel.Select(ctx, instances)
package provider
