/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing behavior tree documents.

It allows developers to define trees using a type-safe, fluent builder pattern
instead of relying on external YAML or JSON files. This is particularly useful for dynamic tree
generation, unit testing, and leveraging IDE autocompletion/type-checking.

Example usage:

	package main

	import (
		"github.com/aretw0/canopy/pkg/dsl"
	)

	func main() {
		def, err := dsl.Tree("patrol").
			Name("Patrol Robot").
			Root(dsl.Selector("root",
				dsl.Sequence("charge",
					dsl.Leaf("low-battery", "wait-for-blackboard").
						Param("key", "battery").Param("op", "<").Param("value", 20),
					dsl.Leaf("dock", "blackboard-set").
						Param("key", "docked").Param("value", true),
				),
				dsl.Leaf("wander", "tick-counter").Param("ticks", 3),
			)).
			Build()
		if err != nil {
			// ...
		}
		// def is a *domain.TreeDefinition, ready for an engine or a store.
		_ = def
	}
*/
package dsl
