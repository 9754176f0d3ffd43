/*
Package ports defines the driven ports (interfaces) for the Canopy engine.

These interfaces decouple the core logic from external implementations,
allowing the engine to work with various storage backends.

# Key Interfaces

  - TreeStore: persists versioned tree definitions (e.g. in memory or Redis).

The package also exports contract test suites (RunTreeStoreContract) so
that every adapter can prove it honors the port's semantics.
*/
package ports
