/*
Package domain holds the core vocabulary of the Canopy engine: node
statuses, declarative tree documents, lifecycle events, history
snapshots and the error taxonomy shared by every other package.

Everything here is plain data with no behavior-tree logic attached, so
adapters (storage, transport, CLI) can depend on it without pulling in
the runtime.
*/
package domain
