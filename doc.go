/*
Package canopy is an embeddable behavior tree engine for building reactive
agents, game AI and long-running automation loops.

It separates the declarative tree document (Logic) from the runtime node
graph (Execution) and the mutable world state (Blackboard). The engine
manages compilation, ticking, scheduling and debugging, while your
application ("Host") registers custom node types and drives I/O.

# Concept

A tree document describes composites (sequence, selector, parallel),
decorators and leaf behaviors as plain YAML or JSON. The engine compiles
the document against a node registry into a live instance, then ticks it:
each tick propagates from the root, every visited node reports SUCCESS,
FAILURE or RUNNING, and state flows through a shared blackboard. Panics in
node code are contained per node, so one faulty behavior cannot take the
instance down.

# Key Features

  - Declarative Trees: documents are data; versioned, immutable once
    saved, composable through subtree references.
  - Hexagonal Architecture: storage is a port with in-memory and Redis
    adapters; custom node types plug into the registry.
  - Live Debugging: breakpoints with expression conditions, blackboard
    watches, tick-granular stepping and a bounded execution history.
  - Scheduling: manual, free-running and fixed-interval tick loops with
    backlog and lag reporting.

# Usage

Assemble an engine, save a document and tick an instance:

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/canopy"
		"github.com/aretw0/canopy/pkg/domain"
		"github.com/aretw0/canopy/pkg/scheduler"
	)

	func main() {
		eng := canopy.New()
		ctx := context.Background()

		def, err := domain.DecodeTree(document)
		if err != nil {
			log.Fatal(err)
		}
		if _, err := eng.SaveTree(ctx, def); err != nil {
			log.Fatal(err)
		}

		inst, err := eng.CreateInstance(ctx, def.ID, "", scheduler.Config{Mode: scheduler.ModeManual})
		if err != nil {
			log.Fatal(err)
		}
		res, err := eng.Tick(ctx, inst.ID(), 1)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("status: %s", res.Status)
	}

See the examples directory for complete documents and the debugging and
scheduling surfaces.
*/
package canopy
