// Package gen turns model declarations into resolved models and drives the
// code generators over them.
//
// # Architecture
//
// A generation run follows this flow:
//
//	load.Source (Go files, packages, YAML)
//	        ↓
//	   load.Scan (raw tags)
//	        ↓
//	   Parse (Model with relationship drafts)
//	        ↓
//	   Resolve (Graph with canonical Links and per-model Relationships)
//	        ↓
//	   Driver / GraphDriver (Artifact per model or per graph)
//	        ↓
//	   Emitter (DirWriter, MemoryEmitter)
//
// # Key Types
//
//   - Model: one class with its properties, identifier and relationship drafts
//   - Property: a scalar mapped attribute (plain, email, date or enum)
//   - Draft: a relationship as declared, target not yet bound
//   - Link: the canonical form of one logical relationship, owned by the Graph
//   - Relationship: one model's view of a Link
//   - Graph: the resolved model set
//   - Pipeline: load, parse, resolve, render and emit in one run
//
// # Relationships
//
// A many-to-one and the mirroring one-to-many share a single Link and a
// single foreign key column. A many-to-many pair shares one link table. A
// declaration without a mirror gets an implied view on the other model:
//
//	Post.author manytoone(User)  =>  User.posts (implied one-to-many)
//	Tag.posts   manytomany(Post) =>  Post.tags  (implied many-to-many)
//
// Resolution never mutates its input. Resolving the models of a graph again
// yields an equal graph.
//
// # Error Handling
//
// Failures are per model. A ParseError or ResolutionError fails the owning
// class only; every other class is still generated:
//
//	report, err := pipeline.Run(ctx)
//	if err != nil {
//	    return err // source, driver or emitter failure
//	}
//	for class, err := range report.Failed {
//	    if gen.IsResolutionError(err) {
//	        // Handle relationship errors
//	    }
//	}
//
// # Configuration
//
// Configuration is done via the functional options pattern:
//
//	p, err := gen.NewPipeline(src,
//	    gen.WithTarget("./actors"),
//	    gen.WithDrivers(drivers...),
//	    gen.WithWorkers(4),
//	)
//
// The package name defaults to the base of the target directory.
package gen
