// Package bootstrap runs the kernel startup sequence.
//
// An App loads configuration through the driver named by the configLoader
// key, rebuilds logging and telemetry from it, calls Register on every
// service provider and then boots them in registration order. Providers
// whose enable predicate is false are deferred. After the first pass each
// provider keeps a standing reaction on the re-evaluation topic
// (events.BlockApplied by default) that boots it once it becomes enabled
// and disposes it once it becomes disabled.
//
// # Quick Start
//
//	app := bootstrap.New("ledger",
//	    bootstrap.WithProvider("cache", cacheProvider),
//	    bootstrap.WithProvider("indexer", indexerProvider),
//	)
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// A required provider that fails to register or boot aborts startup with
// PROVIDER_CANNOT_BE_REGISTERED or PROVIDER_CANNOT_BE_BOOTED. An optional
// one is marked failed and never retried.
package bootstrap
