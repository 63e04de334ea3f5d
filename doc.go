// Package strata is a client library for persisting typed data records in
// remote hierarchical object stores without hand-written serialization or
// upload code.
//
// Records are plain Go structs. Strata serializes them either as
// row-oriented JSON or as a column-oriented Parquet container holding a
// single row group, and uploads the bytes to Azure Blob Storage, Amazon S3,
// Google Cloud Storage or a local directory.
//
// # Architecture
//
// The columnar engine is the heart of the library:
//
//  1. The type mapper (pkg/schema) converts a field's declared semantic
//     type to a columnar storage type and a nullability flag.
//
//  2. The schema builder infers an ordered columnar schema from a record
//     type's exported fields, or defers to an explicit schema.Provider
//     implementation.
//
//  3. The column materializer (pkg/formats/parquet) extracts field values
//     into typed column arrays with best-effort coercion: a cell that
//     cannot be converted is written as the storage type's zero value.
//
//  4. The row-group reader reverses the process strictly: a read-time
//     coercion failure surfaces, since it signals the stored file no
//     longer matches the expected record type.
//
// The storage façade (pkg/store) caches store handles per connection, keeps
// upload/download metrics, and handles existing-destination conflicts with
// one delete-then-retry cycle.
//
// # Quick Start
//
//	cfg := config.Default()
//	cfg.Store.Backend = "azure"
//	cfg.Store.ConnectionString = os.Getenv("STRATA_STORE_CONNECTION_STRING")
//	cfg.Store.Container = "records"
//
//	client, err := store.NewClient(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	type Order struct {
//	    ID     int64
//	    Name   string
//	    Amount float64
//	}
//
//	object, err := client.Save(ctx, "orders/2026", "batch-01", orders)
//	// orders/2026/batch-01.parquet
//
//	var loaded []Order
//	err = client.Load(ctx, object, &loaded)
package strata
