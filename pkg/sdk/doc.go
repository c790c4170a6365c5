// Package semsearch embeds the semantic search core in a Go process.
//
// The client talks to Redis or Valkey directly and encodes text in-process
// (or through a remote OpenAI-compatible endpoint); no HTTP server is needed.
//
//	client, _ := semsearch.New(ctx,
//	    semsearch.WithRedis("localhost:6379", ""),
//	    semsearch.WithCollection("products", 512),
//	)
//	defer client.Close()
//
//	id, _ := client.Add(ctx, "warm winter gloves")
//	res, _ := client.Search(ctx, "gloves", semsearch.TopK(5), semsearch.Mode("sparse"))
//
// Bulk loads go through Ingest or IngestFile, which batch, encode and upsert
// records and report how many were committed when a run stops early.
package semsearch
