// Package pipeline provides the building blocks for tick-driven, batched
// stage pipelines.
//
// A stage owns a StageQueue for the work it has produced. Once per tick it
// flushes that queue through an Outbox, which ships the whole queue to the
// next stage as a single Batch over a Link. The receiving stage accepts
// batches into its Inbox and works through them at its own pace. No queue
// is ever shared: ownership of an item moves with the batch.
//
//	link := pipeline.NewLink[string](8)
//	out := pipeline.NewOutbox(link)
//	out.Push("Alpha")
//	out.Push("Beta")
//	out.Flush(ctx) // one Batch{Items: [Alpha Beta]}
//
//	var in pipeline.Inbox[string]
//	in.Accept(<-link)
//
// Quiescence counts consecutive idle ticks and reports when a configured
// threshold is reached; it is how a terminal stage infers that upstream
// work has stopped. Batches also carry an EOS flag for pipelines that
// prefer an explicit end-of-stream signal.
//
// Iterator is the pull-based source contract: sources hand out values one
// at a time and report exhaustion with ok=false.
package pipeline
