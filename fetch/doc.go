// Package fetch runs the four-stage identifier lookup pipeline.
//
//	RecordSource -> Extractor -> Dispatcher -> Parser -> Accumulator -> ResultSink
//
// Every stage runs on its own goroutine and owns its queues outright. Once
// per tick a stage ships everything it produced since the previous tick to
// the next stage as a single batch; nothing else is shared between stages.
//
// The Dispatcher is the only stage that talks to the remote service. It
// admits at most one lookup per rate interval and never retries: a failed
// lookup travels on with an empty payload so the record still reaches the
// output document with an absent identifier.
//
// The Accumulator decides when the run is over. In CompletionQuiescence
// mode it writes the document after a configured number of consecutive
// ticks without new results. That inference can fire early when upstream
// stalls for a whole window, so CompletionEOS is offered as well: an
// end-of-stream mark is forwarded stage by stage once each stage has
// nothing queued and nothing in flight.
package fetch
