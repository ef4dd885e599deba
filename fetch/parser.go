package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/pmidfetch/errors"
	"github.com/kbukum/pmidfetch/logger"
	"github.com/kbukum/pmidfetch/pipeline"
)

// Parser turns lookup payloads into identifiers. Nothing it receives is
// dropped: failed lookups and unparsable payloads become absent entries.
type Parser struct {
	in        pipeline.Link[LookupResult]
	inbox     pipeline.Inbox[LookupResult]
	out       *pipeline.Outbox[ParsedResult]
	extractor IdentifierExtractor
	tick      time.Duration
	mode      CompletionMode
	obs       Observer
	log       *logger.Logger

	parsed   int
	resolved int
}

// NewParser returns a Parser reading from in and feeding out.
func NewParser(in pipeline.Link[LookupResult], out pipeline.Link[ParsedResult], extractor IdentifierExtractor, cfg Config, obs Observer, log *logger.Logger) *Parser {
	return &Parser{
		in:        in,
		out:       pipeline.NewOutbox(out),
		extractor: extractor,
		tick:      cfg.Tick,
		mode:      cfg.Completion,
		obs:       obs,
		log:       log.WithComponent(string(StageParser)),
	}
}

// Run parses until ctx is cancelled or, in EOS mode, until upstream has
// ended and every result has been shipped.
func (p *Parser) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	in := p.in
	for {
		select {
		case <-ctx.Done():
			return nil

		case batch, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			p.inbox.Accept(batch)
			for {
				res, ok := p.inbox.Pop()
				if !ok {
					break
				}
				p.out.Push(p.Parse(res))
			}

		case <-ticker.C:
			p.obs.QueueDepth(StageParser, p.inbox.Len()+p.out.Len())
			last := p.mode == CompletionEOS && p.inbox.Exhausted()
			var shipped int
			var err error
			if last {
				shipped, err = p.out.Close(ctx)
			} else {
				shipped, err = p.out.Flush(ctx)
			}
			if err != nil {
				return nil
			}
			if shipped > 0 {
				p.log.Debug("results parsed", logger.Fields(
					logger.FieldBatchSize, shipped,
					"parsed", p.parsed,
					"resolved", p.resolved,
				))
			}
			if last {
				p.log.Info("parser finished", logger.Fields("parsed", p.parsed, "resolved", p.resolved))
				return nil
			}
		}
	}
}

// Parse extracts the identifier for one lookup result. It never fails and
// never panics; every problem yields an absent identifier.
func (p *Parser) Parse(res LookupResult) ParsedResult {
	out := ParsedResult{Record: res.Record, Identifier: Absent()}
	p.parsed++
	if res.Failed() || len(res.Payload) == 0 {
		p.obs.Parsed(out)
		return out
	}

	id, err := p.extract(res.Payload)
	if err != nil {
		p.log.Debug("payload not parsed", logger.Fields(
			logger.FieldTitle, res.Record.Title,
			logger.FieldError, err.Error(),
		))
	} else {
		out.Identifier = id
	}
	if out.Identifier.IsResolved() {
		p.resolved++
	}
	p.obs.Parsed(out)
	return out
}

func (p *Parser) extract(payload []byte) (id Identifier, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, err = Absent(), errors.ParseFailed(fmt.Errorf("extractor panic: %v", r))
		}
	}()
	id, err = p.extractor.Extract(payload)
	if err != nil {
		return Absent(), errors.ParseFailed(err)
	}
	return id, nil
}
