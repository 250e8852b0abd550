package txpipe

import (
	"encoding/json"
	"time"

	"github.com/Alecsis/py-chain/internal/observability"
)

// Query answers an unauthenticated read-only request.
func (p *Pipeline) Query(raw []byte) Result {
	start := time.Now()
	route, err := peekRoute(raw)
	if err != nil {
		observability.RecordQuery("", string(CodeMalformedRequest), 0)
		return failure(err)
	}

	res := p.query(route, raw)
	observability.RecordQuery(route, string(res.Code), time.Since(start))
	return res
}

// QueryRequest answers an already decoded query.
func (p *Pipeline) QueryRequest(req Request) Result {
	raw, err := json.Marshal(req)
	if err != nil {
		return failure(malformed("%v", err))
	}
	return p.Query(raw)
}

func (p *Pipeline) query(route string, raw []byte) Result {
	if route != RouteBalance && route != RouteSequence && route != RouteSupply {
		return failure(ErrUnknownRoute)
	}
	req, err := decodeRequest(route, raw)
	if err != nil {
		return failure(err)
	}

	res := ok()
	switch r := req.(type) {
	case BalanceQuery:
		res.hasBalance = true
		bal, known := p.ledger.Balance(r.Address)
		if known || p.opts.UnknownBalance == UnknownBalanceZero {
			res.Balance = &bal
		}
	case SequenceQuery:
		seq := p.ledger.NextSequence(r.Address)
		res.Sequence = &seq
	case SupplyQuery:
		total, maxSupply, precision := p.ledger.TotalSupply(), p.ledger.MaxSupply(), p.ledger.Precision()
		res.TotalSupply = &total
		res.MaxSupply = &maxSupply
		res.Precision = &precision
	}
	return res
}
