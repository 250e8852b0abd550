package txpipe

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"slices"
	"strings"
)

const (
	RouteTransfer = "transfer"
	RouteFaucet   = "faucet"
	RouteBurn     = "burn"
	RouteBalance  = "balance"
	RouteSequence = "sequence"
	RouteSupply   = "supply"
)

const fieldRoute = "route"

// Request is a decoded payload. Each route has exactly one concrete type.
type Request interface {
	Route() string
}

// Transfer moves Amount from the signer to To.
type Transfer struct {
	To     string
	Amount int64
}

// Faucet credits the signer from the faucet account.
type Faucet struct {
	Amount int64
}

// Burn destroys Amount of the signer's tokens.
type Burn struct {
	Amount int64
}

type BalanceQuery struct {
	Address string
}

type SequenceQuery struct {
	Address string
}

type SupplyQuery struct{}

func (Transfer) Route() string      { return RouteTransfer }
func (Faucet) Route() string        { return RouteFaucet }
func (Burn) Route() string          { return RouteBurn }
func (BalanceQuery) Route() string  { return RouteBalance }
func (SequenceQuery) Route() string { return RouteSequence }
func (SupplyQuery) Route() string   { return RouteSupply }

// wire forms; route is always the first field

type transferWire struct {
	Route  string  `json:"route"`
	To     *string `json:"to"`
	Amount *int64  `json:"amount"`
}

type amountWire struct {
	Route  string `json:"route"`
	Amount *int64 `json:"amount"`
}

type addressWire struct {
	Route   string  `json:"route"`
	Address *string `json:"address"`
}

type routeWire struct {
	Route string `json:"route"`
}

func (t Transfer) MarshalJSON() ([]byte, error) {
	return json.Marshal(transferWire{Route: RouteTransfer, To: &t.To, Amount: &t.Amount})
}

func (f Faucet) MarshalJSON() ([]byte, error) {
	return json.Marshal(amountWire{Route: RouteFaucet, Amount: &f.Amount})
}

func (b Burn) MarshalJSON() ([]byte, error) {
	return json.Marshal(amountWire{Route: RouteBurn, Amount: &b.Amount})
}

func (q BalanceQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(addressWire{Route: RouteBalance, Address: &q.Address})
}

func (q SequenceQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(addressWire{Route: RouteSequence, Address: &q.Address})
}

func (SupplyQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(routeWire{Route: RouteSupply})
}

// peekRoute extracts payload.route without judging the other fields. Keys
// must still be unique, and route must be spelled exactly.
func peekRoute(payload []byte) (string, error) {
	if !isObject(payload) {
		return "", malformed("payload must be an object")
	}
	keys, err := objectKeys("payload", payload)
	if err != nil {
		return "", err
	}
	for _, key := range keys {
		if key != fieldRoute && strings.EqualFold(key, fieldRoute) {
			return "", malformed("payload: unknown field %q", key)
		}
	}
	var probe struct {
		Route *string `json:"route"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return "", malformed("payload: %v", err)
	}
	if probe.Route == nil || *probe.Route == "" {
		return "", malformed("missing route")
	}
	return *probe.Route, nil
}

// decodeRequest strictly decodes payload for route. Unknown fields and
// missing required fields are rejected.
func decodeRequest(route string, payload []byte) (Request, error) {
	switch route {
	case RouteTransfer:
		var w transferWire
		if err := decodeStrict("payload", payload, &w, fieldRoute, "to", "amount"); err != nil {
			return nil, err
		}
		if w.To == nil || w.Amount == nil {
			return nil, malformed("missing recipient or amount")
		}
		return Transfer{To: *w.To, Amount: *w.Amount}, nil
	case RouteFaucet, RouteBurn:
		var w amountWire
		if err := decodeStrict("payload", payload, &w, fieldRoute, "amount"); err != nil {
			return nil, err
		}
		if w.Amount == nil {
			return nil, malformed("amount is required")
		}
		if route == RouteFaucet {
			return Faucet{Amount: *w.Amount}, nil
		}
		return Burn{Amount: *w.Amount}, nil
	case RouteBalance, RouteSequence:
		var w addressWire
		if err := decodeStrict("payload", payload, &w, fieldRoute, "address"); err != nil {
			return nil, err
		}
		if w.Address == nil {
			return nil, malformed("address is required")
		}
		if route == RouteBalance {
			return BalanceQuery{Address: *w.Address}, nil
		}
		return SequenceQuery{Address: *w.Address}, nil
	case RouteSupply:
		var w routeWire
		if err := decodeStrict("payload", payload, &w, fieldRoute); err != nil {
			return nil, err
		}
		return SupplyQuery{}, nil
	default:
		return nil, ErrUnknownRoute
	}
}

// decodeStrict decodes raw into v after checking that its top-level keys are
// unique and each one is exactly one of fields. encoding/json alone matches
// keys case-insensitively and keeps the last of a repeated key.
func decodeStrict(part string, raw []byte, v any, fields ...string) error {
	keys, err := objectKeys(part, raw)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if !slices.Contains(fields, key) {
			return malformed("%s: unknown field %q", part, key)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return malformed("%s: %v", part, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return malformed("%s: trailing data", part)
	}
	return nil
}

// objectKeys lists the top-level keys of a JSON object in order, rejecting
// any key that appears twice.
func objectKeys(part string, raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, malformed("%s: %v", part, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, malformed("%s must be an object", part)
	}

	seen := make(map[string]struct{})
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed("%s: %v", part, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, malformed("%s: object key expected", part)
		}
		if _, dup := seen[key]; dup {
			return nil, malformed("%s: duplicate field %q", part, key)
		}
		seen[key] = struct{}{}
		keys = append(keys, key)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, malformed("%s: %v", part, err)
		}
	}
	return keys, nil
}

func isObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) >= 2 && trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}'
}
