package txpipe

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Alecsis/py-chain/internal/ledger"
	"github.com/Alecsis/py-chain/internal/sign"
	"github.com/Alecsis/py-chain/internal/testutil/testlog"
)

func newLedger(t *testing.T, faucet int64) *ledger.State {
	t.Helper()
	testlog.Start(t)
	state, err := ledger.New(1_000_000_000_000, 6)
	require.NoError(t, err)
	if faucet > 0 {
		require.NoError(t, state.Mint(DefaultFaucetAddress, faucet))
	}
	return state
}

func newKey(t *testing.T) *sign.PrivateKey {
	t.Helper()
	key, err := sign.GenerateKey()
	require.NoError(t, err)
	return key
}

func envelope(t *testing.T, key *sign.PrivateKey, seq uint64, req Request) Envelope {
	t.Helper()
	env, err := NewEnvelope(key, seq, req)
	require.NoError(t, err)
	return env
}

// rawEnvelope signs payload exactly as given.
func rawEnvelope(t *testing.T, key *sign.PrivateKey, seq uint64, payload string) Envelope {
	t.Helper()
	header, err := json.Marshal(Header{PublicKey: key.Address(), SequenceNb: seq})
	require.NoError(t, err)
	sig, err := sign.Sign(key, header, []byte(payload))
	require.NoError(t, err)
	return Envelope{Header: header, Payload: json.RawMessage(payload), Signature: sig}
}

func TestFaucetTransferScenario(t *testing.T) {
	state := newLedger(t, 1_000_000)
	p := New(state, Options{})
	a, b := newKey(t), newKey(t)

	res := p.SubmitEnvelope(envelope(t, a, 0, Faucet{Amount: 10}))
	require.True(t, res.Success, "faucet: %+v", res)

	res = p.SubmitEnvelope(envelope(t, a, 1, Transfer{To: b.Address(), Amount: 15}))
	require.False(t, res.Success)
	require.Equal(t, CodeInsufficientBalance, res.Code)
	require.Equal(t, "balance not enough", res.Error)

	res = p.SubmitEnvelope(envelope(t, a, 1, Transfer{To: b.Address(), Amount: 5}))
	require.True(t, res.Success, "transfer: %+v", res)

	balA, _ := state.Balance(a.Address())
	balB, _ := state.Balance(b.Address())
	require.Equal(t, int64(5), balA)
	require.Equal(t, int64(5), balB)
	require.Equal(t, uint64(2), state.NextSequence(a.Address()))
	require.Equal(t, uint64(0), state.NextSequence(b.Address()))
	require.Equal(t, int64(1_000_000), state.TotalSupply())
}

func TestReplayLeavesStateUntouched(t *testing.T) {
	state := newLedger(t, 1_000_000)
	p := New(state, Options{})
	a := newKey(t)

	env := envelope(t, a, 0, Faucet{Amount: 10})
	require.True(t, p.SubmitEnvelope(env).Success)

	before, err := json.Marshal(state.Snapshot())
	require.NoError(t, err)

	res := p.SubmitEnvelope(env)
	require.False(t, res.Success)
	require.Equal(t, CodeBadSequenceNumber, res.Code)
	require.NotNil(t, res.Expected)
	require.Equal(t, uint64(1), *res.Expected)
	require.Equal(t, "sequence number is incorrect, should be 1", res.Error)

	after, err := json.Marshal(state.Snapshot())
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))
}

func TestSequenceFromFutureRejected(t *testing.T) {
	state := newLedger(t, 1_000_000)
	p := New(state, Options{})
	a := newKey(t)

	res := p.SubmitEnvelope(envelope(t, a, 3, Faucet{Amount: 1}))
	require.Equal(t, CodeBadSequenceNumber, res.Code)
	require.Equal(t, uint64(0), *res.Expected)
	require.Equal(t, uint64(0), state.NextSequence(a.Address()))
}

func TestFailedTransactionDoesNotConsumeSequence(t *testing.T) {
	state := newLedger(t, 1_000_000)
	p := New(state, Options{})
	a, b := newKey(t), newKey(t)

	res := p.SubmitEnvelope(envelope(t, a, 0, Transfer{To: b.Address(), Amount: 1}))
	require.Equal(t, CodeUnknownAddress, res.Code)
	require.Equal(t, uint64(0), state.NextSequence(a.Address()))

	require.True(t, p.SubmitEnvelope(envelope(t, a, 0, Faucet{Amount: 4})).Success)
	require.True(t, p.SubmitEnvelope(envelope(t, a, 1, Transfer{To: b.Address(), Amount: 4})).Success)
	_, known := state.Balance(a.Address())
	require.False(t, known, "drained account must disappear")
}

func TestTamperedEnvelopeRejected(t *testing.T) {
	state := newLedger(t, 1_000_000)
	p := New(state, Options{})
	a := newKey(t)

	t.Run("payload amount", func(t *testing.T) {
		env := envelope(t, a, 0, Faucet{Amount: 10})
		env.Payload = json.RawMessage(strings.Replace(string(env.Payload), "10", "11", 1))
		require.Equal(t, CodeBadSignature, p.SubmitEnvelope(env).Code)
	})

	t.Run("header public key", func(t *testing.T) {
		b := newKey(t)
		env := envelope(t, a, 0, Faucet{Amount: 10})
		env.Header = json.RawMessage(strings.Replace(string(env.Header), a.Address(), b.Address(), 1))
		require.Equal(t, CodeBadSignature, p.SubmitEnvelope(env).Code)
	})

	t.Run("signature byte", func(t *testing.T) {
		env := envelope(t, a, 0, Faucet{Amount: 10})
		flipped := []byte(env.Signature)
		if flipped[10] == '0' {
			flipped[10] = '1'
		} else {
			flipped[10] = '0'
		}
		env.Signature = string(flipped)
		require.Equal(t, CodeBadSignature, p.SubmitEnvelope(env).Code)
	})

	t.Run("signer not an address", func(t *testing.T) {
		env := envelope(t, a, 0, Faucet{Amount: 10})
		env.Header = json.RawMessage(`{"public_key":"alice","sequence_nb":0}`)
		require.Equal(t, CodeBadSignature, p.SubmitEnvelope(env).Code)
	})

	require.Equal(t, uint64(0), state.NextSequence(a.Address()))
	_, known := state.Balance(a.Address())
	require.False(t, known)
}

func TestPayloadWhitespaceIsNotSignificant(t *testing.T) {
	state := newLedger(t, 1_000_000)
	p := New(state, Options{})
	a := newKey(t)

	env := rawEnvelope(t, a, 0, "{ \"route\" : \"faucet\",\n  \"amount\": 9 }")
	res := p.SubmitEnvelope(env)
	require.True(t, res.Success, "%+v", res)
}

func TestMalformedRequests(t *testing.T) {
	state := newLedger(t, 1_000_000)
	p := New(state, Options{})
	a := newKey(t)
	addr := a.Address()

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"array", `[]`},
		{"missing signature", `{"header":{"public_key":"` + addr + `","sequence_nb":0},"payload":{"route":"faucet","amount":1}}`},
		{"empty signature", `{"header":{"public_key":"` + addr + `","sequence_nb":0},"payload":{"route":"faucet","amount":1},"signature":""}`},
		{"missing header", `{"payload":{"route":"faucet","amount":1},"signature":"00"}`},
		{"header not object", `{"header":"x","payload":{"route":"faucet","amount":1},"signature":"00"}`},
		{"missing sequence", `{"header":{"public_key":"` + addr + `"},"payload":{"route":"faucet","amount":1},"signature":"00"}`},
		{"negative sequence", `{"header":{"public_key":"` + addr + `","sequence_nb":-1},"payload":{"route":"faucet","amount":1},"signature":"00"}`},
		{"extra header field", `{"header":{"public_key":"` + addr + `","sequence_nb":0,"x":1},"payload":{"route":"faucet","amount":1},"signature":"00"}`},
		{"header key case", `{"header":{"Public_Key":"` + addr + `","sequence_nb":0},"payload":{"route":"faucet","amount":1},"signature":"00"}`},
		{"duplicate header key", `{"header":{"public_key":"` + addr + `","sequence_nb":0,"sequence_nb":1},"payload":{"route":"faucet","amount":1},"signature":"00"}`},
		{"duplicate payload", `{"header":{"public_key":"` + addr + `","sequence_nb":0},"payload":{"route":"faucet","amount":1},"payload":{"route":"faucet","amount":9},"signature":"00"}`},
		{"envelope key case", `{"Header":{"public_key":"` + addr + `","sequence_nb":0},"payload":{"route":"faucet","amount":1},"signature":"00"}`},
		{"extra envelope field", `{"header":{"public_key":"` + addr + `","sequence_nb":0},"payload":{"route":"faucet","amount":1},"signature":"00","memo":1}`},
		{"payload not object", `{"header":{"public_key":"` + addr + `","sequence_nb":0},"payload":[1],"signature":"00"}`},
		{"missing route", `{"header":{"public_key":"` + addr + `","sequence_nb":0},"payload":{"amount":1},"signature":"00"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.Submit([]byte(tt.raw))
			require.False(t, res.Success)
			require.Equal(t, CodeMalformedRequest, res.Code, res.Error)
		})
	}
	require.Equal(t, uint64(0), state.NextSequence(addr))
}

func TestSignedPayloadDecodedStrictly(t *testing.T) {
	state := newLedger(t, 1_000_000)
	p := New(state, Options{})
	a := newKey(t)
	to := newKey(t).Address()
	offCurve := strings.Repeat("0", sign.AddressLen)

	tests := []struct {
		name    string
		payload string
		code    Code
	}{
		{"unknown field", `{"route":"faucet","amount":1,"memo":"hi"}`, CodeMalformedRequest},
		{"missing amount", `{"route":"burn"}`, CodeMalformedRequest},
		{"string amount", `{"route":"faucet","amount":"1"}`, CodeMalformedRequest},
		{"fractional amount", `{"route":"faucet","amount":1.5}`, CodeMalformedRequest},
		{"bad recipient", `{"route":"transfer","to":"bob","amount":1}`, CodeMalformedRequest},
		{"unknown route", `{"route":"mint","amount":1}`, CodeUnknownRoute},
		{"query route as tx", `{"route":"supply"}`, CodeUnknownRoute},
		{"negative amount", `{"route":"faucet","amount":-5}`, CodeInvalidAmount},
		{"upper case keys", `{"ROUTE":"faucet","AMOUNT":10}`, CodeMalformedRequest},
		{"mixed case route key", `{"Route":"faucet","amount":10}`, CodeMalformedRequest},
		{"mixed case amount key", `{"route":"faucet","Amount":10}`, CodeMalformedRequest},
		{"duplicate amount", `{"route":"faucet","amount":1,"amount":20}`, CodeMalformedRequest},
		{"escaped duplicate amount", `{"route":"faucet","amount":1,"\u0061mount":20}`, CodeMalformedRequest},
		{"duplicate route", `{"route":"faucet","route":"burn","amount":1}`, CodeMalformedRequest},
		{"case variant beside amount", `{"route":"transfer","to":"` + to + `","amount":1,"Amount":3}`, CodeMalformedRequest},
		{"off-curve recipient", `{"route":"transfer","to":"` + offCurve + `","amount":1}`, CodeMalformedRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.SubmitEnvelope(rawEnvelope(t, a, 0, tt.payload))
			require.Equal(t, tt.code, res.Code, res.Error)
		})
	}
	require.Equal(t, uint64(0), state.NextSequence(a.Address()))
	require.Equal(t, int64(1_000_000), state.TotalSupply())
}

func TestFaucetLimitAndEmptyFaucet(t *testing.T) {
	state := newLedger(t, 100)
	p := New(state, Options{FaucetLimit: 60})
	a, b := newKey(t), newKey(t)

	res := p.SubmitEnvelope(envelope(t, a, 0, Faucet{Amount: 61}))
	require.Equal(t, CodeInvalidAmount, res.Code)
	require.Contains(t, res.Error, "faucet limit is 60")

	require.True(t, p.SubmitEnvelope(envelope(t, a, 0, Faucet{Amount: 60})).Success)
	res = p.SubmitEnvelope(envelope(t, b, 0, Faucet{Amount: 50}))
	require.Equal(t, CodeInsufficientBalance, res.Code)

	require.True(t, p.SubmitEnvelope(envelope(t, b, 0, Faucet{Amount: 40})).Success)
	res = p.SubmitEnvelope(envelope(t, b, 1, Faucet{Amount: 1}))
	require.Equal(t, CodeInsufficientBalance, res.Code)
	require.Equal(t, "faucet is empty: balance not enough", res.Error)
}

func TestBurnReducesSupply(t *testing.T) {
	state := newLedger(t, 1_000)
	p := New(state, Options{})
	a := newKey(t)

	require.True(t, p.SubmitEnvelope(envelope(t, a, 0, Faucet{Amount: 30})).Success)
	require.True(t, p.SubmitEnvelope(envelope(t, a, 1, Burn{Amount: 10})).Success)
	require.Equal(t, int64(990), state.TotalSupply())

	res := p.SubmitEnvelope(envelope(t, a, 2, Burn{Amount: 21}))
	require.Equal(t, CodeInsufficientBalance, res.Code)
	require.True(t, p.SubmitEnvelope(envelope(t, a, 2, Burn{Amount: 20})).Success)

	_, known := state.Balance(a.Address())
	require.False(t, known)
	require.Equal(t, int64(970), state.TotalSupply())
}

func TestQueries(t *testing.T) {
	state := newLedger(t, 1_000_000)
	a := newKey(t)
	stranger := newKey(t).Address()
	p := New(state, Options{})
	require.True(t, p.SubmitEnvelope(envelope(t, a, 0, Faucet{Amount: 12})).Success)

	res := p.QueryRequest(BalanceQuery{Address: a.Address()})
	require.True(t, res.Success)
	require.Equal(t, int64(12), *res.Balance)

	res = p.QueryRequest(SequenceQuery{Address: a.Address()})
	require.Equal(t, uint64(1), *res.Sequence)

	res = p.QueryRequest(SupplyQuery{})
	require.Equal(t, int64(1_000_000), *res.TotalSupply)
	require.Equal(t, int64(1_000_000_000_000), *res.MaxSupply)
	require.Equal(t, 6, *res.Precision)

	out, err := json.Marshal(p.QueryRequest(BalanceQuery{Address: stranger}))
	require.NoError(t, err)
	require.JSONEq(t, `{"success":true,"balance":null}`, string(out))

	zero := New(state, Options{UnknownBalance: UnknownBalanceZero})
	out, err = json.Marshal(zero.QueryRequest(BalanceQuery{Address: stranger}))
	require.NoError(t, err)
	require.JSONEq(t, `{"success":true,"balance":0}`, string(out))

	require.Equal(t, CodeUnknownRoute, p.Query([]byte(`{"route":"transfer","to":"x","amount":1}`)).Code)
	require.Equal(t, CodeMalformedRequest, p.Query([]byte(`{"route":"balance"}`)).Code)
	require.Equal(t, CodeMalformedRequest, p.Query([]byte(`"balance"`)).Code)
	require.Equal(t, CodeMalformedRequest, p.Query([]byte(`{"route":"balance","Address":"`+stranger+`"}`)).Code)
	require.Equal(t, CodeMalformedRequest, p.Query([]byte(`{"route":"supply","route":"balance"}`)).Code)
}

func TestFailureResultJSON(t *testing.T) {
	res := failure(&SequenceError{Expected: 4, Got: 2})
	out, err := json.Marshal(res)
	require.NoError(t, err)
	require.JSONEq(t, `{"success":false,"code":"bad_sequence_number","error":"sequence number is incorrect, should be 4","expected":4}`, string(out))

	res = failure(fmt.Errorf("wrapped: %w", ErrBadSignature))
	require.Equal(t, CodeBadSignature, res.Code)
	require.Nil(t, res.Expected)

	res = failure(fmt.Errorf("boom"))
	require.Equal(t, CodeInternal, res.Code)
	require.Equal(t, "internal error", res.Error)
}

func TestConcurrentDuplicatesApplyOnce(t *testing.T) {
	state := newLedger(t, 1_000_000)
	p := New(state, Options{})
	a := newKey(t)
	env := envelope(t, a, 0, Faucet{Amount: 25})

	const workers = 32
	results := make([]Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.SubmitEnvelope(env)
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, res := range results {
		if res.Success {
			applied++
			continue
		}
		require.Equal(t, CodeBadSequenceNumber, res.Code)
	}
	require.Equal(t, 1, applied)
	bal, _ := state.Balance(a.Address())
	require.Equal(t, int64(25), bal)
	require.Equal(t, uint64(1), state.NextSequence(a.Address()))
}
