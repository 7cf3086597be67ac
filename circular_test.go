package circular

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/circular/transaction"
	"github.com/vitwit/circular/types"
	"github.com/vitwit/circular/utils"
	testingclock "k8s.io/utils/clock/testing"
)

const (
	testBlockchain = "0x8a20baa40c45dc5055aeb26197c203e576ef389d9acb171bd62da11dc5ad72b2"
	testSeed       = "test seed"
	testTxID       = "22dd67014f43bebe0c327c5ae9673b57bc1cdd811d50ccb0eb1e31f0503868fc"
)

type gatewayCall struct {
	operation string
	body      map[string]any
}

// fakeNAG answers every operation with a canned reply
type fakeNAG struct {
	mu      sync.Mutex
	calls   []gatewayCall
	replies map[string]string
}

func (f *fakeNAG) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	op := r.URL.Query().Get("cep")
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.calls = append(f.calls, gatewayCall{operation: op, body: body})
	reply, ok := f.replies[op]
	f.mu.Unlock()

	if !ok {
		reply = `{"Result":200,"Response":"ok"}`
	}
	_, _ = io.WriteString(w, reply)
}

func (f *fakeNAG) recorded() []gatewayCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gatewayCall(nil), f.calls...)
}

func newTestClient(t *testing.T, nag *fakeNAG, mutate ...func(*types.Config)) (*Circular, *testingclock.FakeClock) {
	t.Helper()

	server := httptest.NewServer(nag)
	t.Cleanup(server.Close)

	cfg := types.DefaultConfig()
	cfg.GatewayURL = server.URL + "/NAG.php?cep="
	for _, m := range mutate {
		m(&cfg)
	}

	clk := testingclock.NewFakeClock(time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC))
	client, err := New(cfg, WithClock(clk))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client, clk
}

func testKeys(t *testing.T) *types.KeyPair {
	t.Helper()
	keys, err := utils.DeriveFromSeed(testSeed)
	require.NoError(t, err)
	return keys
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(types.Config{GatewayURL: "not a url"})
	assert.Equal(t, types.ErrConfigError, types.CodeOf(err))

	_, err = New(types.Config{LogLevel: "loud"})
	assert.Equal(t, types.ErrConfigError, types.CodeOf(err))

	client, err := NewWithDefaults()
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, types.DefaultConfig(), client.Config())
	assert.Equal(t, "1.0.8", client.GetVersion())
}

func TestSendTransaction(t *testing.T) {
	nag := &fakeNAG{replies: map[string]string{
		"Circular_AddTransaction_": `{"Result":200,"Response":{"TxID":"accepted"}}`,
	}}
	client, _ := newTestClient(t, nag)
	keys := testKeys(t)

	payload := map[string]string{"Action": "CP_SEND", "Amount": "10", "Asset": "CIRC"}
	tx, resp, err := client.SendTransaction(context.Background(), testBlockchain, keys.PrivateKey, "0x02", payload, "7", types.TxTypeCoin)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())

	assert.Equal(t, keys.WalletAddress, tx.From)
	assert.Equal(t, "2024:01:01-12:00:00", tx.Timestamp)
	assert.Equal(t, transaction.IDOf(tx), tx.ID)
	assert.True(t, utils.VerifySignature(keys.PublicKey, tx.ID, tx.Signature))
	assert.True(t, client.VerifyTransaction(tx, keys.PublicKey).IsValid)

	calls := nag.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "Circular_AddTransaction_", calls[0].operation)
	assert.Equal(t, tx.ID, calls[0].body["ID"])
	assert.Equal(t, tx.Signature, calls[0].body["Signature"])
	assert.Equal(t, utils.HexFix(testBlockchain), calls[0].body["Blockchain"])
	assert.Equal(t, "7", calls[0].body["Nonce"])
	assert.Equal(t, types.DefaultVersion, calls[0].body["Version"])
}

func TestSendTransactionRejectsBadInput(t *testing.T) {
	nag := &fakeNAG{}
	client, _ := newTestClient(t, nag)
	keys := testKeys(t)

	_, _, err := client.SendTransaction(context.Background(), testBlockchain, "zz", "02", nil, "1", types.TxTypeCoin)
	assert.True(t, types.IsCryptoError(err))

	_, _, err = client.SendTransaction(context.Background(), testBlockchain, keys.PrivateKey, "02", nil, "x", types.TxTypeCoin)
	assert.True(t, types.IsFormatError(err))

	assert.Empty(t, nag.recorded())
}

func TestRegisterWallet(t *testing.T) {
	nag := &fakeNAG{}
	client, _ := newTestClient(t, nag)
	keys := testKeys(t)

	tx, _, err := client.RegisterWallet(context.Background(), testBlockchain, keys.PrivateKey)
	require.NoError(t, err)
	assert.True(t, tx.IsSigned())
	assert.Equal(t, keys.WalletAddress, tx.From)
	assert.Equal(t, keys.WalletAddress, tx.To)

	calls := nag.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, types.TxTypeRegisterWallet, calls[0].body["Type"])
	assert.NotEmpty(t, calls[0].body["Signature"])
}

func TestRegisterWalletUnsignedIsOptIn(t *testing.T) {
	keys := testKeys(t)

	strictNAG := &fakeNAG{}
	strict, _ := newTestClient(t, strictNAG)
	_, _, err := strict.RegisterWalletUnsigned(context.Background(), testBlockchain, keys.PublicKey)
	assert.True(t, types.IsCryptoError(err))
	assert.Empty(t, strictNAG.recorded())

	openNAG := &fakeNAG{}
	open, _ := newTestClient(t, openNAG, func(cfg *types.Config) {
		cfg.AllowUnsignedRegistration = true
	})
	tx, resp, err := open.RegisterWalletUnsigned(context.Background(), testBlockchain, keys.PublicKey)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.False(t, tx.IsSigned())

	calls := openNAG.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "", calls[0].body["Signature"])
}

func TestRegisterWalletUnsignedRejectsMalformedPublicKey(t *testing.T) {
	nag := &fakeNAG{}
	client, _ := newTestClient(t, nag, func(cfg *types.Config) {
		cfg.AllowUnsignedRegistration = true
	})

	tx, resp, err := client.RegisterWalletUnsigned(context.Background(), testBlockchain, "0xnothex")
	require.Error(t, err)
	assert.True(t, types.IsCryptoError(err))
	assert.Nil(t, tx)
	assert.Nil(t, resp)
	assert.Empty(t, nag.recorded(), "nothing is submitted")
}

func TestSubmitTransactionRefusesTamperedTransactions(t *testing.T) {
	nag := &fakeNAG{}
	client, _ := newTestClient(t, nag)
	keys := testKeys(t)

	tx, err := client.Builder().NewTransaction(testBlockchain, keys.WalletAddress, "02", nil, "1", types.TxTypeData)
	require.NoError(t, err)

	_, err = client.SubmitTransaction(context.Background(), tx)
	assert.True(t, types.IsCryptoError(err), "unsigned")

	signed, err := transaction.Sign(tx, keys.PrivateKey)
	require.NoError(t, err)
	signed.To = "03"

	_, err = client.SubmitTransaction(context.Background(), signed)
	assert.Equal(t, types.ErrInvalidTransaction, types.CodeOf(err))

	assert.Empty(t, nag.recorded())
}

func TestReadOperations(t *testing.T) {
	nag := &fakeNAG{}
	client, _ := newTestClient(t, nag)
	ctx := context.Background()
	chain := utils.HexFix(testBlockchain)

	cases := []struct {
		name string
		call func() (*types.GatewayResponse, error)
		op   string
		body map[string]any
	}{
		{
			name: "check wallet",
			call: func() (*types.GatewayResponse, error) { return client.CheckWallet(ctx, testBlockchain, "0xabc") },
			op:   "Circular_CheckWallet_",
			body: map[string]any{"Blockchain": chain, "Address": "abc"},
		},
		{
			name: "get wallet",
			call: func() (*types.GatewayResponse, error) { return client.GetWallet(ctx, testBlockchain, "abc") },
			op:   "Circular_GetWallet_",
			body: map[string]any{"Blockchain": chain, "Address": "abc"},
		},
		{
			name: "wallet balance",
			call: func() (*types.GatewayResponse, error) {
				return client.GetWalletBalance(ctx, testBlockchain, "abc", "CIRC")
			},
			op:   "Circular_GetWalletBalance_",
			body: map[string]any{"Blockchain": chain, "Address": "abc", "asset": "CIRC"},
		},
		{
			name: "wallet nonce",
			call: func() (*types.GatewayResponse, error) { return client.GetWalletNonce(ctx, testBlockchain, "abc") },
			op:   "Circular_GetWalletNonce_",
			body: map[string]any{"Blockchain": chain, "Address": "abc"},
		},
		{
			name: "latest transactions",
			call: func() (*types.GatewayResponse, error) {
				return client.GetLatestTransactions(ctx, testBlockchain, "abc")
			},
			op:   "Circular_GetLatestTransactions_",
			body: map[string]any{"Blockchain": chain, "Address": "abc"},
		},
		{
			name: "resolve domain",
			call: func() (*types.GatewayResponse, error) { return client.ResolveDomain(ctx, testBlockchain, "alice.circ") },
			op:   "Circular_ResolveDomain_",
			body: map[string]any{"Blockchain": chain, "Domain": "alice.circ"},
		},
		{
			name: "asset",
			call: func() (*types.GatewayResponse, error) { return client.GetAsset(ctx, testBlockchain, "CIRC") },
			op:   "Circular_GetAsset_",
			body: map[string]any{"Blockchain": chain, "AssetName": "CIRC"},
		},
		{
			name: "asset list",
			call: func() (*types.GatewayResponse, error) { return client.GetAssetList(ctx, testBlockchain) },
			op:   "Circular_GetAssetList_",
			body: map[string]any{"Blockchain": chain},
		},
		{
			name: "asset supply",
			call: func() (*types.GatewayResponse, error) { return client.GetAssetSupply(ctx, testBlockchain, "CIRC") },
			op:   "Circular_GetAssetSupply_",
			body: map[string]any{"Blockchain": chain, "AssetName": "CIRC"},
		},
		{
			name: "voucher",
			call: func() (*types.GatewayResponse, error) { return client.GetVoucher(ctx, testBlockchain, "0x12") },
			op:   "Circular_GetVoucher_",
			body: map[string]any{"Blockchain": chain, "Code": "12"},
		},
		{
			name: "block",
			call: func() (*types.GatewayResponse, error) { return client.GetBlock(ctx, testBlockchain, 42) },
			op:   "Circular_GetBlock_",
			body: map[string]any{"Blockchain": chain, "BlockNumber": "42"},
		},
		{
			name: "block range",
			call: func() (*types.GatewayResponse, error) { return client.GetBlockRange(ctx, testBlockchain, 1, 10) },
			op:   "Circular_GetBlockRange_",
			body: map[string]any{"Blockchain": chain, "Start": "1", "End": "10"},
		},
		{
			name: "block height",
			call: func() (*types.GatewayResponse, error) { return client.GetBlockHeight(ctx, testBlockchain) },
			op:   "Circular_GetBlockHeight_",
			body: map[string]any{"Blockchain": chain},
		},
		{
			name: "analytics",
			call: func() (*types.GatewayResponse, error) { return client.GetAnalytics(ctx, testBlockchain) },
			op:   "Circular_GetAnalytics_",
			body: map[string]any{"Blockchain": chain},
		},
		{
			name: "blockchains",
			call: func() (*types.GatewayResponse, error) { return client.GetBlockchains(ctx) },
			op:   "Circular_GetBlockchains_",
			body: map[string]any{},
		},
		{
			name: "pending transaction",
			call: func() (*types.GatewayResponse, error) {
				return client.GetPendingTransaction(ctx, testBlockchain, "0xfeed")
			},
			op:   "Circular_GetPendingTransaction_",
			body: map[string]any{"Blockchain": chain, "ID": "feed"},
		},
		{
			name: "transaction by id",
			call: func() (*types.GatewayResponse, error) {
				return client.GetTransactionByID(ctx, testBlockchain, "0xfeed", 0, 10)
			},
			op:   "Circular_GetTransactionbyID_",
			body: map[string]any{"Blockchain": chain, "ID": "feed", "Start": "0", "End": "10"},
		},
		{
			name: "transaction by node",
			call: func() (*types.GatewayResponse, error) {
				return client.GetTransactionByNode(ctx, testBlockchain, "0xbeef", 5, 6)
			},
			op:   "Circular_GetTransactionbyNode_",
			body: map[string]any{"Blockchain": chain, "NodeID": "beef", "Start": "5", "End": "6"},
		},
		{
			name: "transaction by address",
			call: func() (*types.GatewayResponse, error) {
				return client.GetTransactionByAddress(ctx, testBlockchain, "abc", 0, 3)
			},
			op:   "Circular_GetTransactionbyAddress_",
			body: map[string]any{"Blockchain": chain, "Address": "abc", "Start": "0", "End": "3"},
		},
		{
			name: "transaction by date",
			call: func() (*types.GatewayResponse, error) {
				return client.GetTransactionByDate(ctx, testBlockchain, "abc", "2024:01:01-00:00:00", "2024:01:02-00:00:00")
			},
			op: "Circular_GetTransactionbyDate_",
			body: map[string]any{
				"Blockchain": chain, "Address": "abc",
				"StartDate": "2024:01:01-00:00:00", "EndDate": "2024:01:02-00:00:00",
			},
		},
		{
			name: "test contract",
			call: func() (*types.GatewayResponse, error) { return client.TestContract(ctx, testBlockchain, "0xabc", "code") },
			op:   "Circular_TestContract_",
			body: map[string]any{
				"Blockchain": chain, "From": "abc",
				"Timestamp": "2024:01:01-12:00:00", "Project": "636f6465",
			},
		},
		{
			name: "call contract",
			call: func() (*types.GatewayResponse, error) {
				return client.CallContract(ctx, testBlockchain, "abc", "0xdef", "ping")
			},
			op: "Circular_CallContract_",
			body: map[string]any{
				"Blockchain": chain, "From": "abc", "Address": "def",
				"Request": "70696e67", "Timestamp": "2024:01:01-12:00:00",
			},
		},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := tc.call()
			require.NoError(t, err)
			assert.True(t, resp.IsSuccess())

			calls := nag.recorded()
			require.Len(t, calls, i+1)
			last := calls[i]

			want := map[string]any{"Version": types.DefaultVersion}
			for k, v := range tc.body {
				want[k] = v
			}
			assert.Equal(t, tc.op, last.operation)
			assert.Equal(t, want, last.body)
		})
	}
}

func TestNextNonce(t *testing.T) {
	nag := &fakeNAG{replies: map[string]string{
		"Circular_GetWalletNonce_": `{"Result":200,"Response":{"Nonce":4}}`,
	}}
	client, _ := newTestClient(t, nag)

	nonce, err := client.NextNonce(context.Background(), testBlockchain, "abc")
	require.NoError(t, err)
	assert.Equal(t, "5", nonce)

	nag.mu.Lock()
	nag.replies["Circular_GetWalletNonce_"] = `{"Result":108,"Response":"Wallet Not Found"}`
	nag.mu.Unlock()

	_, err = client.NextNonce(context.Background(), testBlockchain, "abc")
	assert.True(t, types.IsFormatError(err))
}

func TestGetTransactionOutcome(t *testing.T) {
	nag := &fakeNAG{replies: map[string]string{
		"Circular_GetTransactionbyID_": `{"Result":200,"Response":{"Status":"Executed"}}`,
	}}
	client, _ := newTestClient(t, nag)

	outcome, err := client.GetTransactionOutcome(context.Background(), testBlockchain, "0x"+testTxID, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, types.StateConfirmed, outcome.State)
	assert.Equal(t, 1, outcome.Polls)

	calls := nag.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "0", calls[0].body["Start"])
	assert.Equal(t, "10", calls[0].body["End"])

	res := <-client.WatchTransaction(context.Background(), testBlockchain, testTxID, time.Minute)
	require.NoError(t, res.Err)
	assert.Equal(t, types.StateConfirmed, res.Outcome.State)

	results, err := client.AwaitTransactions(context.Background(), testBlockchain, []string{testTxID, strings.Repeat("b", 64)}, time.Minute)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	_, err = client.AwaitTransactions(context.Background(), testBlockchain, nil, time.Minute)
	assert.Error(t, err)

	_, err = client.GetTransactionOutcome(context.Background(), testBlockchain, "0xfeed", time.Minute)
	assert.True(t, types.IsFormatError(err))
	assert.Len(t, nag.recorded(), 4, "a malformed id is never polled")
}
