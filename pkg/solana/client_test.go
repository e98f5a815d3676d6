package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marsprotocol/vault-engine/pkg/testutil"
)

func TestSignatureStatus(t *testing.T) {
	zero := 0
	one := 1

	for _, tc := range []struct {
		status    SignatureStatus
		confirmed bool
		finalized bool
	}{
		{SignatureStatus{Confirmations: &zero, ConfirmationStatus: confirmationStatusProcessed}, false, false},
		{SignatureStatus{Confirmations: &one, ConfirmationStatus: confirmationStatusProcessed}, true, false},
		{SignatureStatus{Confirmations: &zero, ConfirmationStatus: confirmationStatusConfirmed}, true, false},
		{SignatureStatus{Confirmations: &one, ConfirmationStatus: confirmationStatusFinalized}, true, true},
		{SignatureStatus{}, true, true},
	} {
		assert.Equal(t, tc.confirmed, tc.status.Confirmed())
		assert.Equal(t, tc.finalized, tc.status.Finalized())
	}
}

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     int               `json:"id"`
}

func newTestServer(t *testing.T, handler func(req rpcRequest) (result interface{}, rpcErr interface{})) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}

		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestClient_GetSlot(t *testing.T) {
	server := newTestServer(t, func(req rpcRequest) (interface{}, interface{}) {
		assert.Equal(t, "getSlot", req.Method)
		require.Len(t, req.Params, 1)
		assert.JSONEq(t, `{"commitment":"finalized"}`, string(req.Params[0]))
		return 1234, nil
	})
	defer server.Close()

	slot, err := New(server.URL).GetSlot(CommitmentFinalized)
	require.NoError(t, err)
	assert.EqualValues(t, 1234, slot)
}

func TestClient_GetSignatureStatuses(t *testing.T) {
	var sigs []Signature
	for i := 0; i < 3; i++ {
		var sig Signature
		sig[0] = byte(i + 1)
		sigs = append(sigs, sig)
	}

	server := newTestServer(t, func(req rpcRequest) (interface{}, interface{}) {
		assert.Equal(t, "getSignatureStatuses", req.Method)

		var encoded []string
		require.NoError(t, json.Unmarshal(req.Params[0], &encoded))
		require.Len(t, encoded, 3)
		assert.Equal(t, base58.Encode(sigs[1][:]), encoded[1])

		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 10},
			"value": []interface{}{
				map[string]interface{}{
					"slot":               9,
					"confirmations":      nil,
					"confirmationStatus": "finalized",
					"err":                nil,
				},
				map[string]interface{}{
					"slot":               8,
					"confirmations":      1,
					"confirmationStatus": "confirmed",
					"err":                map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 6001}}},
				},
				nil,
			},
		}, nil
	})
	defer server.Close()

	c := New(server.URL)

	statuses, err := c.GetSignatureStatuses(sigs)
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	require.NotNil(t, statuses[0])
	assert.True(t, statuses[0].Finalized())
	assert.Nil(t, statuses[0].ErrorResult)

	require.NotNil(t, statuses[1])
	assert.True(t, statuses[1].Confirmed())
	assert.False(t, statuses[1].Finalized())
	require.NotNil(t, statuses[1].ErrorResult)
	require.NotNil(t, statuses[1].ErrorResult.InstructionError())
	assert.Equal(t, CustomError(6001), *statuses[1].ErrorResult.InstructionError().CustomError())

	assert.Nil(t, statuses[2])
}

func TestClient_GetSignatureStatus_NotFound(t *testing.T) {
	server := newTestServer(t, func(req rpcRequest) (interface{}, interface{}) {
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 10},
			"value":   []interface{}{nil},
		}, nil
	})
	defer server.Close()

	_, err := New(server.URL).GetSignatureStatus(Signature{})
	assert.Equal(t, ErrSignatureNotFound, err)
}

func TestClient_SubmitTransaction_Rejected(t *testing.T) {
	server := newTestServer(t, func(req rpcRequest) (interface{}, interface{}) {
		assert.Equal(t, "sendTransaction", req.Method)
		return nil, map[string]interface{}{
			"code":    -32002,
			"message": "Transaction simulation failed",
			"data": map[string]interface{}{
				"err": map[string]interface{}{"InstructionError": []interface{}{1, map[string]interface{}{"Custom": 6004}}},
			},
		}
	})
	defer server.Close()

	payer := testutil.GenerateSolanaKeypair(t)
	txn := NewTransaction(payer.Public().(ed25519.PublicKey), NewInstruction(
		testutil.GenerateSolanaKey(t),
		[]byte{1},
	))
	require.NoError(t, txn.Sign(payer))

	sig, err := New(server.URL).SubmitTransaction(txn, CommitmentConfirmed)
	require.Error(t, err)
	assert.Equal(t, txn.Signature(), sig)

	txErr, ok := err.(*TransactionError)
	require.True(t, ok)
	assert.Equal(t, TransactionErrorInstructionError, txErr.ErrorKey())
	assert.Equal(t, 1, txErr.InstructionError().Index)
	assert.Equal(t, CustomError(6004), *txErr.InstructionError().CustomError())
}
