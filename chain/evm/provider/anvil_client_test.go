package provider

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_AnvilClient_SetBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		status   int
		wantErr  string
	}{
		{
			name:     "ok",
			response: `{"jsonrpc":"2.0","id":1,"result":null}`,
			status:   http.StatusOK,
		},
		{
			name:     "json-rpc error",
			response: `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`,
			status:   http.StatusOK,
			wantErr:  "method not found (code -32601)",
		},
		{
			name:     "http error",
			response: `oops`,
			status:   http.StatusBadGateway,
			wantErr:  "http status 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got struct {
				Method string `json:"method"`
				Params []any  `json:"params"`
			}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.response))
			}))
			t.Cleanup(srv.Close)

			err := NewAnvilClient(srv.URL).SetBalance(context.Background(), testAddr1, big.NewInt(255))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "anvil_setBalance", got.Method)
			assert.Equal(t, []any{testAddr1.Hex(), "0xff"}, got.Params)
		})
	}
}

func Test_AnvilClient_Fund(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		supported   string
		wantMethods []string
		wantErr     string
	}{
		{
			name:        "anvil",
			supported:   "anvil_setBalance",
			wantMethods: []string{"anvil_setBalance"},
		},
		{
			name:        "ganache",
			supported:   "evm_setAccountBalance",
			wantMethods: []string{"anvil_setBalance", "hardhat_setBalance", "evm_setAccountBalance"},
		},
		{
			name:        "no set-balance method",
			wantMethods: []string{"anvil_setBalance", "hardhat_setBalance", "evm_setAccountBalance"},
			wantErr:     "failed to call evm_setAccountBalance: method not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var methods []string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Method string `json:"method"`
					Params []any  `json:"params"`
				}
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, []any{testAddr1.Hex(), "0x3e8"}, req.Params)
				methods = append(methods, req.Method)

				w.Header().Set("Content-Type", "application/json")
				if req.Method == tt.supported {
					_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":true}`))
					return
				}
				_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
			}))
			t.Cleanup(srv.Close)

			err := NewAnvilClient(srv.URL).Fund(context.Background(), testAddr1, big.NewInt(1000))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantMethods, methods)
		})
	}
}
