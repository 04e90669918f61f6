package evm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPC_ToEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    RPC
		want    string
		wantErr string
	}{
		{
			name: "prefers http",
			give: RPC{HTTPURL: "http://a", WSURL: "ws://a", PreferredURLScheme: URLSchemePreferenceHTTP},
			want: "http://a",
		},
		{
			name: "prefers ws",
			give: RPC{HTTPURL: "http://a", WSURL: "ws://a", PreferredURLScheme: URLSchemePreferenceWS},
			want: "ws://a",
		},
		{
			name: "no preference picks ws first",
			give: RPC{HTTPURL: "http://a", WSURL: "ws://a"},
			want: "ws://a",
		},
		{
			name: "no preference falls back to http",
			give: RPC{HTTPURL: "http://a"},
			want: "http://a",
		},
		{
			name:    "preferred scheme missing",
			give:    RPC{Name: "x", WSURL: "ws://a", PreferredURLScheme: URLSchemePreferenceHTTP},
			wantErr: `rpc "x" prefers http but has no http url`,
		},
		{
			name:    "no urls",
			give:    RPC{Name: "x"},
			wantErr: "rpc x has no url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.give.ToEndpoint()
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURLSchemePreferenceFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		give    string
		want    URLSchemePreference
		wantErr bool
	}{
		{give: "http", want: URLSchemePreferenceHTTP},
		{give: "WS", want: URLSchemePreferenceWS},
		{give: "", want: URLSchemePreferenceNone},
		{give: "grpc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.give, func(t *testing.T) {
			t.Parallel()

			got, err := URLSchemePreferenceFromString(tt.give)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
