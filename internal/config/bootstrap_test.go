package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warp-js/ipc-server/internal/errors"
)

func TestReadBootstrap(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *Bootstrap
		wantErr bool
	}{
		{
			name:  "numeric port",
			input: `{"nlConnectToken":"ct","nlExtensionId":"calc","nlPort":5006,"nlToken":"tok"}`,
			want:  &Bootstrap{ConnectToken: "ct", ExtensionID: "calc", Port: 5006, Token: "tok"},
		},
		{
			name:  "string port",
			input: `{"nlConnectToken":"ct","nlExtensionId":"calc","nlPort":"5006","nlToken":"tok"}`,
			want:  &Bootstrap{ConnectToken: "ct", ExtensionID: "calc", Port: 5006, Token: "tok"},
		},
		{
			name:    "missing token",
			input:   `{"nlConnectToken":"ct","nlExtensionId":"calc","nlPort":5006}`,
			wantErr: true,
		},
		{
			name:    "empty extension id",
			input:   `{"nlConnectToken":"ct","nlExtensionId":"","nlPort":5006,"nlToken":"tok"}`,
			wantErr: true,
		},
		{
			name:    "port out of range",
			input:   `{"nlConnectToken":"ct","nlExtensionId":"calc","nlPort":70000,"nlToken":"tok"}`,
			wantErr: true,
		},
		{
			name:    "non numeric port string",
			input:   `{"nlConnectToken":"ct","nlExtensionId":"calc","nlPort":"http","nlToken":"tok"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			input:   `nlPort=5006`,
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadBootstrap(strings.NewReader(tt.input))
			if tt.wantErr {
				require.Error(t, err)

				var bootErr *errors.BootstrapError
				require.ErrorAs(t, err, &bootErr)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestBootstrap_MarshalRoundTrip(t *testing.T) {
	in := &Bootstrap{ConnectToken: "ct", ExtensionID: "calc", Port: 4000, Token: "tok"}

	data, err := in.Marshal()
	require.NoError(t, err)
	require.JSONEq(t, `{"nlConnectToken":"ct","nlExtensionId":"calc","nlPort":4000,"nlToken":"tok"}`, string(data))

	out, err := ParseBootstrap(data)
	require.NoError(t, err)
	require.Equal(t, in, out)
}
