package config

import (
	"testing"

	"github.com/jessevdk/go-flags"

	"github.com/umbraproject/umbrad/domain/chainconfig"
)

func TestResolveNetwork(t *testing.T) {
	tests := []struct {
		name           string
		networkFlags   NetworkFlags
		expectedParams *chainconfig.Params
		expectedError  bool
	}{
		{"default is mainnet", NetworkFlags{}, &chainconfig.MainnetParams, false},
		{"testnet", NetworkFlags{Testnet: true}, &chainconfig.TestnetParams, false},
		{"simnet", NetworkFlags{Simnet: true}, &chainconfig.SimnetParams, false},
		{"multiple networks", NetworkFlags{Testnet: true, Simnet: true}, nil, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			networkFlags := test.networkFlags
			parser := flags.NewParser(&networkFlags, flags.None)
			err := networkFlags.ResolveNetwork(parser)
			if test.expectedError {
				if err == nil {
					t.Fatal("ResolveNetwork unexpectedly succeeded")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveNetwork: %+v", err)
			}
			if networkFlags.NetParams() != test.expectedParams {
				t.Errorf("ResolveNetwork selected %s, expected %s",
					networkFlags.NetParams().Name, test.expectedParams.Name)
			}
		})
	}
}
