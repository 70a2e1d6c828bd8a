package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverseDNSReturnsNames(t *testing.T) {
	r := NewReverseDNS()
	r.LookupAddr = func(_ context.Context, addr string) ([]string, error) {
		assert.Equal(t, "1.2.3.4", addr)
		return []string{"host.example.com."}, nil
	}

	raw, err := r.Run(context.Background(), "1.2.3.4")
	require.NoError(t, err)

	var out reverseResult
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "1.2.3.4", out.IP)
	assert.Equal(t, []string{"host.example.com."}, out.Names)
	assert.Empty(t, out.Warnings)
}

func TestReverseDNSMissingPTRIsAWarningNotAFailure(t *testing.T) {
	r := NewReverseDNS()
	r.LookupAddr = func(_ context.Context, _ string) ([]string, error) {
		return nil, errors.New("no such host")
	}

	raw, err := r.Run(context.Background(), "10.0.0.1")
	require.NoError(t, err)

	var out reverseResult
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Empty(t, out.Names)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "PTR")
}
