package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// ReverseDNS resolves the PTR names of an IP address. LookupAddr is a
// field so tests can stub the resolver.
type ReverseDNS struct {
	LookupAddr func(ctx context.Context, addr string) ([]string, error)
	Timeout    time.Duration
}

func NewReverseDNS() *ReverseDNS {
	return &ReverseDNS{
		LookupAddr: net.DefaultResolver.LookupAddr,
		Timeout:    5 * time.Second,
	}
}

type reverseResult struct {
	IP       string   `json:"ip"`
	Names    []string `json:"names"`
	Warnings []string `json:"_warnings,omitempty"`
}

// Run implements the provider port. An address with no PTR record is a
// valid result, not a failed run.
func (r *ReverseDNS) Run(ctx context.Context, query string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	res := reverseResult{IP: query, Names: []string{}}
	names, err := r.LookupAddr(ctx, query)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("PTR: %v", err))
	}
	res.Names = append(res.Names, names...)

	return json.Marshal(res)
}
