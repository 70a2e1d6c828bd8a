// Package tools holds the built-in analysis providers. Each provider
// turns a validated query into an opaque JSON result; the sync engine
// never looks inside.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// DNSLookup resolves A, MX, NS, TXT and CNAME records for a domain.
type DNSLookup struct {
	Resolver *net.Resolver
	Timeout  time.Duration
}

func NewDNSLookup() *DNSLookup {
	return &DNSLookup{Resolver: net.DefaultResolver, Timeout: 5 * time.Second}
}

type dnsResult struct {
	A        []string `json:"A"`
	MX       []string `json:"MX"`
	NS       []string `json:"NS"`
	TXT      []string `json:"TXT"`
	CNAME    []string `json:"CNAME"`
	Warnings []string `json:"_warnings,omitempty"`
}

// Run implements the provider port. Per-record-type failures become
// warnings, not a failed run; a domain with no records at all is still
// a valid result.
func (d *DNSLookup) Run(ctx context.Context, query string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	res := dnsResult{A: []string{}, MX: []string{}, NS: []string{}, TXT: []string{}, CNAME: []string{}}

	ips, err := d.Resolver.LookupIP(ctx, "ip4", query)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("A: %v", err))
	}
	for _, ip := range ips {
		res.A = append(res.A, ip.String())
	}

	mxs, err := d.Resolver.LookupMX(ctx, query)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("MX: %v", err))
	}
	for _, mx := range mxs {
		res.MX = append(res.MX, fmt.Sprintf("%d %s", mx.Pref, mx.Host))
	}

	nss, err := d.Resolver.LookupNS(ctx, query)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("NS: %v", err))
	}
	for _, ns := range nss {
		res.NS = append(res.NS, ns.Host)
	}

	txts, err := d.Resolver.LookupTXT(ctx, query)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("TXT: %v", err))
	}
	res.TXT = append(res.TXT, txts...)

	cname, err := d.Resolver.LookupCNAME(ctx, query)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("CNAME: %v", err))
	} else if cname != "" {
		res.CNAME = append(res.CNAME, cname)
	}

	return json.Marshal(res)
}
