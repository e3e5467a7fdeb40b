// Package ratelimit throttles repeated requests from one client to one endpoint.
package ratelimit

import "context"

// Guard decides whether a request from ip against endpoint may proceed.
// Implementations count requests per (ip, endpoint) in a fixed window and
// reject once the limit is reached. Allow never blocks the request path on
// backend failures; implementations fail open.
type Guard interface {
	Allow(ctx context.Context, ip, endpoint string) bool
}

// key builds the counter key shared by all guard implementations.
func key(ip, endpoint string) string {
	return "attempt:" + ip + ":" + endpoint
}
