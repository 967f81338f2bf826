package api

import (
	"fmt"
	"strings"
)

const (
	defaultVerifyCount = 10
	maxVerifyCount     = 10_000
)

// ValidateVerifyRequest checks a verify request and fills in the default count.
func ValidateVerifyRequest(req *VerifyRequest) error {
	if strings.TrimSpace(req.ServerSeed) == "" {
		return fmt.Errorf("server_seed is required")
	}
	if req.ClientSeed == "" {
		return fmt.Errorf("client_seed is required")
	}
	if req.Count < 0 {
		return fmt.Errorf("count must be >= 0")
	}
	if req.Count > maxVerifyCount {
		return fmt.Errorf("count too large (max %d)", maxVerifyCount)
	}
	if req.Count == 0 {
		req.Count = defaultVerifyCount
	}
	if req.SeedHash != "" && len(req.SeedHash) != 64 {
		return fmt.Errorf("seed_hash must be a 64 character hex digest")
	}
	return nil
}
