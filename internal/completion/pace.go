// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// paced delays stream starts to stay under a provider quota.
type paced struct {
	Service
	limiter *rate.Limiter
}

// WithRateLimit wraps svc so that at most perMinute streams start per minute.
// A non-positive perMinute returns svc unchanged.
func WithRateLimit(svc Service, perMinute int) Service {
	if perMinute <= 0 {
		return svc
	}
	every := time.Minute / time.Duration(perMinute)
	return &paced{
		Service: svc,
		limiter: rate.NewLimiter(rate.Every(every), 1),
	}
}

func (p *paced) Stream(ctx context.Context, req Request) (Stream, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: waiting for rate limit: %w", p.Name(), err)
	}
	return p.Service.Stream(ctx, req)
}
