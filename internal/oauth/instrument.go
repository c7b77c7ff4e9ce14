package oauth

import (
	"context"
	"time"
)

// Recorder はプロバイダーAPI呼び出しのメトリクスを記録するインターフェース。
type Recorder interface {
	RecordProviderError(operation string)
	RecordProviderLatency(operation string, duration time.Duration)
}

// instrumentedProvider はProviderの呼び出しにメトリクス記録を付加するデコレーター。
type instrumentedProvider struct {
	next Provider
	rec  Recorder
}

// NewInstrumentedProvider はメトリクス記録付きのProviderを返す。
func NewInstrumentedProvider(next Provider, rec Recorder) Provider {
	return &instrumentedProvider{next: next, rec: rec}
}

func (p *instrumentedProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	start := time.Now()
	accessToken, err := p.next.ExchangeCode(ctx, code)
	p.rec.RecordProviderLatency("exchange_code", time.Since(start))
	if err != nil {
		p.rec.RecordProviderError("exchange_code")
	}
	return accessToken, err
}

func (p *instrumentedProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	start := time.Now()
	profile, err := p.next.FetchProfile(ctx, accessToken)
	p.rec.RecordProviderLatency("fetch_profile", time.Since(start))
	if err != nil {
		p.rec.RecordProviderError("fetch_profile")
	}
	return profile, err
}

func (p *instrumentedProvider) Revoke(ctx context.Context, providerUserID string) error {
	start := time.Now()
	err := p.next.Revoke(ctx, providerUserID)
	p.rec.RecordProviderLatency("unlink", time.Since(start))
	if err != nil {
		p.rec.RecordProviderError("unlink")
	}
	return err
}

// compile-time interface check
var _ Provider = (*instrumentedProvider)(nil)
