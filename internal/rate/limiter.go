package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLimited is returned when a counter is over budget.
var ErrLimited = errors.New("rate limited")

// ErrUnavailable wraps Redis failures; callers decide whether to fail
// open or closed.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Config tunes the fixed-window counters. A zero MaxAttempts disables the
// corresponding check.
type Config struct {
	EnableIPThrottle bool

	MaxSignInAttempts  int
	SignInWindow       time.Duration
	MaxResetRequests   int
	ResetRequestWindow time.Duration
	MaxCodeAttempts    int
	CodeAttemptWindow  time.Duration
}

// Limiter enforces per-identifier and per-IP fixed windows for sign-in
// attempts, reset requests, and second-factor code attempts, using plain
// Redis counters with TTLs. It keeps no lockout state on the account
// itself.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: redisClient, config: cfg}
}

// CheckSignIn reports whether another sign-in attempt is within budget
// for the username+IP pair.
func (l *Limiter) CheckSignIn(ctx context.Context, username, ip string) error {
	if err := l.check(ctx, "ags:u:"+username, l.config.MaxSignInAttempts); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.check(ctx, "ags:i:"+ip, l.config.MaxSignInAttempts)
	}
	return nil
}

// RecordSignInFailure counts a failed attempt against the pair.
func (l *Limiter) RecordSignInFailure(ctx context.Context, username, ip string) error {
	if err := l.bump(ctx, "ags:u:"+username, l.config.MaxSignInAttempts, l.config.SignInWindow); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.bump(ctx, "ags:i:"+ip, l.config.MaxSignInAttempts, l.config.SignInWindow)
	}
	return nil
}

// ResetSignIn clears the counters after a successful sign-in.
func (l *Limiter) ResetSignIn(ctx context.Context, username, ip string) error {
	keys := []string{"ags:u:" + username}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, "ags:i:"+ip)
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// BumpResetRequest counts a reset request for the email+IP pair and
// reports whether the budget is exhausted.
func (l *Limiter) BumpResetRequest(ctx context.Context, email, ip string) error {
	if err := l.bump(ctx, "agp:e:"+email, l.config.MaxResetRequests, l.config.ResetRequestWindow); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		return l.bump(ctx, "agp:i:"+ip, l.config.MaxResetRequests, l.config.ResetRequestWindow)
	}
	return nil
}

// BumpCodeAttempt counts a second-factor code attempt for the account.
func (l *Limiter) BumpCodeAttempt(ctx context.Context, accountID int64) error {
	return l.bump(ctx, fmt.Sprintf("agc:a:%d", accountID), l.config.MaxCodeAttempts, l.config.CodeAttemptWindow)
}

// ResetCodeAttempts clears the account's code-attempt counter.
func (l *Limiter) ResetCodeAttempts(ctx context.Context, accountID int64) error {
	if err := l.redis.Del(ctx, fmt.Sprintf("agc:a:%d", accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (l *Limiter) check(ctx context.Context, key string, max int) error {
	if max <= 0 {
		return nil
	}
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count >= int64(max) {
		return ErrLimited
	}
	return nil
}

func (l *Limiter) bump(ctx context.Context, key string, max int, window time.Duration) error {
	if max <= 0 {
		return nil
	}
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if count > int64(max) {
		return ErrLimited
	}
	return nil
}
