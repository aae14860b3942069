package flows

import (
	"context"
	"strings"
	"time"
)

// CodeChannelDeps captures the out-of-band code service.
type CodeChannelDeps struct {
	Send   func(ctx context.Context, phone string) error
	Verify func(ctx context.Context, phone, code string) error
	// CheckSendLimit is optional; a non-nil error blocks the send.
	CheckSendLimit func(ctx context.Context, phone string) error
	// ResetSendLimit is optional and called after a successful verify.
	ResetSendLimit func(ctx context.Context, phone string) error
	// ObserveLatency is optional and receives the duration of each service call.
	ObserveLatency func(op string, d time.Duration)
	Now            func() time.Time
}

func (d CodeChannelDeps) timed(op string, fn func() error) error {
	if d.ObserveLatency == nil || d.Now == nil {
		return fn()
	}
	start := d.Now()
	err := fn()
	d.ObserveLatency(op, d.Now().Sub(start))
	return err
}

// RunSendCode asks the code service to deliver a code to phone.
func RunSendCode(ctx context.Context, phone string, deps CodeChannelDeps) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return Fatal("send_code", ErrMissingPhone)
	}
	if deps.CheckSendLimit != nil {
		if err := deps.CheckSendLimit(ctx, phone); err != nil {
			return Fatal("send_code", err)
		}
	}
	err := deps.timed("send_code", func() error {
		return deps.Send(ctx, phone)
	})
	return Fatal("send_code", err)
}

// RunVerifyCode submits code for phone. The returned result carries a
// tolerated failure to reset the send budget, if any.
func RunVerifyCode(ctx context.Context, phone, code string, deps CodeChannelDeps) (Result[struct{}], error) {
	var res Result[struct{}]
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if phone == "" {
		return res, Fatal("verify_code", ErrMissingPhone)
	}
	if code == "" {
		return res, Fatal("verify_code", ErrMissingCode)
	}

	err := deps.timed("verify_code", func() error {
		return deps.Verify(ctx, phone, code)
	})
	if err != nil {
		return res, Fatal("verify_code", err)
	}
	if deps.ResetSendLimit != nil {
		res.tolerate("reset_send_limit", deps.ResetSendLimit(ctx, phone))
	}
	return res, nil
}
