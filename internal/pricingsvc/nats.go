package pricingsvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
)

// QueueGroup load-balances requests across service replicas.
const QueueGroup = "pricewatch-pricingsvc"

// Responder answers PriceRequests received on a NATS subject.
type Responder struct {
	svc     *Service
	conn    *nats.Conn
	subject string
}

// NewResponder returns a responder using an established connection.
func NewResponder(svc *Service, conn *nats.Conn, subject string) *Responder {
	return &Responder{svc: svc, conn: conn, subject: subject}
}

// Run subscribes and serves until ctx is canceled. Each request is
// handled on its own goroutine so replies may leave out of order.
func (r *Responder) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	sub, err := r.conn.QueueSubscribe(r.subject, QueueGroup, func(msg *nats.Msg) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.handle(ctx, msg)
		}()
	})
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to subscribe").
			WithContext("subject", r.subject).
			Build()
	}
	r.svc.logger.Info("NATS price responder started", logfields.Subject(r.subject))

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		r.svc.logger.Warn("NATS drain failed", logfields.Subject(r.subject), logfields.Error(err))
	}
	wg.Wait()
	return nil
}

func (r *Responder) handle(ctx context.Context, msg *nats.Msg) {
	start := time.Now()
	var req pricing.PriceRequest
	var (
		res pricing.Result
		err error
	)
	if uerr := json.Unmarshal(msg.Data, &req); uerr != nil {
		err = ferrors.WrapError(uerr, ferrors.CategoryValidation, "invalid price request").Build()
	} else {
		res, err = r.svc.Price(ctx, req)
	}
	r.svc.observe("nats", start, res, err)

	data, merr := json.Marshal(replyFor(res, err))
	if merr != nil {
		r.svc.logger.Error("Failed to encode NATS reply", logfields.Error(merr))
		return
	}
	if rerr := msg.Respond(data); rerr != nil {
		r.svc.logger.Warn("Failed to send NATS reply", logfields.Subject(r.subject), logfields.Error(rerr))
	}
}

func replyFor(res pricing.Result, err error) pricing.PriceResponse {
	if err == nil {
		return pricing.NewPriceResponse(res)
	}
	out := pricing.PriceResponse{Error: err.Error()}
	if c, ok := ferrors.AsClassified(err); ok {
		out.Error = c.Message()
		out.Code = string(c.Category())
		out.Retryable = c.CanRetry()
	}
	return out
}
