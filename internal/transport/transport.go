// Package transport delivers statements to the configured record store.
// Delivery is fire and forget: one POST, no retry, no queue. The embedding
// application can observe delivery outcomes through an observer callback.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edtrack/exercise-xapi/internal/xapi"
)

// Sender is what the engine needs from a statement transport.
type Sender interface {
	Send(ctx context.Context, st xapi.Statement)
}

// Observer receives the outcome of each delivery attempt. err is nil on
// success. It runs on the sender goroutine; keep it fast.
type Observer func(st xapi.Statement, err error)

type Client struct {
	HTTP      *http.Client
	Endpoint  string
	AuthToken string

	log      *zap.Logger
	observer Observer
	wg       sync.WaitGroup
}

func New(endpoint, authToken string, log *zap.Logger, obs Observer) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		HTTP:      &http.Client{Timeout: 15 * time.Second},
		Endpoint:  endpoint,
		AuthToken: authToken,
		log:       log,
		observer:  obs,
	}
}

// Send serializes the statement and posts it in the background. The caller's
// control flow is never blocked and never sees a delivery error; failures are
// logged and reported to the observer only.
func (c *Client) Send(ctx context.Context, st xapi.Statement) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.post(ctx, st)
		if err != nil {
			c.log.Error("statement delivery failed",
				zap.String("verb", st.Verb.ID),
				zap.String("object", st.Object.ID),
				zap.Error(err))
		} else {
			c.log.Info("statement delivered",
				zap.String("verb", st.Verb.ID),
				zap.String("object", st.Object.ID))
		}
		if c.observer != nil {
			c.observer(st, err)
		}
	}()
}

// Flush waits for in-flight sends; tests and graceful shutdown use it.
func (c *Client) Flush() { c.wg.Wait() }

// Post performs one synchronous delivery attempt. Send wraps it; the outbox
// uses it directly so it can journal the outcome.
func (c *Client) Post(ctx context.Context, st xapi.Statement) error { return c.post(ctx, st) }

func (c *Client) post(ctx context.Context, st xapi.Statement) error {
	return post(ctx, c.HTTP, c.Endpoint, c.AuthToken, st)
}

func post(ctx context.Context, hc *http.Client, endpoint, authToken string, st xapi.Statement) error {
	body, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal statement: %w", err)
	}
	u := strings.TrimRight(endpoint, "/") + "/statements"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("X-Experience-API-Version", xapi.Version)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+authToken)

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("post statement: store returned %s", resp.Status)
	}
	return nil
}

// Redeliverer posts journaled statements whose destination was stored with the
// row rather than fixed at construction. The outbox flusher uses it.
type Redeliverer struct{ HTTP *http.Client }

func NewRedeliverer() *Redeliverer {
	return &Redeliverer{HTTP: &http.Client{Timeout: 15 * time.Second}}
}

func (r *Redeliverer) PostTo(ctx context.Context, endpoint, authToken string, st xapi.Statement) error {
	return post(ctx, r.HTTP, endpoint, authToken, st)
}
