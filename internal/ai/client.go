package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrorMarker prefixes every user-facing failure text.
const ErrorMarker = "GPT_ERROR:"

var ErrEmptyReply = errors.New("model returned an empty reply")

// Result is either a reply (Err == nil) or a failure.
type Result struct {
	Text string
	Err  error
}

func Success(text string) Result { return Result{Text: text} }

func Failure(err error) Result { return Result{Err: err} }

func (r Result) OK() bool { return r.Err == nil }

// ErrorText renders a failure for the end user.
func (r Result) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return fmt.Sprintf("❌ %s failed to get a reply: %v", ErrorMarker, r.Err)
}

// Collect concatenates fragments in arrival order until the channel closes.
func Collect(chunks <-chan string) string {
	var b strings.Builder
	for c := range chunks {
		b.WriteString(c)
	}
	return b.String()
}

// Client turns a streaming provider call into one aggregated reply.
type Client struct {
	provider StreamProvider
	log      *zap.SugaredLogger
}

func NewClient(p Provider, log *zap.SugaredLogger) *Client {
	sp, ok := p.(StreamProvider)
	if !ok {
		sp = chatStreamer{p: p}
	}
	return &Client{provider: sp, log: log}
}

// Complete never returns an error value directly; failures come back tagged in
// the Result and any partial output is dropped.
func (c *Client) Complete(ctx context.Context, messages []Message) Result {
	start := time.Now()
	chunks, errs := c.provider.StreamChat(ctx, messages)
	reply := Collect(chunks)

	if err := <-errs; err != nil {
		c.log.Errorw("completion failed", "messages", len(messages), "cost", time.Since(start), "err", err)
		return Failure(err)
	}
	if strings.TrimSpace(reply) == "" {
		c.log.Warnw("completion returned no text", "messages", len(messages), "cost", time.Since(start))
		return Failure(ErrEmptyReply)
	}

	c.log.Debugw("completion done", "messages", len(messages), "chars", len(reply), "cost", time.Since(start))
	return Success(reply)
}
