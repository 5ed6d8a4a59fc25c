package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/medicnote/logger"
	"github.com/meinhoongagan/medicnote/services"
	"github.com/meinhoongagan/medicnote/utils"
	"github.com/valyala/fasthttp"
)

const heartbeatInterval = 15 * time.Second

// offer keeps only the newest pending value: a slow client skips
// intermediate states instead of blocking the refresher.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// streamSSE serves a live view as server-sent events. Each event carries
// the full current state. The subscription is released when the client
// goes away.
func streamSSE[T any](c *fiber.Ctx, event string, start func(ctx context.Context, onChange func(T)) (*services.Live[T], error)) error {
	updates := make(chan T, 1)
	ctx, cancel := context.WithCancel(context.Background())
	live, err := start(ctx, func(v T) { offer(updates, v) })
	if err != nil {
		cancel()
		return utils.RespondError(c, "Failed to open stream", err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer live.Close()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()
		for {
			select {
			case v := <-updates:
				payload, err := json.Marshal(v)
				if err != nil {
					logger.Log.Error().Err(err).Str("event", event).Msg("encode stream payload")
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}
