package dispatch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

const maxRequestSize = 1 << 20

// Serve reads line-delimited JSON requests from r and writes one JSON
// response line per request to w. Requests run concurrently, so responses may
// arrive out of order; callers correlate them by ID.
//
// Serve returns when r is exhausted or ctx is done, after all in-flight
// requests have finished. On cancellation it returns ctx.Err(); a read
// blocked on r is abandoned.
func (d *Dispatcher) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	var (
		wmu sync.Mutex
		wg  sync.WaitGroup
	)
	enc := json.NewEncoder(w)
	write := func(resp Response) {
		wmu.Lock()
		defer wmu.Unlock()
		if err := enc.Encode(resp); err != nil {
			d.logger.Error("failed to write response", slog.String("request_id", resp.ID), slog.Any("error", err))
		}
	}

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxRequestSize)
		for scanner.Scan() {
			line := bytes.Clone(bytes.TrimSpace(scanner.Bytes()))
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

read:
	for {
		select {
		case <-ctx.Done():
			break read
		case line, ok := <-lines:
			if !ok {
				break read
			}

			var req Request
			if err := json.Unmarshal(line, &req); err != nil {
				write(Response{Error: &Failure{Kind: KindInvalidRequest, Message: fmt.Sprintf("decode request: %v", err)}})
				continue
			}
			wg.Go(func() {
				write(d.Invoke(ctx, req))
			})
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		d.logger.Info("stopped serving", slog.Any("reason", err))
		return err
	}
	if err := <-readErr; err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}
