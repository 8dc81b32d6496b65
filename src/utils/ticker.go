package utils

import (
	"context"
	"time"
)

/*
Ticks once right away and then every d, until ctx is done. The channel is closed
afterward. Ticks that nobody receives are dropped, like time.Ticker.
*/
func TickEvery(ctx context.Context, d time.Duration) <-chan time.Time {
	c := make(chan time.Time, 1)
	c <- time.Now()

	go func() {
		defer close(c)

		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				select {
				case c <- t:
				default:
				}
			}
		}
	}()

	return c
}
