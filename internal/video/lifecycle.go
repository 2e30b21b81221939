package video

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/mishel123hanna/sign-language/internal/config"
)

// StartSweeper ties the retention loop to the application lifecycle.
func StartSweeper(lc fx.Lifecycle, store *Store, cfg config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				store.RunSweeper(ctx, cfg.VideoCleanupInterval, cfg.VideoRetention)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
	})
}
