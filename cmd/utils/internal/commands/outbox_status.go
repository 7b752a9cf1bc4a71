package commands

import (
	"context"
	"fmt"
	"time"

	pkgmongo "github.com/appetiteclub/fulfillment/pkg/mongo"
	"github.com/aquamarinepk/aqm"
)

// OutboxStatus reports, per service, how many events wait in the outbox and
// how long the oldest one has been waiting.
func OutboxStatus(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	client, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	stuck := 0
	for _, service := range ServiceNames {
		outbox := pkgmongo.NewOutbox(client.Database(Databases[service]))
		stats, err := outbox.Stats(ctx)
		if err != nil {
			return fmt.Errorf("%s outbox: %w", service, err)
		}

		kv := []interface{}{
			"service", service,
			"pending", stats.Pending,
			"sent", stats.Sent,
			"failing", stats.Failing,
			"parked", stats.Parked,
		}
		if stats.OldestPending != nil {
			kv = append(kv, "oldest_pending_age", time.Since(*stats.OldestPending).Round(time.Second).String())
		}
		if stats.LastError != "" {
			kv = append(kv, "last_error", stats.LastError)
		}
		logger.Info("Outbox status", kv...)

		if stats.Failing > 0 || stats.Parked > 0 {
			stuck++
		}
	}

	if stuck > 0 {
		logger.Infof("⚠️  %d service(s) have events failing to publish or parked", stuck)
	}
	return nil
}
