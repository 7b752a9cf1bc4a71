package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/fulfillment/pkg"
	pkgmongo "github.com/appetiteclub/fulfillment/pkg/mongo"
	"github.com/aquamarinepk/aqm"
)

// DefaultLedgerRetention stays well past the default stream retention so a
// pruned event can no longer be redelivered.
const DefaultLedgerRetention = 7 * 24 * time.Hour

// PruneLedger deletes processed-event records older than ledger.retention
// from every service database.
func PruneLedger(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	retention := pkg.DurationOr(config, "ledger.retention", DefaultLedgerRetention)
	if retention <= 0 {
		return fmt.Errorf("ledger.retention must be positive, got %s", retention)
	}
	cutoff := time.Now().UTC().Add(-retention)

	client, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	var total int64
	for _, service := range ServiceNames {
		ledger := pkgmongo.NewLedger(client.Database(Databases[service]), service)
		n, err := ledger.Prune(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("%s ledger: %w", service, err)
		}
		logger.Info("Pruned processed events", "service", service, "deleted", n)
		total += n
	}

	logger.Info("Ledger pruning finished", "cutoff", cutoff.Format(time.RFC3339), "deleted", total)
	return nil
}
