package redis

import (
	"time"

	"github.com/appetiteclub/fulfillment/pkg"
	"github.com/aquamarinepk/aqm"
	goredis "github.com/redis/go-redis/v9"
)

// NewLedgerFromConfig reads ledger.redis.addr and ledger.ttl.
func NewLedgerFromConfig(config *aqm.Config, consumer string) *Ledger {
	client := goredis.NewClient(&goredis.Options{
		Addr: pkg.StringOr(config, "ledger.redis.addr", "localhost:6379"),
	})
	return NewLedger(client, consumer, pkg.DurationOr(config, "ledger.ttl", time.Duration(0)))
}
