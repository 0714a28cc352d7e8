package store

import (
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/tx"
)

// Module provides the transaction manager and the gorm backed Store for the default connection.
var Module = fx.Options(
	fx.Provide(tx.NewGormTransactionManager),
	fx.Provide(fx.Annotate(NewStore, fx.As(new(Store)))),
)
