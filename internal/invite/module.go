package invite

import (
	"go.uber.org/fx"

	"github.com/tigerroll/recordhub/internal/store"
)

// Module provides the token issuer, the mail sender and the Inviter.
var Module = fx.Options(
	fx.Provide(NewTokenIssuer),
	fx.Provide(NewMailSender),
	fx.Provide(func(s store.Store) Ledger { return s }),
	fx.Provide(NewInviter),
)
