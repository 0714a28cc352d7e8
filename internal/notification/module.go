package notification

import "go.uber.org/fx"

// Module provides the completion Notifier.
var Module = fx.Options(
	fx.Provide(NewNotifier),
)
