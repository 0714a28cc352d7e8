package remote

import "go.uber.org/fx"

// Module provides the HTTP registry client.
var Module = fx.Options(
	fx.Provide(NewHTTPRegistry),
)
