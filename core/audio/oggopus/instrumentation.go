package oggopus

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-voice/core/audio/oggopus"

var logger = otelslog.NewLogger(scopeName)
