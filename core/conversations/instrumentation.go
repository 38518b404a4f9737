package conversations

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-voice/core/conversations"

var logger = otelslog.NewLogger(scopeName)
