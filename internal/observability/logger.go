package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alecsis/py-chain/internal/logging"
)

func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	ctx := zerolog.New(logging.Writer()).With()
	if logging.Current().Timestamp {
		ctx = ctx.Timestamp()
	}
	logger := ctx.Str("app", app).Logger()
	log.Logger = logger
	return logger
}
