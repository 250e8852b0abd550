package testlog

import (
	"sync"
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/Alecsis/py-chain/internal/logging"
)

var outputOnce sync.Once

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	outputOnce.Do(func() {
		log.Logger = log.Output(logging.Writer())
	})
	log.Info().Str("test", t.Name()).Msg("start")
}
