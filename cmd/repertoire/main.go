// Command repertoire runs the sequencing pipeline stages against postgres
package main

import (
	"os"

	"repertoire/internal/platform/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Get().Error().Err(err).Msg("repertoire failed")
		os.Exit(exitCode(err))
	}
}
