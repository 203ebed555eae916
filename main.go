package main

import (
	"go.uber.org/zap"

	"productradar/cmd"
	"productradar/logging"
)

func main() {
	logger := logging.SetupLogger("productradar.log")
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cmd.Execute()
}
