package main

import (
	"github.com/JonCoulter/whenly/core/logger"
	"github.com/JonCoulter/whenly/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", err)
	}
}
