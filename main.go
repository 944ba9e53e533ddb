package main

import (
	"log"
	"os"

	"mod-updater/cmd"
	"mod-updater/logger"

	_ "go.uber.org/automaxprocs/maxprocs"
)

func main() {
	if err := logger.InitLogger(os.Getenv("MOD_UPDATER_DEBUG") != ""); err != nil {
		log.Fatalf("%v", err)
	}
	defer logger.Sync()
	cmd.Execute()
}
