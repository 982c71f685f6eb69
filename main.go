package main

import (
	"github.com/BioHazard786/Warpcast/cmd"
	"github.com/BioHazard786/Warpcast/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
