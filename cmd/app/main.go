package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ride-sim/internal/config"
	"ride-sim/internal/emulator"
	"ride-sim/internal/mylogger"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <command> [flags]

Commands:
  fleet                       run the simulated fleet and its control API
  emulator -vehicle <id>      drive one vehicle of the fleet file
  rider -token <token>        play a rider and evaluate arrived rides
`, os.Args[0])
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	mylog, err := mylogger.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	fleetCmd := flag.NewFlagSet("fleet", flag.ExitOnError)
	fleetFile := fleetCmd.String("fleet", cfg.Fleet.File, "fleet roster file")
	port := fleetCmd.String("port", cfg.Srv.ControlPort, "control API port")

	emulatorCmd := flag.NewFlagSet("emulator", flag.ExitOnError)
	vehicleID := emulatorCmd.String("vehicle", "", "vehicle id from the fleet file")
	emulatorFile := emulatorCmd.String("fleet", cfg.Fleet.File, "fleet roster file")

	riderCmd := flag.NewFlagSet("rider", flag.ExitOnError)
	token := riderCmd.String("token", "", "rider access token")
	riderID := riderCmd.String("id", "rider", "rider id used in logs")

	ctx := context.Background()
	switch os.Args[1] {
	case "fleet":
		fleetCmd.Parse(os.Args[2:])
		cfg.Fleet.File = *fleetFile
		cfg.Srv.ControlPort = *port
		err = emulator.ExecuteFleet(ctx, mylog.Action("fleet"), cfg)
	case "emulator":
		emulatorCmd.Parse(os.Args[2:])
		if *vehicleID == "" {
			emulatorCmd.Usage()
			os.Exit(2)
		}
		cfg.Fleet.File = *emulatorFile
		err = emulator.ExecuteEmulator(ctx, mylog.Action("emulator").With("vehicle_id", *vehicleID), cfg, *vehicleID)
	case "rider":
		riderCmd.Parse(os.Args[2:])
		err = emulator.ExecuteRider(ctx, mylog.Action("rider"), cfg, *riderID, *token)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		mylog.Error("exited with error", err)
		os.Exit(1)
	}
}
