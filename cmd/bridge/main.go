package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fpbridge/config"
	"fpbridge/internal/bridge"
	"fpbridge/internal/datecs"
	"fpbridge/internal/journal"
	"fpbridge/internal/logging"
	"fpbridge/pkg/types"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC: %v\n", r)
			os.Exit(1)
		}
	}()

	configFile := flag.String("config", "", "Path to configuration file (default: config.json next to executable)")
	showHelp := flag.Bool("help", false, "Show help message")
	showVersion := flag.Bool("version", false, "Show version")
	createConfig := flag.Bool("create-config", false, "Create example config.json file")
	flag.Parse()

	if *showVersion {
		fmt.Println("fpbridge - Datecs fiscal printer bridge")
		fmt.Println("Version:", config.VERSION)
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	if *createConfig {
		configPath := "config.json"
		if err := config.SaveConfigExample(configPath); err != nil {
			fmt.Printf("Error: Failed to create config.json: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Example configuration file created: %s\n", configPath)
		fmt.Println("Edit this file to customize your settings.")
		os.Exit(0)
	}

	fmt.Println("fpbridge - Datecs fiscal printer bridge")
	fmt.Println("=======================================")

	cfg := config.LoadConfig(*configFile, flag.Args())

	logger := logging.NewLogger(cfg)
	defer logger.Close()

	var jrnl *journal.Journal
	if cfg.JournalPath != "" {
		jrnl = journal.New(cfg.JournalPath)
		if err := jrnl.Open(); err != nil {
			logger.Error(fmt.Sprintf("Journal disabled: %v", err))
			jrnl = nil
		} else {
			defer jrnl.Close()
		}
	}

	connector := datecs.NewConnector(cfg, logger)
	connector.SetOperator(types.OperatorContext{
		Code:     cfg.OperatorCode,
		Password: cfg.OperatorPassword,
		Till:     cfg.OperatorTill,
	})
	defer connector.Disconnect()

	server := bridge.NewServer(cfg, logger, connector, jrnl)

	fmt.Printf("HTTP:   %s:%d\n", cfg.HTTPAddr, cfg.HTTPPort)
	fmt.Printf("Device: %s:%d\n", cfg.DeviceIP, cfg.DevicePort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	select {
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %v, shutting down\n", sig)
	case err := <-errChan:
		fmt.Printf("Server failed: %v\n", err)
		logger.Error(fmt.Sprintf("Server failed: %v", err))
		os.Exit(1)
	}

	fmt.Println("Bridge stopped")
}

func printHelp() {
	fmt.Println("fpbridge - Datecs fiscal printer bridge")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  bridge [options] [httpPort] [datecsIp] [datecsPort]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config <path>    Path to configuration file (default: config.json next to executable)")
	fmt.Println("  -create-config    Create example config.json file")
	fmt.Println("  -help             Show this help")
	fmt.Println("  -version          Show version")
	fmt.Println("")
	fmt.Println("Positional parameters (override the config file):")
	fmt.Println("  httpPort          HTTP listen port (default 8080)")
	fmt.Println("  datecsIp          Fiscal device IP (default 127.0.0.1)")
	fmt.Println("  datecsPort        Fiscal device port (default 3999)")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  bridge")
	fmt.Println("  bridge 8080 192.168.1.50 3999")
	fmt.Println("  bridge -config myconfig.json")
}
