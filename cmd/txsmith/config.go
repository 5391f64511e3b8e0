// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btclog"
	flags "github.com/jessevdk/go-flags"

	"github.com/BoostyLabs/txsmith/bitcoin/txsmith"
)

const (
	defaultLogFilename = "txsmith.log"
	defaultLogLevel    = "info"
	defaultConfTarget  = 6
	defaultDustLimit   = 546
)

var (
	defaultAppDir = btcutil.AppDataDir("txsmith", false)
	defaultLogDir = filepath.Join(defaultAppDir, "logs")
)

// config defines the configuration options for txsmith.
type config struct {
	RPCConnect string `long:"rpcconnect" description:"Hostname/IP and port of the bitcoin node RPC server, network default port when empty"`
	RPCUser    string `short:"u" long:"rpcuser" description:"Username for RPC connections"`
	RPCPass    string `short:"P" long:"rpcpass" default-mask:"-" description:"Password for RPC connections"`

	TestNet3       bool `long:"testnet" description:"Use the test network"`
	RegressionTest bool `long:"regtest" description:"Use the regression test network"`
	SigNet         bool `long:"signet" description:"Use the signet test network"`

	Wallet     string `short:"w" long:"wallet" description:"Wallet JSON file with address and private_key_wif, the only *.json of working directory when empty"`
	To         string `long:"to" description:"Recipient address, asked when empty"`
	Amount     string `long:"amount" description:"Amount to send in BTC (0.001) or satoshi (25000sat), asked when empty"`
	FeeRate    string `long:"feerate" description:"Fee rate in sat/vB (1..1000), node estimate is suggested when empty"`
	ConfTarget int64  `long:"conftarget" description:"Confirmation target in blocks for fee estimation"`
	DustLimit  int64  `long:"dustlimit" description:"Smallest change in satoshi kept as an output, smaller change goes to fee"`
	EstLegacy  int64  `long:"estlegacy" description:"Estimated vsize of legacy payment used for input selection"`
	EstWitness int64  `long:"estwitness" description:"Estimated vsize of witness payment used for input selection"`

	PSBT   string `long:"psbt" description:"Write unsigned PSBT of the payment to file"`
	DryRun bool   `long:"dryrun" description:"Construct and print the transaction without broadcasting, vsize is measured locally"`
	Yes    bool   `short:"y" long:"yes" description:"Broadcast without confirmation"`

	LogDir     string `long:"logdir" description:"Directory to log output"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`

	params *chaincfg.Params
}

// loadConfig initializes and parses the config using command line options.
func loadConfig(args []string) (*config, error) {
	cfg := config{
		ConfTarget: defaultConfTarget,
		DustLimit:  defaultDustLimit,
		EstLegacy:  txsmith.DefaultEstVSizeLegacy,
		EstWitness: txsmith.DefaultEstVSizeWitness,
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	params, port, err := networkParams(cfg.TestNet3, cfg.RegressionTest, cfg.SigNet)
	if err != nil {
		return nil, err
	}
	cfg.params = params

	if cfg.RPCConnect == "" {
		cfg.RPCConnect = net.JoinHostPort("localhost", port)
	} else if _, _, err := net.SplitHostPort(cfg.RPCConnect); err != nil {
		cfg.RPCConnect = net.JoinHostPort(cfg.RPCConnect, port)
	}

	switch {
	case cfg.ConfTarget < 1:
		return nil, errors.New("conftarget must be at least 1 block")
	case cfg.DustLimit < 0:
		return nil, errors.New("dustlimit must not be negative")
	case cfg.EstLegacy <= 0 || cfg.EstWitness <= 0:
		return nil, errors.New("estimated vsizes must be positive")
	}

	if err = validateDebugLevels(cfg.DebugLevel); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// coreConfig returns coordinator configuration.
func (cfg *config) coreConfig() txsmith.Config {
	coreCfg := txsmith.DefaultConfig(cfg.params)
	coreCfg.EstVSizeLegacy = cfg.EstLegacy
	coreCfg.EstVSizeWitness = cfg.EstWitness
	coreCfg.DustLimit.SetInt64(cfg.DustLimit)

	return coreCfg
}

// networkParams returns parameters and default node RPC port of selected network.
func networkParams(testNet, regTest, sigNet bool) (*chaincfg.Params, string, error) {
	numNets := 0
	params, port := &chaincfg.MainNetParams, "8332"
	if testNet {
		numNets++
		params, port = &chaincfg.TestNet3Params, "18332"
	}
	if regTest {
		numNets++
		params, port = &chaincfg.RegressionNetParams, "18443"
	}
	if sigNet {
		numNets++
		params, port = &chaincfg.SigNetParams, "38332"
	}

	if numNets > 1 {
		return nil, "", errors.New("the testnet, regtest, and signet params can't be used together -- choose one of the three")
	}

	return params, port, nil
}

// validateDebugLevels checks global level or list of subsystem levels.
func validateDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, "=") {
		if _, ok := btclog.LevelFromString(debugLevel); !ok {
			return fmt.Errorf("the specified debug level [%v] is invalid", debugLevel)
		}

		return nil
	}

	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		fields := strings.Split(logLevelPair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("the specified debug level contains an invalid subsystem/level pair [%v]", logLevelPair)
		}

		subsysID, logLevel := fields[0], fields[1]
		if _, exists := subsystemLoggers[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is invalid -- supported subsystems %v", subsysID, supportedSubsystems())
		}
		if _, ok := btclog.LevelFromString(logLevel); !ok {
			return fmt.Errorf("the specified debug level [%v] is invalid", logLevel)
		}
	}

	return nil
}

// applyDebugLevels sets levels of subsystem loggers, debugLevel must be valid.
func applyDebugLevels(debugLevel string) {
	if !strings.Contains(debugLevel, "=") {
		setLogLevels(debugLevel)
		return
	}

	setLogLevels(defaultLogLevel)
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		fields := strings.Split(logLevelPair, "=")
		level, _ := btclog.LevelFromString(fields[1])
		subsystemLoggers[fields[0]].SetLevel(level)
	}
}
