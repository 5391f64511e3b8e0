// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/rpcclient"
	flags "github.com/jessevdk/go-flags"

	"github.com/BoostyLabs/txsmith/bitcoin"
	"github.com/BoostyLabs/txsmith/bitcoin/node"
	"github.com/BoostyLabs/txsmith/bitcoin/txsmith"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}

		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}

	if err = run(cfg); err != nil {
		log.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

// run constructs payment from wallet and broadcasts it after confirmation.
func run(cfg *config) error {
	if err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename)); err != nil {
		return err
	}
	defer logRotator.Close()
	applyDebugLevels(cfg.DebugLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	wallet, key, err := openWallet(cfg)
	if err != nil {
		return err
	}

	client, err := node.NewClient(rpcclient.ConnConfig{
		Host:       cfg.RPCConnect,
		User:       cfg.RPCUser,
		Pass:       cfg.RPCPass,
		DisableTLS: true,
	}, cfg.params)
	if err != nil {
		return err
	}
	defer client.Close()

	height, err := client.BlockCount(ctx)
	if err != nil {
		return fmt.Errorf("node %s: %w", cfg.RPCConnect, err)
	}
	log.Infof("connected to %s node at %s, height %d", cfg.params.Name, cfg.RPCConnect, height)

	req, err := paymentRequest(ctx, cfg, client, wallet, key)
	if err != nil {
		return err
	}

	var decoder txsmith.VSizeDecoder = client
	if cfg.DryRun {
		decoder = node.OfflineDecoder{}
	}

	coordinator, err := txsmith.New(cfg.coreConfig(), txsmith.Dependencies{
		LegacyFetcher:  client.LegacyFetcher(),
		WitnessFetcher: client.WitnessFetcher(),
		Decoder:        decoder,
	})
	if err != nil {
		return err
	}

	result, err := coordinator.Construct(ctx, req)
	if err != nil {
		return describeError(err)
	}

	printResult(req, result)

	if cfg.PSBT != "" {
		packet, err := coordinator.BuildPSBT(result)
		if err != nil {
			return err
		}

		if err = os.WriteFile(cfg.PSBT, packet, 0600); err != nil {
			return err
		}
		fmt.Printf("Unsigned PSBT written to %s\n", cfg.PSBT)
	}

	if cfg.DryRun {
		fmt.Println(result.Hex)
		return nil
	}

	if !cfg.Yes {
		ok, err := confirm("Broadcast transaction")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println(warningStyle.Render("Transaction is not broadcast."))
			return nil
		}
	}

	txHash, err := client.Broadcast(ctx, result.Tx)
	if err != nil {
		return describeError(err)
	}

	fmt.Printf("Broadcast transaction %s\n", txHash)

	return nil
}

// openWallet loads wallet file and its private key.
func openWallet(cfg *config) (*walletFile, *btcutil.WIF, error) {
	path := cfg.Wallet
	if path == "" {
		dir, err := os.Getwd()
		if err != nil {
			return nil, nil, err
		}

		files, err := findWalletFiles(dir)
		if err != nil {
			return nil, nil, err
		}

		if path, err = chooseWallet(files); err != nil {
			return nil, nil, err
		}
	}

	wallet, err := loadWallet(path)
	if err != nil {
		return nil, nil, err
	}

	addrType, err := checkWalletAddress(wallet, cfg.params)
	if err != nil {
		return nil, nil, err
	}
	log.Infof("wallet %s: %s address %s", filepath.Base(path), addrType, wallet.Address)

	wif := wallet.PrivateKeyWIF
	if wif == "" {
		if wif, err = askSecret("WIF private key"); err != nil {
			return nil, nil, err
		}
	}

	key, err := decodeKey(wif, cfg.params)
	if err != nil {
		return nil, nil, err
	}

	return wallet, key, nil
}

// paymentRequest collects recipient, amount and fee rate from flags or prompts.
func paymentRequest(ctx context.Context, cfg *config, client *node.Client, wallet *walletFile, key *btcutil.WIF) (txsmith.Request, error) {
	req := txsmith.Request{SourceAddress: wallet.Address, Key: key}

	recipient := cfg.To
	if recipient == "" {
		var err error
		recipient, err = ask("Recipient address", "", func(s string) error {
			_, err := checkWalletAddress(&walletFile{Address: s}, cfg.params)
			return err
		})
		if err != nil {
			return req, err
		}
	}
	req.RecipientAddress = recipient

	amount := cfg.Amount
	if amount == "" {
		var err error
		amount, err = ask("Amount (BTC or <n>sat)", "", func(s string) error {
			_, err := parseAmount(s)
			return err
		})
		if err != nil {
			return req, err
		}
	}

	var err error
	if req.Amount, err = parseAmount(amount); err != nil {
		return req, err
	}

	feeRate := cfg.FeeRate
	if feeRate == "" {
		suggested, err := client.EstimateFeeRate(ctx, cfg.ConfTarget)
		if err != nil {
			log.Warnf("fee estimation failed: %v", err)
			suggested = big.NewInt(node.FallbackSatoshiPerKVByte)
		}

		feeRate, err = ask(fmt.Sprintf("Fee rate, sat/vB (estimate for %d blocks)", cfg.ConfTarget), formatRateValue(suggested), func(s string) error {
			_, err := parseFeeRate(s)
			return err
		})
		if err != nil {
			return req, err
		}
	}

	if req.SatoshiPerKVByte, err = parseFeeRate(feeRate); err != nil {
		return req, err
	}

	return req, nil
}

// printResult prints summary of constructed payment.
func printResult(req txsmith.Request, result *txsmith.Result) {
	printSummary("Payment", [][2]string{
		{"From", fmt.Sprintf("%s (%s)", req.SourceAddress, result.Summary.AddressType)},
		{"To", req.RecipientAddress},
		{"Amount", formatAmount(result.Summary.Amount)},
		{"Fee", formatAmount(result.Summary.Fee)},
		{"Fee rate", formatFeeRate(req.SatoshiPerKVByte)},
		{"Size", fmt.Sprintf("%d vB (estimated %d vB)", result.Summary.VSize, result.Estimate.VSize)},
		{"Total spent", formatAmount(result.Summary.TotalSpent)},
		{"Inputs", fmt.Sprintf("%d", len(result.Inputs))},
		{"Transaction", result.TxID},
	})

	if result.Remeasured {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Signed size outgrew measured %d vB, fee raised from %s to %s.",
			result.Exact.VSize, formatAmount(result.Exact.Fee), formatAmount(result.Summary.Fee))))
	}
}

// describeError adds operands of known failures.
func describeError(err error) error {
	var rejectionErr *bitcoin.NodeRejectionError
	switch {
	case errors.As(err, &rejectionErr):
		return fmt.Errorf("node rejected transaction: %s", rejectionErr.Reason)
	case errors.Is(err, bitcoin.ErrInsufficientFunds):
		return fmt.Errorf("not enough spendable outputs: %w", err)
	default:
		return err
	}
}
