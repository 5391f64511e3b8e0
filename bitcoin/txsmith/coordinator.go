// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package txsmith

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"

	"github.com/BoostyLabs/txsmith/bitcoin"
	"github.com/BoostyLabs/txsmith/bitcoin/signer"
	"github.com/BoostyLabs/txsmith/bitcoin/txbuilder"
	"github.com/BoostyLabs/txsmith/bitcoin/utils"
	"github.com/BoostyLabs/txsmith/internal/numbers"
)

var (
	// kVByte is the number of virtual bytes in fee rate unit.
	kVByte = big.NewInt(1000)
	// maxAmount is the total supply in satoshi.
	maxAmount = big.NewInt(btcutil.MaxSatoshi)
)

// State defines construction step of the Coordinator.
type State int

const (
	// Estimating selects inputs for an estimated fee.
	Estimating State = iota
	// DraftBuilt holds signed zero fee draft.
	DraftBuilt
	// Measured knows exact fee of the draft.
	Measured
	// Finalized holds signed transaction paying exact fee.
	Finalized
)

// String returns state name.
func (s State) String() string {
	switch s {
	case Estimating:
		return "estimating"
	case DraftBuilt:
		return "draft built"
	case Measured:
		return "measured"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Request describes payment to construct.
type Request struct {
	SourceAddress    string
	RecipientAddress string
	Amount           *big.Int // in Satoshi.
	SatoshiPerKVByte *big.Int
	Key              *btcutil.WIF
}

// FeeQuote is a fee computed for a transaction size.
type FeeQuote struct {
	SatoshiPerKVByte *big.Int
	VSize            int64
	Fee              *big.Int
	Exact            bool // false for estimated size.
}

// Summary describes constructed payment.
type Summary struct {
	Amount      *big.Int
	Fee         *big.Int // embedded in transaction, includes dust change.
	VSize       int64
	TotalSpent  *big.Int
	AddressType bitcoin.AddressType
}

// Result is a signed payment with its accounting.
type Result struct {
	Tx     *wire.MsgTx
	Hex    string
	TxID   string
	Inputs []*bitcoin.UTXO
	Draft  *txbuilder.Draft // unsigned final transaction.

	Summary  Summary
	Estimate FeeQuote
	Exact    FeeQuote
	Final    FeeQuote
	// Remeasured is true when signed size needed more than exact fee
	// and transaction was built once again.
	Remeasured bool
}

// profile holds collaborators chosen for the source address type.
type profile struct {
	addrType bitcoin.AddressType
	estVSize int64
	fetcher  UTXOFetcher
	signer   signer.InputSigner
}

// Coordinator constructs signed payments paying fee for measured transaction size.
type Coordinator struct {
	config  Config
	builder *txbuilder.TxBuilder
	decoder VSizeDecoder
	fetcher map[bitcoin.AddressType]UTXOFetcher
}

// New is a constructor for Coordinator.
func New(cfg Config, deps Dependencies) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Decoder == nil {
		return nil, fmt.Errorf("%w: vsize decoder is not set", bitcoin.ErrInvalidParams)
	}

	cfg = cfg.clone()

	return &Coordinator{
		config:  cfg,
		builder: txbuilder.NewTxBuilder(cfg.NetworkParams, cfg.DustLimit),
		decoder: deps.Decoder,
		fetcher: map[bitcoin.AddressType]UTXOFetcher{
			bitcoin.Legacy:    deps.LegacyFetcher,
			bitcoin.WitnessV0: deps.WitnessFetcher,
		},
	}, nil
}

// Config returns copy of coordinator configuration.
func (c *Coordinator) Config() Config {
	return c.config.clone()
}

// construction is the state of a single Construct call.
type construction struct {
	state   State
	req     Request
	profile profile

	selected       []*bitcoin.UTXO
	selectedAmount *big.Int
	estimate       FeeQuote
	exact          FeeQuote
}

// advance moves construction to the next state.
func (cs *construction) advance(next State) {
	log.Debugf("%s: %s -> %s", cs.req.SourceAddress, cs.state, next)
	cs.state = next
}

// Construct builds, measures and signs payment, returns transaction paying
// fee rate for its actual size. Nothing is returned on any failure.
func (c *Coordinator) Construct(ctx context.Context, req Request) (*Result, error) {
	cs, err := c.estimate(ctx, req)
	if err != nil {
		return nil, err
	}

	draftTx, err := c.buildDraft(cs)
	if err != nil {
		return nil, err
	}

	if err = c.measure(ctx, cs, draftTx); err != nil {
		return nil, err
	}

	return c.finalize(ctx, cs)
}

// BuildPSBT returns serialized unsigned PSBT of constructed payment.
func (c *Coordinator) BuildPSBT(result *Result) ([]byte, error) {
	return c.builder.BuildPSBT(result.Draft)
}

// estimate classifies addresses, fetches and selects utxos for estimated fee.
func (c *Coordinator) estimate(ctx context.Context, req Request) (*construction, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}

	source, addrType, err := utils.DecodeAddress(req.SourceAddress, c.config.NetworkParams)
	if err != nil {
		return nil, fmt.Errorf("source address: %w", err)
	}

	recipientScript, err := utils.ScriptFor(req.RecipientAddress, c.config.NetworkParams)
	if err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}

	err = txrules.CheckOutput(wire.NewTxOut(req.Amount.Int64(), recipientScript), txrules.DefaultRelayFeePerKb)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient output: %w", bitcoin.ErrInvalidParams, err)
	}

	cs := &construction{state: Estimating, req: req}
	cs.profile, err = c.profileFor(addrType)
	if err != nil {
		return nil, err
	}

	if c.config.CheckKey {
		if err = signer.CheckKey(addrType, req.SourceAddress, req.Key, c.config.NetworkParams); err != nil {
			return nil, err
		}
	}

	utxos, err := cs.profile.fetcher.FetchUTXOs(ctx, source.EncodeAddress())
	if err != nil {
		return nil, fmt.Errorf("fetch utxos of %s: %w", source.EncodeAddress(), err)
	}

	cs.estimate = c.quote(req.SatoshiPerKVByte, cs.profile.estVSize, false)
	needEst := numbers.Sum(req.Amount, cs.estimate.Fee)

	cs.selected, cs.selectedAmount, err = txbuilder.SelectUTXO(utxos, needEst)
	if err != nil {
		return nil, err
	}

	log.Debugf("%s: selected %d of %d utxos, %s sat for estimated need %s sat",
		req.SourceAddress, len(cs.selected), len(utxos), cs.selectedAmount, needEst)

	return cs, nil
}

// buildDraft builds and signs zero fee draft.
func (c *Coordinator) buildDraft(cs *construction) (*wire.MsgTx, error) {
	cs.advance(DraftBuilt)

	return c.buildSigned(cs, big.NewInt(0))
}

// measure computes exact fee of signed draft.
func (c *Coordinator) measure(ctx context.Context, cs *construction, draftTx *wire.MsgTx) error {
	vsize, err := c.vsize(ctx, draftTx)
	if err != nil {
		return err
	}

	cs.advance(Measured)
	cs.exact = c.quote(cs.req.SatoshiPerKVByte, vsize, true)

	required := numbers.Sum(cs.req.Amount, cs.exact.Fee)
	if numbers.IsLess(cs.selectedAmount, required) {
		return txbuilder.NewInsufficientError(txbuilder.InsufficientErrorTypeFunds, required, new(big.Int).Set(cs.selectedAmount))
	}

	return nil
}

// signed is a signed transaction with its measured size.
type signed struct {
	draft      *txbuilder.Draft
	tx         *wire.MsgTx
	serialized []byte
	vsize      int64
}

// finalize rebuilds and signs transaction paying exact fee. When the signed
// size needs more than the embedded fee, builds once again with fee covering
// the longest signatures and measures the result.
func (c *Coordinator) finalize(ctx context.Context, cs *construction) (*Result, error) {
	final, err := c.signAndMeasure(ctx, cs, cs.exact.Fee)
	if err != nil {
		return nil, err
	}

	cs.advance(Finalized)
	if diff := final.vsize - cs.exact.VSize; diff > 1 || diff < -1 {
		log.Warnf("%s: final vsize %d differs from measured %d by more than 1 vbyte",
			cs.req.SourceAddress, final.vsize, cs.exact.VSize)
	}

	finalQuote := c.quote(cs.req.SatoshiPerKVByte, final.vsize, true)
	remeasured := numbers.IsGreater(finalQuote.Fee, final.draft.Fee)
	if remeasured {
		budget := c.quote(cs.req.SatoshiPerKVByte, final.vsize+signer.MaxSizeGrowth(final.tx), true)
		required := numbers.Sum(cs.req.Amount, budget.Fee)
		if numbers.IsLess(cs.selectedAmount, required) {
			return nil, txbuilder.NewInsufficientError(txbuilder.InsufficientErrorTypeFunds, required, new(big.Int).Set(cs.selectedAmount))
		}

		log.Debugf("%s: %d vbytes need %s sat, rebuilding with %s sat",
			cs.req.SourceAddress, final.vsize, finalQuote.Fee, budget.Fee)

		if final, err = c.signAndMeasure(ctx, cs, budget.Fee); err != nil {
			return nil, err
		}

		finalQuote = c.quote(cs.req.SatoshiPerKVByte, final.vsize, true)
		if numbers.IsGreater(finalQuote.Fee, final.draft.Fee) {
			return nil, fmt.Errorf("%w: %s sat paid for %d vbytes, %s sat required",
				bitcoin.ErrFeeUnderpaid, final.draft.Fee, final.vsize, finalQuote.Fee)
		}
	}

	log.Infof("%s: constructed %s, %d vbytes, fee %s sat",
		cs.req.SourceAddress, final.tx.TxHash(), final.vsize, final.draft.Fee)

	draft := final.draft
	return &Result{
		Tx:     final.tx,
		Hex:    hex.EncodeToString(final.serialized),
		TxID:   final.tx.TxHash().String(),
		Inputs: draft.Inputs,
		Draft:  draft,
		Summary: Summary{
			Amount:      new(big.Int).Set(draft.Amount),
			Fee:         new(big.Int).Set(draft.Fee),
			VSize:       final.vsize,
			TotalSpent:  numbers.Sum(draft.Amount, draft.Fee),
			AddressType: cs.profile.addrType,
		},
		Estimate:   cs.estimate,
		Exact:      cs.exact,
		Final:      finalQuote,
		Remeasured: remeasured,
	}, nil
}

// signAndMeasure builds, signs, verifies and measures payment paying fee.
func (c *Coordinator) signAndMeasure(ctx context.Context, cs *construction, fee *big.Int) (*signed, error) {
	draft, err := c.build(cs, fee)
	if err != nil {
		return nil, err
	}

	tx, err := signer.Sign(cs.profile.signer, draft, cs.req.Key)
	if err != nil {
		return nil, err
	}

	if err = signer.Verify(tx, draft.Inputs); err != nil {
		return nil, err
	}

	serialized, err := serialize(tx)
	if err != nil {
		return nil, err
	}

	vsize, err := c.decoder.DecodeVSize(ctx, serialized)
	if err != nil {
		return nil, fmt.Errorf("decode final vsize: %w", err)
	}

	return &signed{draft: draft, tx: tx, serialized: serialized, vsize: vsize}, nil
}

// build builds unsigned payment over selected utxos.
func (c *Coordinator) build(cs *construction, fee *big.Int) (*txbuilder.Draft, error) {
	return c.builder.Build(txbuilder.BuildParams{
		Inputs:           cs.selected,
		RecipientAddress: cs.req.RecipientAddress,
		Amount:           cs.req.Amount,
		ChangeAddress:    cs.req.SourceAddress,
		Fee:              fee,
	})
}

// buildSigned builds and signs payment over selected utxos.
func (c *Coordinator) buildSigned(cs *construction, fee *big.Int) (*wire.MsgTx, error) {
	draft, err := c.build(cs, fee)
	if err != nil {
		return nil, err
	}

	return signer.Sign(cs.profile.signer, draft, cs.req.Key)
}

// vsize measures signed transaction with decoder.
func (c *Coordinator) vsize(ctx context.Context, tx *wire.MsgTx) (int64, error) {
	serialized, err := serialize(tx)
	if err != nil {
		return 0, err
	}

	vsize, err := c.decoder.DecodeVSize(ctx, serialized)
	if err != nil {
		return 0, fmt.Errorf("decode draft vsize: %w", err)
	}

	return vsize, nil
}

// quote computes fee for vsize, rounded up to whole satoshi.
func (c *Coordinator) quote(satoshiPerKVByte *big.Int, vsize int64, exact bool) FeeQuote {
	fee := new(big.Int).Mul(big.NewInt(vsize), satoshiPerKVByte)

	return FeeQuote{
		SatoshiPerKVByte: new(big.Int).Set(satoshiPerKVByte),
		VSize:            vsize,
		Fee:              numbers.CeilDiv(fee, kVByte),
		Exact:            exact,
	}
}

// profileFor returns collaborators for source address type.
func (c *Coordinator) profileFor(addrType bitcoin.AddressType) (profile, error) {
	fetcher := c.fetcher[addrType]
	if fetcher == nil {
		return profile{}, fmt.Errorf("%w: no utxo fetcher for %s addresses", bitcoin.ErrInvalidParams, addrType)
	}

	inputSigner, err := signer.NewInputSigner(addrType)
	if err != nil {
		return profile{}, err
	}

	return profile{
		addrType: addrType,
		estVSize: c.config.estVSize(addrType),
		fetcher:  fetcher,
		signer:   inputSigner,
	}, nil
}

// validate checks request values that do not depend on addresses.
func (c *Coordinator) validate(req Request) error {
	switch {
	case req.Amount == nil || !numbers.IsPositive(req.Amount):
		return fmt.Errorf("%w: amount must be positive", bitcoin.ErrInvalidParams)
	case numbers.IsGreater(req.Amount, maxAmount):
		return fmt.Errorf("%w: amount exceeds %s sat", bitcoin.ErrInvalidParams, maxAmount)
	case req.Key == nil:
		return fmt.Errorf("%w: signing key is not provided", bitcoin.ErrInvalidParams)
	case req.SatoshiPerKVByte == nil:
		return fmt.Errorf("%w: fee rate is not provided", bitcoin.ErrInvalidFeeRate)
	case numbers.IsLess(req.SatoshiPerKVByte, c.config.MinSatoshiPerKVByte),
		numbers.IsGreater(req.SatoshiPerKVByte, c.config.MaxSatoshiPerKVByte):
		return fmt.Errorf("%w: %s sat/kvB is out of [%s, %s]", bitcoin.ErrInvalidFeeRate,
			req.SatoshiPerKVByte, c.config.MinSatoshiPerKVByte, c.config.MaxSatoshiPerKVByte)
	}

	return nil
}

// serialize returns serialized transaction.
func serialize(tx *wire.MsgTx) ([]byte, error) {
	w := bytes.NewBuffer(make([]byte, 0, tx.SerializeSize()))
	if err := tx.Serialize(w); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
