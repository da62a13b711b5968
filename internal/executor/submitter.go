package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/omniarb/omniarbbot/internal/domain"
	"github.com/omniarb/omniarbbot/internal/wallet"
)

const (
	// defaultSubmitLatency approximates one venue round trip.
	defaultSubmitLatency = 500 * time.Millisecond

	// simulatedGasUsed is the gas a reference swap reports.
	simulatedGasUsed = 200_000
)

// SimulatedSubmitter is the reference submission backend. It emulates venue
// latency, signs the order's canonical message with the wallet, and derives
// the transaction reference from the signature. Production backends replace
// it behind the Submitter interface.
type SimulatedSubmitter struct {
	signer  *wallet.Signer
	latency time.Duration
	logger  *slog.Logger
}

var _ Submitter = (*SimulatedSubmitter)(nil)

// NewSimulatedSubmitter creates the reference backend. A zero latency falls
// back to the default round-trip emulation.
func NewSimulatedSubmitter(signer *wallet.Signer, latency time.Duration, logger *slog.Logger) *SimulatedSubmitter {
	if latency <= 0 {
		latency = defaultSubmitLatency
	}
	return &SimulatedSubmitter{
		signer:  signer,
		latency: latency,
		logger:  logger.With(slog.String("component", "submitter")),
	}
}

// Submit implements Submitter.
func (s *SimulatedSubmitter) Submit(ctx context.Context, order Order) (Receipt, error) {
	// Emulate the venue round trip before resolving.
	select {
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	case <-time.After(s.latency):
	}

	if s.signer == nil {
		return Receipt{}, domain.ErrNoCredential
	}

	sig, err := s.signer.SignMessage(order.canonicalMessage())
	if err != nil {
		return Receipt{}, fmt.Errorf("executor: %w: %v", domain.ErrSigningFailed, err)
	}

	receipt := Receipt{
		TxRef:   txRefFromSignature(sig),
		GasUsed: simulatedGasUsed,
	}
	s.logger.Debug("order submitted",
		slog.String("opportunity_id", order.OpportunityID),
		slog.String("tx_ref", receipt.TxRef),
	)
	return receipt, nil
}

// canonicalMessage renders the order as the byte string submission backends
// sign. Field order is part of the format; changing it invalidates recorded
// references.
func (o Order) canonicalMessage() []byte {
	return []byte(fmt.Sprintf("omniarb|%s|%s|%s->%s|%.8f|%.8f|%.4f|%d",
		o.OpportunityID, o.Pair, o.BuyVenue, o.SellVenue,
		o.BuyPrice, o.SellPrice, o.Amount, o.GasLimit))
}

// txRefFromSignature derives a 32-byte transaction reference from the order
// signature, rendered like a chain transaction hash.
func txRefFromSignature(sigHex string) string {
	sum := sha256.Sum256([]byte(sigHex))
	return "0x" + hex.EncodeToString(sum[:])
}
