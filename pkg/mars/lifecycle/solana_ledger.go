package lifecycle

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/marsprotocol/vault-engine/pkg/mars/protocol"
	"github.com/marsprotocol/vault-engine/pkg/solana"
)

var (
	ErrUnknownSigner = errors.New("no signing key for payer")
)

type solanaLedger struct {
	log    *logrus.Entry
	client solana.Client
	signer ed25519.PrivateKey
	codes  map[int]protocol.ErrorKind
}

// NewSolanaLedger returns a Ledger over the Solana JSON RPC API. Transactions
// are signed with signer, which must be the payer of every submission. Program
// custom error codes found in codes are surfaced as *protocol.Error.
func NewSolanaLedger(client solana.Client, signer ed25519.PrivateKey, codes map[int]protocol.ErrorKind) Ledger {
	return &solanaLedger{
		log:    logrus.StandardLogger().WithField("type", "lifecycle/solana_ledger"),
		client: client,
		signer: signer,
		codes:  codes,
	}
}

func (l *solanaLedger) GetSlot(_ context.Context) (uint64, error) {
	return l.client.GetSlot(solana.CommitmentConfirmed)
}

func (l *solanaLedger) Submit(_ context.Context, payer ed25519.PublicKey, instructions ...solana.Instruction) (solana.Signature, error) {
	if !bytes.Equal(payer, l.signer.Public().(ed25519.PublicKey)) {
		return solana.Signature{}, errors.Wrap(ErrUnknownSigner, base58.Encode(payer))
	}

	blockhash, err := l.client.GetLatestBlockhash()
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "error getting latest blockhash")
	}

	txn := solana.NewTransaction(payer, instructions...)
	txn.SetBlockhash(blockhash)
	if err := txn.Sign(l.signer); err != nil {
		return solana.Signature{}, errors.Wrap(err, "error signing transaction")
	}

	sig, err := l.client.SubmitTransaction(txn, solana.CommitmentConfirmed)
	if err != nil {
		l.log.WithFields(logrus.Fields{
			"method":    "Submit",
			"signature": sig.String(),
		}).WithError(err).Debug("transaction rejected")
		return sig, l.mapError(err)
	}
	return sig, nil
}

func (l *solanaLedger) GetOutcome(_ context.Context, sig solana.Signature) (*Outcome, error) {
	status, err := l.client.GetSignatureStatus(sig)
	if err == solana.ErrSignatureNotFound {
		return nil, ErrOutcomePending
	} else if err != nil {
		return nil, err
	}

	if !status.Confirmed() {
		return nil, ErrOutcomePending
	}

	outcome := &Outcome{
		Signature: sig,
		Slot:      status.Slot,
	}
	if status.ErrorResult != nil {
		outcome.Err = l.mapError(status.ErrorResult)
	}
	return outcome, nil
}

// mapError surfaces known program custom errors as structured protocol
// errors. Everything else is returned unchanged.
func (l *solanaLedger) mapError(err error) error {
	var txErr *solana.TransactionError
	if !errors.As(err, &txErr) {
		return err
	}

	instructionErr := txErr.InstructionError()
	if instructionErr == nil || instructionErr.CustomError() == nil {
		return err
	}

	kind, ok := l.codes[int(*instructionErr.CustomError())]
	if !ok {
		return err
	}
	return &protocol.Error{Kind: kind, Message: txErr.Error()}
}
