package protocol

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/marsprotocol/vault-engine/pkg/metrics"
	"github.com/marsprotocol/vault-engine/pkg/solana"
)

const (
	metricsStructName = "protocol.assembler"
)

// Assembled is a quoted instruction split into named prefix slots and an
// opaque tail.
type Assembled struct {
	Kind    OperationKind
	Program ed25519.PublicKey
	Data    []byte

	Prefix    []solana.AccountMeta
	Remaining []solana.AccountMeta

	named map[Role]int
}

// Account returns the prefix account filling role.
func (a *Assembled) Account(role Role) (solana.AccountMeta, bool) {
	i, ok := a.named[role]
	if !ok {
		return solana.AccountMeta{}, false
	}
	return a.Prefix[i], true
}

// Accounts returns the full account list in the quoted order.
func (a *Assembled) Accounts() []solana.AccountMeta {
	accounts := make([]solana.AccountMeta, 0, len(a.Prefix)+len(a.Remaining))
	accounts = append(accounts, a.Prefix...)
	return append(accounts, a.Remaining...)
}

// Instruction rebuilds the external instruction exactly as quoted.
func (a *Assembled) Instruction() solana.Instruction {
	return solana.NewInstruction(a.Program, a.Data, a.Accounts()...)
}

// Assembler builds external protocol calls from adapter quotes.
type Assembler struct {
	log     *logrus.Entry
	adapter Adapter
	layouts LayoutTable
}

func NewAssembler(adapter Adapter, layouts LayoutTable) (*Assembler, error) {
	if err := layouts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid layout table")
	}

	return &Assembler{
		log:     logrus.StandardLogger().WithField("type", "protocol/assembler"),
		adapter: adapter,
		layouts: layouts,
	}, nil
}

// Assemble quotes req and maps the fixed prefix of the quoted accounts onto
// the operation's roles. Quotes shorter than the prefix are rejected rather
// than padded.
func (a *Assembler) Assemble(ctx context.Context, req *QuoteRequest) (*Assembled, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Assemble")
	defer tracer.End()

	log := a.log.WithFields(logrus.Fields{
		"method": "Assemble",
		"kind":   req.Kind.String(),
		"user":   base58.Encode(req.User),
	})

	layout, ok := a.layouts[req.Kind]
	if !ok {
		return nil, errors.Wrap(ErrUnsupportedOperation, req.Kind.String())
	}

	quoted, err := a.adapter.Quote(ctx, req)
	if err != nil {
		log.WithError(err).Info("failure quoting external instruction")
		return nil, err
	}

	if len(quoted.Accounts) < len(layout) {
		log.WithFields(logrus.Fields{
			"accounts": len(quoted.Accounts),
			"prefix":   len(layout),
		}).Warn("quoted instruction is missing prefix accounts")
		return nil, errors.Wrapf(
			ErrMalformedExternalInstruction,
			"%s quote has %d accounts, need at least %d",
			req.Kind,
			len(quoted.Accounts),
			len(layout),
		)
	}

	assembled := &Assembled{
		Kind:      req.Kind,
		Program:   quoted.Program,
		Data:      quoted.Data,
		Prefix:    append([]solana.AccountMeta(nil), quoted.Accounts[:len(layout)]...),
		Remaining: append([]solana.AccountMeta(nil), quoted.Accounts[len(layout):]...),
		named:     make(map[Role]int, len(layout)),
	}
	for i, role := range layout {
		assembled.named[role] = i
	}

	if user, ok := assembled.Account(RoleUser); ok {
		if !bytes.Equal(user.PublicKey, req.User) {
			return nil, errors.Wrap(ErrMalformedExternalInstruction, "user slot doesn't hold the requesting user")
		}
		if !user.IsSigner {
			return nil, errors.Wrap(ErrMalformedExternalInstruction, "user slot isn't a signer")
		}
	}

	log.WithField("remaining", len(assembled.Remaining)).Trace("assembled external instruction")

	return assembled, nil
}
