package authority

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/marsprotocol/vault-engine/pkg/mars/fee"
	"github.com/marsprotocol/vault-engine/pkg/metrics"
	"github.com/marsprotocol/vault-engine/pkg/solana"
	"github.com/marsprotocol/vault-engine/pkg/solana/marsvault"
)

const (
	metricsStructName = "authority.gate"
)

// ErrFeeTiersNotFound is returned when a fee tier account hasn't been created
// on chain yet.
var ErrFeeTiersNotFound = errors.New("fee tiers account not found")

// LoadFeeTiers refreshes both the withdraw and insurance fee tier tables from
// their on chain accounts. A table whose account doesn't exist yet is left
// untouched.
func (g *Gate) LoadFeeTiers(ctx context.Context, client solana.Client) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "LoadFeeTiers")
	defer tracer.End()

	withdrawAddress, _, err := marsvault.GetFeeTiersAddress()
	if err != nil {
		tracer.OnError(err)
		return err
	}
	insuranceAddress, _, err := marsvault.GetInsuranceFeeTiersAddress()
	if err != nil {
		tracer.OnError(err)
		return err
	}

	withdrawTiers, err := loadFeeTiers(client, withdrawAddress)
	if err != nil && err != ErrFeeTiersNotFound {
		tracer.OnError(err)
		return errors.Wrap(err, "error loading withdraw fee tiers")
	}
	insuranceTiers, err := loadFeeTiers(client, insuranceAddress)
	if err != nil && err != ErrFeeTiersNotFound {
		tracer.OnError(err)
		return errors.Wrap(err, "error loading insurance fee tiers")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if withdrawTiers != nil {
		g.config.FeeTiers = withdrawTiers
		g.log.WithField("account", base58.Encode(withdrawAddress)).Debug("withdraw fee tiers loaded")
	}
	if insuranceTiers != nil {
		g.config.InsuranceFeeTiers = insuranceTiers
		g.log.WithField("account", base58.Encode(insuranceAddress)).Debug("insurance fee tiers loaded")
	}

	return nil
}

func loadFeeTiers(client solana.Client, address ed25519.PublicKey) (fee.Table, error) {
	info, err := client.GetAccountInfo(address, solana.CommitmentFinalized)
	if err == solana.ErrNoAccountInfo {
		return nil, ErrFeeTiersNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting fee tiers account")
	}

	if !bytes.Equal(info.Owner, marsvault.PROGRAM_ID) {
		return nil, marsvault.ErrInvalidProgram
	}

	var account marsvault.FeeTiersAccount
	if err := account.Unmarshal(info.Data); err != nil {
		return nil, err
	}

	return fee.NewTable(account.Thresholds, account.FeesBps)
}
