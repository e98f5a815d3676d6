package kvault

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/marsprotocol/vault-engine/pkg/mars/protocol"
	"github.com/marsprotocol/vault-engine/pkg/metrics"
	"github.com/marsprotocol/vault-engine/pkg/rate"
	"github.com/marsprotocol/vault-engine/pkg/solana"
)

const (
	DefaultApiBaseUrl = "https://api.kamino.finance/kvaults/"

	instructionsEndpointName = "instructions"
	positionsEndpointName    = "positions"

	metricsStructName = "kvault.client"
)

// Error codes returned in the body of a rejected quote.
const (
	errorCodeNothingToUnstake  = "NOTHING_TO_UNSTAKE"
	errorCodeNothingToWithdraw = "NOTHING_TO_WITHDRAW"
)

// Client quotes kvault and farm instructions over HTTP. It implements
// protocol.Adapter and protocol.PositionReader.
type Client struct {
	log        *logrus.Entry
	baseUrl    string
	httpClient *http.Client
	limiter    rate.Limiter
}

// NewClient returns a new kvault client. Quotes are rate limited per
// operation kind.
func NewClient(baseUrl string, httpClient *http.Client, limiter rate.Limiter) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if limiter == nil {
		limiter = &rate.NoLimiter{}
	}

	return &Client{
		log:        logrus.StandardLogger().WithField("type", "kvault/client"),
		baseUrl:    baseUrl,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// Quote implements protocol.Adapter.Quote
func (c *Client) Quote(ctx context.Context, req *protocol.QuoteRequest) (*protocol.QuotedInstruction, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Quote")
	defer tracer.End()

	if req.Kind == protocol.OperationKindUnknown {
		return nil, errors.Wrap(protocol.ErrUnsupportedOperation, req.Kind.String())
	}

	if err := c.limiter.Wait(ctx, req.Kind.String()); err != nil {
		return nil, errors.Wrap(err, "error waiting for rate limiter")
	}

	body := jsonQuoteRequest{
		User:   base58.Encode(req.User),
		Asset:  base58.Encode(req.Asset),
		Amount: strconv.FormatUint(req.Amount, 10),
	}
	if req.Slot > 0 {
		body.Slot = strconv.FormatUint(req.Slot, 10)
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "error marshalling json request")
	}

	url := fmt.Sprintf("%s%s/%s", c.baseUrl, instructionsEndpointName, req.Kind.String())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, "error creating http request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "error executing http request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "error reading response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.toError(req.Kind, resp.StatusCode, respBody)
	}

	var parsed jsonQuoteResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling json response")
	}
	if parsed.Instruction == nil {
		return nil, errors.New("instruction not provided")
	}

	ixn, err := parsed.Instruction.ToSolanaInstruction()
	if err != nil {
		return nil, errors.Wrap(err, "error decoding instruction")
	}

	return &protocol.QuotedInstruction{
		Program:  ixn.Program,
		Accounts: ixn.Accounts,
		Data:     ixn.Data,
	}, nil
}

// StakedShares implements protocol.PositionReader.StakedShares
func (c *Client) StakedShares(ctx context.Context, user, asset ed25519.PublicKey) (uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "StakedShares")
	defer tracer.End()

	if err := c.limiter.Wait(ctx, positionsEndpointName); err != nil {
		return 0, errors.Wrap(err, "error waiting for rate limiter")
	}

	url := fmt.Sprintf("%s%s/%s?asset=%s", c.baseUrl, positionsEndpointName, base58.Encode(user), base58.Encode(asset))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "error creating http request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, errors.Wrap(err, "error executing http request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, errors.Wrap(err, "error reading response body")
	}

	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("received http status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed jsonPositionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return 0, errors.Wrap(err, "error unmarshalling json response")
	}

	shares, err := strconv.ParseUint(parsed.StakedShares, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "invalid staked shares")
	}
	return shares, nil
}

// toError maps a rejected quote to a structured protocol error. Unknown codes
// are returned as-is with the status and body for the caller to inspect.
func (c *Client) toError(kind protocol.OperationKind, status int, body []byte) error {
	var parsed jsonError
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch parsed.Code {
		case errorCodeNothingToUnstake:
			return &protocol.Error{Kind: protocol.ErrorKindNothingToUnstake, Message: parsed.Message}
		case errorCodeNothingToWithdraw:
			return &protocol.Error{Kind: protocol.ErrorKindNothingToWithdraw, Message: parsed.Message}
		}
	}

	c.log.WithFields(logrus.Fields{
		"method": "Quote",
		"kind":   kind.String(),
		"status": status,
	}).Debug("quote rejected")

	return errors.Errorf("received http status %d: %s", status, string(body))
}

func (i *jsonInstruction) ToSolanaInstruction() (*solana.Instruction, error) {
	decodedProgramKey, err := base58.Decode(i.ProgramId)
	if err != nil {
		return nil, errors.Wrap(err, "invalid program public key")
	}

	decodedData, err := base64.StdEncoding.DecodeString(i.Data)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding base64 instruction data")
	}

	var accountMetas []solana.AccountMeta
	for _, instructionAccount := range i.Accounts {
		decodedPubkey, err := base58.Decode(instructionAccount.Pubkey)
		if err != nil {
			return nil, errors.Wrap(err, "invalid instruction account public key")
		}

		accountMetas = append(accountMetas, solana.AccountMeta{
			PublicKey:  decodedPubkey,
			IsSigner:   instructionAccount.IsSigner,
			IsWritable: instructionAccount.IsWritable,
		})
	}

	return &solana.Instruction{
		Program:  decodedProgramKey,
		Accounts: accountMetas,
		Data:     decodedData,
	}, nil
}

type jsonQuoteRequest struct {
	User   string `json:"user"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
	Slot   string `json:"slot,omitempty"`
}

type jsonInstructionAccount struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type jsonInstruction struct {
	ProgramId string                   `json:"programId"`
	Accounts  []jsonInstructionAccount `json:"accounts"`
	Data      string                   `json:"data"`
}

type jsonQuoteResponse struct {
	Instruction *jsonInstruction `json:"instruction"`
}

type jsonPositionResponse struct {
	StakedShares string `json:"stakedShares"`
}

type jsonError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
