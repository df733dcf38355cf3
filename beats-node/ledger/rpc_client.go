package ledger

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/provenonce/beats/config/params"
)

// RPCClient talks JSON-RPC 2.0 to a Solana node. All reads and status
// checks use finalized commitment; the publish path polls signature status
// over plain HTTP rather than a subscription transport, which keeps the
// client usable from serverless-style deployments.
type RPCClient struct {
	endpoint      string
	httpClient    *http.Client
	writerKey     ed25519.PrivateKey
	writerAddress string
	pollInterval  time.Duration
}

// NewRPCClient builds a ledger client for the given RPC endpoint signing
// with the writer key.
func NewRPCClient(endpoint string, writerKey ed25519.PrivateKey) *RPCClient {
	return &RPCClient{
		endpoint:      endpoint,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		writerKey:     writerKey,
		writerAddress: base58.Encode(writerKey.Public().(ed25519.PublicKey)),
		pollInterval:  params.BeatsConfig().PublishPollInterval,
	}
}

// WriterAddress returns the base58 address memos are published from.
func (c *RPCClient) WriterAddress() string {
	return c.writerAddress
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, rpcParams []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: rpcParams})
	if err != nil {
		return errors.Wrapf(err, "marshal %s request", method)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "build %s request", method)
	}
	req.Header.Set("Content-Type", "application/json")
	// The publish path must never see a cached response.
	req.Header.Set("Cache-Control", "no-store, no-cache")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "call %s", method)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.WithError(err).Debug("Failed to close RPC response body")
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s returned HTTP %d", method, resp.StatusCode)
	}
	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return errors.Wrapf(err, "decode %s response", method)
	}
	if rpcResp.Error != nil {
		return errors.Errorf("%s failed: %d %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return errors.Wrapf(err, "unmarshal %s result", method)
		}
	}
	return nil
}

type signatureInfo struct {
	Signature          string          `json:"signature"`
	Memo               *string         `json:"memo"`
	ConfirmationStatus *string         `json:"confirmationStatus"`
	Err                json.RawMessage `json:"err"`
}

// RecentMemos returns up to limit memo-bearing transactions for the writer,
// newest first.
func (c *RPCClient) RecentMemos(ctx context.Context, limit int) ([]MemoRecord, error) {
	var infos []signatureInfo
	err := c.call(ctx, "getSignaturesForAddress", []interface{}{
		c.writerAddress,
		map[string]interface{}{"limit": limit, "commitment": "finalized"},
	}, &infos)
	if err != nil {
		return nil, err
	}
	records := make([]MemoRecord, 0, len(infos))
	for _, info := range infos {
		if info.Memo == nil || string(info.Err) != "null" && len(info.Err) > 0 {
			continue
		}
		rec := MemoRecord{Signature: info.Signature, Memo: *info.Memo}
		if info.ConfirmationStatus != nil {
			rec.ConfirmationStatus = *info.ConfirmationStatus
		}
		records = append(records, rec)
	}
	return records, nil
}

type blockhashResult struct {
	Value struct {
		Blockhash string `json:"blockhash"`
	} `json:"value"`
}

// ExternalEntropy returns the latest finalized blockhash, a 32-byte value
// no single party controls.
func (c *RPCClient) ExternalEntropy(ctx context.Context) (string, error) {
	var res blockhashResult
	err := c.call(ctx, "getLatestBlockhash", []interface{}{
		map[string]interface{}{"commitment": "finalized"},
	}, &res)
	if err != nil {
		return "", err
	}
	return res.Value.Blockhash, nil
}

type balanceResult struct {
	Value uint64 `json:"value"`
}

// AccountBalance returns the writer balance in lamports.
func (c *RPCClient) AccountBalance(ctx context.Context) (uint64, error) {
	var res balanceResult
	err := c.call(ctx, "getBalance", []interface{}{
		c.writerAddress,
		map[string]interface{}{"commitment": "finalized"},
	}, &res)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

type signatureStatus struct {
	Slot               uint64          `json:"slot"`
	ConfirmationStatus string          `json:"confirmationStatus"`
	Err                json.RawMessage `json:"err"`
}

type signatureStatusesResult struct {
	Value []*signatureStatus `json:"value"`
}

// PublishMemo signs and sends a memo transaction, then polls signature
// status until the transaction is finalized or the publish timeout expires.
func (c *RPCClient) PublishMemo(ctx context.Context, payload []byte) (*PublishResult, error) {
	cfg := params.BeatsConfig()
	ctx, cancel := context.WithTimeout(ctx, cfg.PublishTimeout)
	defer cancel()

	blockhash, err := c.ExternalEntropy(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch recent blockhash")
	}
	tx, signature, err := buildMemoTransaction(c.writerKey, blockhash, payload)
	if err != nil {
		return nil, err
	}
	var sentSig string
	err = c.call(ctx, "sendTransaction", []interface{}{
		base64.StdEncoding.EncodeToString(tx),
		map[string]interface{}{"encoding": "base64", "preflightCommitment": "finalized"},
	}, &sentSig)
	if err != nil {
		return nil, err
	}
	if sentSig != "" {
		signature = sentSig
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "transaction %s not finalized in time", signature)
		case <-ticker.C:
			var res signatureStatusesResult
			err := c.call(ctx, "getSignatureStatuses", []interface{}{
				[]string{signature},
				map[string]interface{}{"searchTransactionHistory": true},
			}, &res)
			if err != nil {
				return nil, err
			}
			if len(res.Value) == 0 || res.Value[0] == nil {
				continue
			}
			status := res.Value[0]
			if len(status.Err) > 0 && string(status.Err) != "null" {
				return nil, errors.Errorf("transaction %s failed on chain: %s", signature, status.Err)
			}
			if status.ConfirmationStatus == "finalized" {
				return &PublishResult{Signature: signature, Slot: status.Slot}, nil
			}
		}
	}
}
