package circular

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vitwit/circular/types"
	"github.com/vitwit/circular/utils"
)

var decimalOne = decimal.NewFromInt(1)

// Read operations. Each one only builds the field map of its operation; the request
// itself always goes through the gateway Query.

// TestContract runs a smart contract project on the gateway without deploying it
func (c *Circular) TestContract(ctx context.Context, blockchain, from, project string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpTestContract, map[string]any{
		"Blockchain": utils.HexFix(blockchain),
		"From":       utils.HexFix(from),
		"Timestamp":  utils.FormatTimestamp(c.clock.Now()),
		"Project":    utils.StringToHex(project),
	})
}

// CallContract calls a local endpoint of a deployed smart contract
func (c *Circular) CallContract(ctx context.Context, blockchain, from, address, request string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpCallContract, map[string]any{
		"Blockchain": utils.HexFix(blockchain),
		"From":       utils.HexFix(from),
		"Address":    utils.HexFix(address),
		"Request":    utils.StringToHex(request),
		"Timestamp":  utils.FormatTimestamp(c.clock.Now()),
	})
}

// CheckWallet reports whether a wallet exists
func (c *Circular) CheckWallet(ctx context.Context, blockchain, address string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpCheckWallet, walletFields(blockchain, address))
}

func (c *Circular) GetWallet(ctx context.Context, blockchain, address string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetWallet, walletFields(blockchain, address))
}

// GetWalletBalance returns the balance of one asset held by a wallet
func (c *Circular) GetWalletBalance(ctx context.Context, blockchain, address, asset string) (*types.GatewayResponse, error) {
	fields := walletFields(blockchain, address)
	fields["asset"] = asset
	return c.Query(ctx, types.OpGetWalletBalance, fields)
}

func (c *Circular) GetWalletNonce(ctx context.Context, blockchain, address string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetWalletNonce, walletFields(blockchain, address))
}

func (c *Circular) GetLatestTransactions(ctx context.Context, blockchain, address string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetLatestTransactions, walletFields(blockchain, address))
}

// ResolveDomain returns the wallet address a domain name points to
func (c *Circular) ResolveDomain(ctx context.Context, blockchain, domain string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpResolveDomain, map[string]any{
		"Blockchain": utils.HexFix(blockchain),
		"Domain":     domain,
	})
}

func (c *Circular) GetAsset(ctx context.Context, blockchain, name string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetAsset, map[string]any{
		"Blockchain": utils.HexFix(blockchain),
		"AssetName":  name,
	})
}

func (c *Circular) GetAssetList(ctx context.Context, blockchain string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetAssetList, chainFields(blockchain))
}

func (c *Circular) GetAssetSupply(ctx context.Context, blockchain, name string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetAssetSupply, map[string]any{
		"Blockchain": utils.HexFix(blockchain),
		"AssetName":  name,
	})
}

func (c *Circular) GetVoucher(ctx context.Context, blockchain, code string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetVoucher, map[string]any{
		"Blockchain": utils.HexFix(blockchain),
		"Code":       utils.HexFix(code),
	})
}

func (c *Circular) GetBlock(ctx context.Context, blockchain string, number uint64) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetBlock, map[string]any{
		"Blockchain":  utils.HexFix(blockchain),
		"BlockNumber": blockNumber(number),
	})
}

// GetBlockRange returns the blocks from start to end
func (c *Circular) GetBlockRange(ctx context.Context, blockchain string, start, end uint64) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetBlockRange, map[string]any{
		"Blockchain": utils.HexFix(blockchain),
		"Start":      blockNumber(start),
		"End":        blockNumber(end),
	})
}

func (c *Circular) GetBlockHeight(ctx context.Context, blockchain string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetBlockHeight, chainFields(blockchain))
}

func (c *Circular) GetAnalytics(ctx context.Context, blockchain string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetAnalytics, chainFields(blockchain))
}

// GetBlockchains lists the blockchains served by the gateway
func (c *Circular) GetBlockchains(ctx context.Context) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetBlockchains, map[string]any{})
}

func (c *Circular) GetPendingTransaction(ctx context.Context, blockchain, txID string) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetPendingTransaction, map[string]any{
		"Blockchain": utils.HexFix(blockchain),
		"ID":         utils.HexFix(txID),
	})
}

// GetTransactionByID looks a transaction up within the block range start..end
func (c *Circular) GetTransactionByID(ctx context.Context, blockchain, txID string, start, end uint64) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetTransactionByID, map[string]any{
		"Blockchain": utils.HexFix(blockchain),
		"ID":         utils.HexFix(txID),
		"Start":      blockNumber(start),
		"End":        blockNumber(end),
	})
}

func (c *Circular) GetTransactionByNode(ctx context.Context, blockchain, nodeID string, start, end uint64) (*types.GatewayResponse, error) {
	return c.Query(ctx, types.OpGetTransactionByNode, map[string]any{
		"Blockchain": utils.HexFix(blockchain),
		"NodeID":     utils.HexFix(nodeID),
		"Start":      blockNumber(start),
		"End":        blockNumber(end),
	})
}

func (c *Circular) GetTransactionByAddress(ctx context.Context, blockchain, address string, start, end uint64) (*types.GatewayResponse, error) {
	fields := walletFields(blockchain, address)
	fields["Start"] = blockNumber(start)
	fields["End"] = blockNumber(end)
	return c.Query(ctx, types.OpGetTransactionByAddress, fields)
}

// GetTransactionByDate returns the transactions of a wallet between two dates, given
// in the gateway timestamp format
func (c *Circular) GetTransactionByDate(ctx context.Context, blockchain, address, startDate, endDate string) (*types.GatewayResponse, error) {
	fields := walletFields(blockchain, address)
	fields["StartDate"] = startDate
	fields["EndDate"] = endDate
	return c.Query(ctx, types.OpGetTransactionByDate, fields)
}

func chainFields(blockchain string) map[string]any {
	return map[string]any{
		"Blockchain": utils.HexFix(blockchain),
	}
}

func walletFields(blockchain, address string) map[string]any {
	return map[string]any{
		"Blockchain": utils.HexFix(blockchain),
		"Address":    utils.HexFix(address),
	}
}
