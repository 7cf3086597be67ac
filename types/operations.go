package types

// Operation is a gateway endpoint name, appended verbatim to the gateway URL
type Operation string

const (
	OpTestContract            Operation = "Circular_TestContract_"
	OpCallContract            Operation = "Circular_CallContract_"
	OpCheckWallet             Operation = "Circular_CheckWallet_"
	OpGetWallet               Operation = "Circular_GetWallet_"
	OpGetWalletBalance        Operation = "Circular_GetWalletBalance_"
	OpGetWalletNonce          Operation = "Circular_GetWalletNonce_"
	OpGetLatestTransactions   Operation = "Circular_GetLatestTransactions_"
	OpResolveDomain           Operation = "Circular_ResolveDomain_"
	OpGetAsset                Operation = "Circular_GetAsset_"
	OpGetAssetList            Operation = "Circular_GetAssetList_"
	OpGetAssetSupply          Operation = "Circular_GetAssetSupply_"
	OpGetVoucher              Operation = "Circular_GetVoucher_"
	OpGetBlockRange           Operation = "Circular_GetBlockRange_"
	OpGetBlock                Operation = "Circular_GetBlock_"
	OpGetBlockHeight          Operation = "Circular_GetBlockHeight_"
	OpGetAnalytics            Operation = "Circular_GetAnalytics_"
	OpGetBlockchains          Operation = "Circular_GetBlockchains_"
	OpGetPendingTransaction   Operation = "Circular_GetPendingTransaction_"
	OpGetTransactionByID      Operation = "Circular_GetTransactionbyID_"
	OpGetTransactionByNode    Operation = "Circular_GetTransactionbyNode_"
	OpGetTransactionByAddress Operation = "Circular_GetTransactionbyAddress_"
	OpGetTransactionByDate    Operation = "Circular_GetTransactionbyDate_"
	OpAddTransaction          Operation = "Circular_AddTransaction_"
)

var operations = map[Operation]struct{}{
	OpTestContract: {}, OpCallContract: {}, OpCheckWallet: {}, OpGetWallet: {},
	OpGetWalletBalance: {}, OpGetWalletNonce: {}, OpGetLatestTransactions: {},
	OpResolveDomain: {}, OpGetAsset: {}, OpGetAssetList: {}, OpGetAssetSupply: {},
	OpGetVoucher: {}, OpGetBlockRange: {}, OpGetBlock: {}, OpGetBlockHeight: {},
	OpGetAnalytics: {}, OpGetBlockchains: {}, OpGetPendingTransaction: {},
	OpGetTransactionByID: {}, OpGetTransactionByNode: {}, OpGetTransactionByAddress: {},
	OpGetTransactionByDate: {}, OpAddTransaction: {},
}

// IsKnown reports whether the operation is part of the gateway contract
func (o Operation) IsKnown() bool {
	_, ok := operations[o]
	return ok
}

// IsWrite reports whether the operation changes chain state
func (o Operation) IsWrite() bool {
	return o == OpAddTransaction
}

func (o Operation) String() string {
	return string(o)
}
