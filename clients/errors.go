package clients

// Failure reasons, reported as the state label of gateway_error and in log fields
const (
	ErrMissingOperation = "missing_operation"
	ErrEncodeRequest    = "encode_request"
	ErrBuildRequest     = "build_request"
	ErrRateLimited      = "rate_limit_wait"
	ErrTransport        = "transport"
	ErrReadBody         = "read_body"
	ErrHTTPStatus       = "http_status"
	ErrDecodeResponse   = "decode_response"
)
