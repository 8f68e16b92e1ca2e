package resp

// Codes carried in the "code" field of every error or status body.
const (
	CodeBadRequest       = "bad_request"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeStoreUnavailable = "store_unavailable"
	CodeInternalError    = "internal_error"
	CodeQueued           = "queued"
)
