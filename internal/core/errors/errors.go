package errors

const (
	HttpInternalError        = "internal_error"
	HttpInvalidJsonError     = "invalid_json"
	HttpInvalidRequestError  = "invalid_request"
	HttpMeterNotFoundError   = "meter_not_found"
	HttpUnknownUnitError     = "unrecognized_unit"
	HttpInvalidMetadataError = "invalid_metadata"
	HttpImportBusyError      = "import_in_progress"
	HttpResetNotConfirmed    = "reset_not_confirmed"
)

// ErrorResponse is the error response body for maintenance errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
