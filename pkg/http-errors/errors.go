package httperrors

import (
	"net/http"

	domainerrors "attest/pkg/domain-errors"
)

// ToHTTPStatus maps domain error codes onto transport status codes so handlers
// stay free of per-error switch statements.
func ToHTTPStatus(code domainerrors.Code) int {
	switch code {
	case domainerrors.CodeInvalidInput, domainerrors.CodeBadRequest, domainerrors.CodeInvalidIdentifier:
		return http.StatusBadRequest
	case domainerrors.CodeNotFound:
		return http.StatusNotFound
	case domainerrors.CodeConflict, domainerrors.CodeDuplicateCredential:
		return http.StatusConflict
	case domainerrors.CodeWrongNetwork:
		return http.StatusPreconditionFailed
	case domainerrors.CodeUserDeclined:
		return http.StatusForbidden
	case domainerrors.CodeNoProvider:
		return http.StatusServiceUnavailable
	case domainerrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
