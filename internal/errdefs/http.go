package errdefs

import "net/http"

// HTTPStatus picks the response status for an error produced by the service
// layer. Errors outside the taxonomy are treated as internal faults.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	e := As(err)
	if e.Code >= 100 && e.Code <= 599 {
		return e.Code
	}
	switch e.Kind {
	case KindAuth:
		return http.StatusUnauthorized
	case KindBusiness:
		return http.StatusBadRequest
	case KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
