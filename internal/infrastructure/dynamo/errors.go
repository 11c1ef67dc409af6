package dynamo

import (
	"errors"

	"github.com/aws/smithy-go"

	"github.com/edge-landings/api/internal/domain"
)

const backendName = "dynamo"

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := domain.StoreErrUnknown
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "UnrecognizedClientException", "InvalidSignatureException", "ExpiredTokenException":
			kind = domain.StoreErrAuth
		case "ResourceNotFoundException":
			kind = domain.StoreErrMissingSchema
		case "AccessDeniedException":
			kind = domain.StoreErrPermission
		case "ValidationException", "SerializationException":
			kind = domain.StoreErrEncoding
		}
	}
	return domain.NewStoreError(kind, backendName, op, err)
}
