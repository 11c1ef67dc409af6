package kv

import (
	"strings"

	"github.com/edge-landings/api/internal/domain"
)

const backendName = "kv"

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	kind := domain.StoreErrUnknown
	switch {
	case strings.HasPrefix(msg, "NOAUTH"), strings.HasPrefix(msg, "WRONGPASS"):
		kind = domain.StoreErrAuth
	case strings.HasPrefix(msg, "NOPERM"):
		kind = domain.StoreErrPermission
	}
	return domain.NewStoreError(kind, backendName, op, err)
}
