// Package notify verifies asynchronous payment notifications posted by the
// gateway.
package notify

import (
	"net/url"

	"github.com/pkg/errors"

	"github.com/AliyunContainerService/alipay-signature/internal/log"
	"github.com/AliyunContainerService/alipay-signature/types"
)

const (
	FieldSign     = "sign"
	FieldSignType = "sign_type"

	// Success and Fail are the bodies the gateway expects in reply.
	Success = "success"
	Fail    = "fail"
)

type Handler struct {
	verifier types.FieldSigner
}

func NewHandler(verifier types.FieldSigner) *Handler {
	return &Handler{verifier: verifier}
}

// Handle verifies the notification and returns every received field,
// including sign and sign_type. A repeated field keeps its last value.
func (h *Handler) Handle(form url.Values) (map[string]string, error) {
	data := make(map[string]string, len(form))
	for k, vs := range form {
		if len(vs) == 0 {
			continue
		}
		data[k] = vs[len(vs)-1]
	}
	if err := h.HandleFields(data); err != nil {
		return nil, err
	}
	return data, nil
}

// HandleFields verifies already decoded notification fields.
func (h *Handler) HandleFields(data map[string]string) error {
	signed := SignedFields(data)
	if !h.verifier.VerifySignature(data[FieldSign], signed) {
		log.Logger.Warnf("Rejected notification with %d fields: invalid signature", len(data))
		return errors.WithStack(types.ErrInvalidSignature)
	}
	return nil
}

// SignedFields returns data without sign and sign_type, the set the gateway
// signature covers.
func SignedFields(data map[string]string) map[string]string {
	signed := make(map[string]string, len(data))
	for k, v := range data {
		if k == FieldSign || k == FieldSignType {
			continue
		}
		signed[k] = v
	}
	return signed
}
