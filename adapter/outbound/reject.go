package outbound

import (
	"context"
	"errors"

	C "github.com/windrose-proxy/windrose/constant"
)

type Reject struct {
	*Base
}

type RejectOption struct {
	BasicOption
	Name string `proxy:"name"`
}

var errReject = errors.New("match reject rule")

// DialContext implements C.ProxyAdapter
func (r *Reject) DialContext(ctx context.Context, metadata *C.Metadata) (C.Conn, error) {
	return nil, errReject
}

func NewReject() *Reject {
	return &Reject{
		Base: NewBase(BaseOption{
			Name: "REJECT",
			Type: C.Reject,
			UDP:  true,
		}),
	}
}

func NewRejectWithOption(option RejectOption) *Reject {
	return &Reject{
		Base: NewBase(BaseOption{
			Name: option.Name,
			Type: C.Reject,
		}),
	}
}
