package managedfs

import (
	"context"
	"fmt"

	"github.com/schemefs/schemefs/internal/registry"
	"github.com/schemefs/schemefs/internal/storage/device"
	"github.com/schemefs/schemefs/pkg/types"
)

// RegisterType installs the "managed" filesystem type. A mount source may
// carry a ready store or just a device URI; in the latter case the device
// layer resolves it.
func RegisterType(reg *registry.TypeRegistry) {
	reg.Register(TypeName, func(src registry.Source) (types.Provider, error) {
		st := src.Store
		if st == nil {
			if src.Device == "" {
				return nil, fmt.Errorf("managedfs: mount source names no store or device")
			}
			var err error
			st, err = device.Open(context.Background(), src.Device, src.Logger)
			if err != nil {
				return nil, err
			}
		}
		return New(st, src.Logger), nil
	})
}
