package resolver

import (
	"errors"
	"testing"

	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface{ Greet() string }

type clouderaGreeter struct{}

func (clouderaGreeter) Greet() string { return "cloudera" }

func TestResolveRegistered(t *testing.T) {
	r := NewRegistry[greeter](CapabilityServiceStatus).
		Register(types.VendorCloudera, clouderaGreeter{})

	impl, err := r.Resolve(types.VendorCloudera)
	require.NoError(t, err)
	assert.Equal(t, "cloudera", impl.Greet())
	assert.Equal(t, []types.Vendor{types.VendorCloudera}, r.Vendors())
}

func TestResolveUnregisteredVendors(t *testing.T) {
	r := NewRegistry[greeter](CapabilityLogSearch).
		Register(types.VendorCloudera, clouderaGreeter{})

	for _, vendor := range []types.Vendor{types.VendorHortonworks, "MAPR", "", "cdh"} {
		t.Run(string(vendor), func(t *testing.T) {
			impl, err := r.Resolve(vendor)
			require.Error(t, err)
			assert.Nil(t, impl)
			assert.True(t, errors.Is(err, ErrUnresolvedImplementation))

			var unresolved *UnresolvedImplementationError
			require.True(t, errors.As(err, &unresolved))
			assert.Equal(t, vendor, unresolved.Vendor)
			assert.Equal(t, CapabilityLogSearch, unresolved.Capability)
			assert.Contains(t, err.Error(), string(CapabilityLogSearch))
			assert.Contains(t, err.Error(), `"`+string(vendor)+`"`)
		})
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry[string](CapabilityJarSearch)
	r.Register(types.VendorHortonworks, "/usr/hdp")
	r.Register(types.VendorHortonworks, "/usr/hdp/current")

	v, err := r.Resolve(types.VendorHortonworks)
	require.NoError(t, err)
	assert.Equal(t, "/usr/hdp/current", v)
	assert.Equal(t, CapabilityJarSearch, r.Capability())
}

type pointerGreeter struct{ name string }

func (p *pointerGreeter) Greet() string { return p.name }

func TestRegisterNilIsUnresolved(t *testing.T) {
	var typedNil *pointerGreeter

	tests := []struct {
		name string
		impl greeter
	}{
		{"nil interface", nil},
		{"typed nil pointer", typedNil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry[greeter](CapabilityServiceStatus).
				Register(types.VendorCloudera, clouderaGreeter{}).
				Register(types.VendorCloudera, tt.impl)

			impl, err := r.Resolve(types.VendorCloudera)
			assert.Nil(t, impl)
			assert.ErrorIs(t, err, ErrUnresolvedImplementation)
			assert.Empty(t, r.Vendors())
		})
	}
}
