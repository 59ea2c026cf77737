package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionFromWire(t *testing.T) {
	assert.Equal(t, PermissionNone, PermissionFromWire(false, false))
	assert.Equal(t, PermissionRecv, PermissionFromWire(false, true))
	assert.Equal(t, PermissionSend, PermissionFromWire(true, true))
}

func TestPermissionWire(t *testing.T) {
	v, ok := PermissionSend.Wire()
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = PermissionRecv.Wire()
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = PermissionNone.Wire()
	assert.False(t, ok)
}

func TestPermissionFromString(t *testing.T) {
	assert.Equal(t, PermissionRecv, PermissionFromString("recv"))
	assert.Equal(t, PermissionSend, PermissionFromString("send"))
	assert.Equal(t, PermissionNone, PermissionFromString("garbage"))
}

func TestGrantedLattice(t *testing.T) {
	assert.True(t, Granted(PermissionNone, PermissionNone))
	assert.False(t, Granted(PermissionNone, PermissionRecv))
	assert.True(t, Granted(PermissionRecv, PermissionRecv))
	assert.False(t, Granted(PermissionRecv, PermissionSend))
	assert.True(t, Granted(PermissionSend, PermissionRecv))
	assert.True(t, Granted(PermissionSend, PermissionSend))
}

func TestPermissionJSONRoundTrip(t *testing.T) {
	data, err := PermissionSend.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, "true", string(data))

	var p Permission
	assert.NoError(t, p.UnmarshalJSON([]byte("true")))
	assert.Equal(t, PermissionSend, p)

	assert.NoError(t, p.UnmarshalJSON([]byte("false")))
	assert.Equal(t, PermissionRecv, p)
}
