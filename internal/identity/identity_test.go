package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
)

func TestResolvePrecedence(t *testing.T) {
	cases := []struct {
		name string
		src  Sources
		want Identity
	}{
		{
			name: "token beats everything",
			src:  Sources{AuthUserID: "42", Header: "h", Query: "q", Body: "b", Path: "p"},
			want: "user:42",
		},
		{
			name: "header beats query body path",
			src:  Sources{Header: "h", Query: "q", Body: "b", Path: "p"},
			want: "guest:h",
		},
		{
			name: "query beats body",
			src:  Sources{Query: "q", Body: "b", Path: "p"},
			want: "guest:q",
		},
		{
			name: "body beats path",
			src:  Sources{Body: "b", Path: "p"},
			want: "guest:b",
		},
		{
			name: "path last",
			src:  Sources{Path: "p"},
			want: "guest:p",
		},
		{
			name: "blank values skipped",
			src:  Sources{Header: "  ", Query: "", Body: "b"},
			want: "guest:b",
		},
		{
			name: "guest prefix not doubled",
			src:  Sources{Header: "guest:abc"},
			want: "guest:abc",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.src, Policy{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveRequireAuth(t *testing.T) {
	_, err := Resolve(Sources{Header: "guest:abc"}, Policy{RequireAuth: true})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Equal(t, "authentication required", pkgerrors.As(err).Message())

	got, err := Resolve(Sources{AuthUserID: "7"}, Policy{RequireAuth: true})
	require.NoError(t, err)
	assert.Equal(t, Identity("user:7"), got)
}

func TestResolveNothingSupplied(t *testing.T) {
	_, err := Resolve(Sources{}, Policy{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "session not established", pkgerrors.As(err).Message())
}

func TestResolveRejectsClientSuppliedUserIdentity(t *testing.T) {
	_, err := Resolve(Sources{Header: "user:1"}, Policy{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGuestValidation(t *testing.T) {
	_, err := Guest("guest:   ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = Guest(strings.Repeat("x", maxClientIDLength+1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	got, err := Guest(" abc ")
	require.NoError(t, err)
	assert.Equal(t, Identity("guest:abc"), got)
}

func TestIdentityAccessors(t *testing.T) {
	assert.True(t, User("1").IsUser())
	assert.False(t, User("1").IsGuest())
	assert.Equal(t, "1", User("1").ID())

	guest, err := Guest("g1")
	require.NoError(t, err)
	assert.True(t, guest.IsGuest())
	assert.Equal(t, "g1", guest.ID())
	assert.Equal(t, "raw", Identity("raw").ID())
}
