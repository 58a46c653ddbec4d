package models

import (
	"encoding/json"
	"testing"

	"github.com/akuzmenko/decksync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalID_IsLocalAndUnique(t *testing.T) {
	a := NewLocalID()
	b := NewLocalID()

	assert.True(t, a.IsLocal())
	assert.False(t, a.IsRemote())
	assert.False(t, a.IsZero())
	assert.NotEqual(t, a.Value(), b.Value())
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    ID
		wantErr bool
	}{
		{name: "local", in: "local:abc", want: LocalID("abc")},
		{name: "remote", in: "remote:xyz", want: RemoteID("xyz")},
		{name: "unknown namespace", in: "cloud:abc", wantErr: true},
		{name: "no separator", in: "abc", wantErr: true},
		{name: "empty value", in: "local:", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseID(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, common.ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestID_StringRoundTrip(t *testing.T) {
	id := RemoteID("d0a5")
	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestID_ZeroIsNeitherNamespace(t *testing.T) {
	var id ID
	assert.True(t, id.IsZero())
	assert.False(t, id.IsLocal())
	assert.False(t, id.IsRemote())
	assert.Equal(t, "", id.String())
}

func TestID_JSONRoundTrip(t *testing.T) {
	type wrapper struct {
		ID ID `json:"id"`
	}

	w := wrapper{ID: LocalID("abc")}
	b, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"local:abc"}`, string(b))

	var got wrapper
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, w, got)

	// zero ID serializes to the empty string and back
	b, err = json.Marshal(wrapper{})
	require.NoError(t, err)
	var zero wrapper
	require.NoError(t, json.Unmarshal(b, &zero))
	assert.True(t, zero.ID.IsZero())
}

func TestSyncMeta_Reconciled(t *testing.T) {
	m := SyncMeta{Synced: true, RemoteID: RemoteID("r1")}
	assert.True(t, m.Reconciled())

	m.ModifiedOffline = true
	assert.False(t, m.Reconciled())

	m = SyncMeta{Synced: false}
	assert.False(t, m.Reconciled())

	m = SyncMeta{RemoteID: RemoteID("r1"), DeletedOffline: true}
	assert.False(t, m.Reconciled())
}
