package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kycgate/pkg/domain-errors"
)

const sampleIdentity = "0x8ba1f109551bd432803012645ac136ddd64dba72"

// TestParseIdentity_Invariants validates the parsing invariant:
// "identities are 0x plus 40 hex characters; the null identity is never an argument"
func TestParseIdentity_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseIdentity("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("rejects missing prefix", func(t *testing.T) {
		_, err := ParseIdentity(strings.TrimPrefix(sampleIdentity, "0x"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("accepts mixed case and renders lowercase", func(t *testing.T) {
		id, err := ParseIdentity("0x8BA1F109551bD432803012645Ac136ddd64DBA72")
		require.NoError(t, err)
		assert.Equal(t, sampleIdentity, id.String())
	})

	t.Run("null identity parses but RequireIdentity rejects it", func(t *testing.T) {
		zero := "0x" + strings.Repeat("0", 40)
		id, err := ParseIdentity(zero)
		require.NoError(t, err)
		assert.True(t, id.IsNil())

		_, err = RequireIdentity(zero)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})
}

func TestParseIdentity_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE verifications;--", true},
		{"Null byte injection", "0x8ba1f109551bd43280301264\x005ac136ddd64dba72", true},
		{"Oversized input", "0x" + strings.Repeat("a", 1000), true},
		{"Non-hex characters", "0x" + strings.Repeat("g", 40), true},
		{"Trailing whitespace", sampleIdentity + " ", true},
		{"Valid identity", sampleIdentity, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIdentity(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIdentity_JSONRoundTrip(t *testing.T) {
	type payload struct {
		Who Identity `json:"who"`
	}
	in := payload{Who: MustParseIdentity(sampleIdentity)}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"who":"`+sampleIdentity+`"}`, string(raw))

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in.Who, out.Who)

	err = json.Unmarshal([]byte(`{"who":"not-an-identity"}`), &out)
	require.Error(t, err)
}

func TestParseOperationID(t *testing.T) {
	id, err := ParseOperationID("0")
	require.NoError(t, err)
	assert.Equal(t, OperationID(0), id)

	_, err = ParseOperationID("-1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}

func TestParseAssetID(t *testing.T) {
	_, err := ParseAssetID(uuid.Nil.String())
	require.Error(t, err)

	u := uuid.New()
	id, err := ParseAssetID(u.String())
	require.NoError(t, err)
	assert.Equal(t, AssetID(u), id)
}

func TestParseEnums(t *testing.T) {
	k, err := ParseOperationKind("revoke_identity")
	require.NoError(t, err)
	assert.Equal(t, OperationRevokeIdentity, k)

	_, err = ParseOperationKind("mint")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))

	c, err := ParseCapability("threshold_signer")
	require.NoError(t, err)
	assert.Equal(t, CapabilityThresholdSigner, c)

	_, err = ParseCapability("root")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}
