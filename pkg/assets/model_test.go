package assets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssetStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    AssetStatus
		to      AssetStatus
		allowed bool
	}{
		{StatusAvailable, StatusAssigned, true},
		{StatusAvailable, StatusMaintenance, true},
		{StatusAvailable, StatusDecommissioned, true},
		{StatusAssigned, StatusAvailable, true},
		{StatusAssigned, StatusMaintenance, true},
		{StatusAssigned, StatusDecommissioned, false},
		{StatusMaintenance, StatusAvailable, true},
		{StatusMaintenance, StatusAssigned, false},
		{StatusMaintenance, StatusDecommissioned, true},
		{StatusDecommissioned, StatusAvailable, false},
		{StatusDecommissioned, StatusAssigned, false},
		{StatusDecommissioned, StatusMaintenance, false},
	}

	for _, tt := range tests {
		require.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParseAssetStatus_RejectsLowercase(t *testing.T) {
	_, err := ParseAssetStatus("available")
	require.Error(t, err)

	status, err := ParseAssetStatus("AVAILABLE")
	require.NoError(t, err)
	require.Equal(t, StatusAvailable, status)
}

func TestParseAssetType(t *testing.T) {
	for _, valid := range []string{"WEAPON", "VEHICLE", "AMMUNITION", "EQUIPMENT"} {
		_, err := ParseAssetType(valid)
		require.NoError(t, err)
	}
	_, err := ParseAssetType("AIRCRAFT")
	require.Error(t, err)
}

func TestParseCondition(t *testing.T) {
	for _, valid := range []string{"NEW", "GOOD", "FAIR", "POOR"} {
		_, err := ParseCondition(valid)
		require.NoError(t, err)
	}
	_, err := ParseCondition("BROKEN")
	require.Error(t, err)
}
