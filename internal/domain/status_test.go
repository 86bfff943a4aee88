package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus_CanonicalAndLegacy(t *testing.T) {
	tests := []struct {
		input string
		want  Status
	}{
		{input: "ready_for_pickup", want: StatusReadyForPickup},
		{input: "Ready", want: StatusReadyForPickup},
		{input: "ready", want: StatusReadyForPickup},
		{input: "Accepted by Deliverer", want: StatusDelivererAssigned},
		{input: "accepted", want: StatusDelivererAssigned},
		{input: "on_the_way", want: StatusOutForDelivery},
		{input: "Out for Delivery", want: StatusOutForDelivery},
		{input: "  out   for delivery ", want: StatusOutForDelivery},
		{input: "pending", want: StatusAwaitingVendorAcceptance},
		{input: "Declined", want: StatusCancelled},
		{input: "canceled", want: StatusCancelled},
		{input: "COMPLETED", want: StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatus_Unknown(t *testing.T) {
	got, err := ParseStatus("teleported")

	assert.Error(t, err)
	assert.Equal(t, StatusUnknown, got)
}

func TestLoadStatusAliases_RejectsNonCanonicalTarget(t *testing.T) {
	_, err := LoadStatusAliases([]byte("shipped:\n  - sent\n"))

	assert.Error(t, err)
}

func TestLoadStatusAliases_RejectsAmbiguousAlias(t *testing.T) {
	_, err := LoadStatusAliases([]byte("preparing:\n  - accepted\ndeliverer_assigned:\n  - Accepted\n"))

	assert.Error(t, err)
}

func TestStatus_Classification(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusDelivered.IsTerminal())

	assert.True(t, StatusReadyForPickup.IsPreAssignment())
	assert.False(t, StatusDelivererAssigned.IsPreAssignment())

	assert.False(t, Status("shipped").IsValid())
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Deliverer ")
	require.NoError(t, err)
	assert.Equal(t, RoleDeliverer, role)

	_, err = ParseRole("admin")
	assert.Error(t, err)
}

func TestStatusSpellings(t *testing.T) {
	spellings := StatusSpellings(StatusReadyForPickup)

	assert.Equal(t, []string{"ready_for_pickup", "ready", "ready for pickup"}, spellings)
	assert.Equal(t, []string{"created"}, StatusSpellings(StatusCreated))
}
