package domain

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

type Status string

const (
	StatusUnknown                  Status = ""
	StatusCreated                  Status = "created"
	StatusAwaitingVendorAcceptance Status = "awaiting_vendor_acceptance"
	StatusPreparing                Status = "preparing"
	StatusReadyForPickup           Status = "ready_for_pickup"
	StatusDelivererAssigned        Status = "deliverer_assigned"
	StatusPickedUp                 Status = "picked_up"
	StatusOutForDelivery           Status = "out_for_delivery"
	StatusDelivered                Status = "delivered"
	StatusCompleted                Status = "completed"
	StatusCancelled                Status = "cancelled"
)

// AllStatuses lists the canonical statuses in lifecycle order.
var AllStatuses = []Status{
	StatusCreated,
	StatusAwaitingVendorAcceptance,
	StatusPreparing,
	StatusReadyForPickup,
	StatusDelivererAssigned,
	StatusPickedUp,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCompleted,
	StatusCancelled,
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsPreAssignment reports whether an order in this status must not have a deliverer.
func (s Status) IsPreAssignment() bool {
	switch s {
	case StatusCreated, StatusAwaitingVendorAcceptance, StatusPreparing, StatusReadyForPickup:
		return true
	}
	return false
}

//go:embed status_aliases.yaml
var statusAliasesYAML []byte

var statusAliases = mustLoadStatusAliases(statusAliasesYAML)

func mustLoadStatusAliases(data []byte) map[string]Status {
	aliases, err := LoadStatusAliases(data)
	if err != nil {
		panic(fmt.Sprintf("domain: invalid embedded status aliases: %v", err))
	}
	return aliases
}

// LoadStatusAliases parses a YAML document of canonical status -> legacy names.
func LoadStatusAliases(data []byte) (map[string]Status, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing status aliases: %w", err)
	}

	aliases := make(map[string]Status)
	for canonical, names := range raw {
		status := Status(canonical)
		if !status.IsValid() {
			return nil, fmt.Errorf("alias target %q is not a canonical status", canonical)
		}
		for _, name := range names {
			key := normalizeStatusKey(name)
			if prev, ok := aliases[key]; ok && prev != status {
				return nil, fmt.Errorf("alias %q maps to both %s and %s", name, prev, status)
			}
			aliases[key] = status
		}
	}
	return aliases, nil
}

// ParseStatus accepts canonical names and every legacy alias, case-insensitively.
func ParseStatus(s string) (Status, error) {
	key := normalizeStatusKey(s)
	if status := Status(key); status.IsValid() {
		return status, nil
	}
	if status, ok := statusAliases[key]; ok {
		return status, nil
	}
	return StatusUnknown, fmt.Errorf("unknown order status %q", s)
}

// StatusSpellings lists the lowercased strings a stored row may carry for s:
// the canonical name followed by its aliases in sorted order.
func StatusSpellings(s Status) []string {
	var aliases []string
	for key, target := range statusAliases {
		if target == s && key != string(s) {
			aliases = append(aliases, key)
		}
	}
	sort.Strings(aliases)
	return append([]string{string(s)}, aliases...)
}

func normalizeStatusKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
