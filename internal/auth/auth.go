package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	RoleQueryReader = "query_reader"
	RoleIngestAdmin = "ingest_admin"
)

var knownRoles = []string{RoleIngestAdmin, RoleQueryReader}

// Identity is the authenticated caller. CallerID is forwarded to the
// completion provider as the end-user id.
type Identity struct {
	CallerID string
	Roles    []string
}

func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

// NewStaticAPIKeyValidator parses comma separated key:caller:role|role
// entries. An empty list yields a validator that rejects every key.
func NewStaticAPIKeyValidator(entries string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	for entry := range strings.SplitSeq(entries, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, identity, err := parseKeyEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid static key entry %q: %w", entry, err)
		}
		if _, exists := validator.keys[key]; exists {
			return nil, fmt.Errorf("invalid static key entry %q: duplicate key", entry)
		}
		validator.keys[key] = identity
	}
	return validator, nil
}

func parseKeyEntry(entry string) (string, Identity, error) {
	parts := strings.Split(entry, ":")
	if len(parts) != 3 {
		return "", Identity{}, errors.New("expected key:caller:role|role")
	}
	key, caller := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if key == "" || caller == "" {
		return "", Identity{}, errors.New("empty key/caller")
	}

	var roles []string
	for role := range strings.SplitSeq(parts[2], "|") {
		role = strings.TrimSpace(role)
		switch {
		case role == "":
		case slices.Contains(knownRoles, role):
			roles = append(roles, role)
		default:
			return "", Identity{}, fmt.Errorf("unknown role %q", role)
		}
	}
	if len(roles) == 0 {
		return "", Identity{}, errors.New("at least one role is required")
	}
	slices.Sort(roles)
	return key, Identity{CallerID: caller, Roles: slices.Compact(roles)}, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}

func (v *StaticAPIKeyValidator) Len() int {
	return len(v.keys)
}
