package models

import (
	"fmt"
	"strings"

	"github.com/akuzmenko/decksync/internal/common"
	"github.com/google/uuid"
)

// Namespace tags which identifier space a value belongs to. Local
// identifiers are minted on this device; remote identifiers are assigned by
// the authoritative store. The two spaces are disjoint: an ID carries its
// namespace, so lookups never have to guess from the value's shape.
type Namespace int

const (
	NamespaceLocal Namespace = iota + 1
	NamespaceRemote
)

func (n Namespace) String() string {
	switch n {
	case NamespaceLocal:
		return "local"
	case NamespaceRemote:
		return "remote"
	default:
		return "invalid"
	}
}

// ID is a namespaced entity identifier. The zero ID is invalid and means
// "no identifier" (e.g. a deck that has not been created remotely yet).
type ID struct {
	ns    Namespace
	value string
}

// NewLocalID mints a fresh identifier in the local namespace.
func NewLocalID() ID {
	return ID{ns: NamespaceLocal, value: uuid.NewString()}
}

// LocalID wraps an existing value as a local-namespace identifier.
func LocalID(value string) ID {
	return ID{ns: NamespaceLocal, value: value}
}

// RemoteID wraps a server-assigned value as a remote-namespace identifier.
func RemoteID(value string) ID {
	return ID{ns: NamespaceRemote, value: value}
}

// ParseID parses the textual "local:<value>" / "remote:<value>" form used at
// CLI and JSON boundaries.
func ParseID(s string) (ID, error) {
	ns, value, ok := strings.Cut(s, ":")
	if !ok || value == "" {
		return ID{}, fmt.Errorf("%w: %q", common.ErrInvalidID, s)
	}
	switch ns {
	case "local":
		return LocalID(value), nil
	case "remote":
		return RemoteID(value), nil
	default:
		return ID{}, fmt.Errorf("%w: unknown namespace %q", common.ErrInvalidID, ns)
	}
}

func (id ID) IsZero() bool { return id.ns == 0 && id.value == "" }

func (id ID) IsLocal() bool { return id.ns == NamespaceLocal }

func (id ID) IsRemote() bool { return id.ns == NamespaceRemote }

func (id ID) Namespace() Namespace { return id.ns }

// Value returns the raw identifier without its namespace tag.
func (id ID) Value() string { return id.value }

func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return id.ns.String() + ":" + id.value
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*id = ID{}
		return nil
	}
	parsed, err := ParseID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
