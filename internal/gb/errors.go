package gb

import "errors"

var (
	// ErrNoData means there is no usable partition: the file is missing,
	// empty, or holds a header and no rows.
	ErrNoData = errors.New("no group information available")

	// ErrMalformed means the partition file exists but cannot be parsed.
	ErrMalformed = errors.New("malformed partition data")

	// ErrGroupNotFound is returned by push when the group is not in the partition.
	ErrGroupNotFound = errors.New("group not found")

	// ErrNoVault is returned by push and pull when no vault is configured.
	ErrNoVault = errors.New("no vault configured")
)
