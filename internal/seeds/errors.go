package seeds

import "go.trai.ch/zerr"

var (
	// ErrNoStructure is returned when the top-level branch has no STRUCTURE
	// file or declares no seeds.
	ErrNoStructure = zerr.New("no seed structure")

	// ErrUnknownBranch is returned when an included branch cannot be fetched.
	ErrUnknownBranch = zerr.New("unknown seed branch")

	// ErrSeedNotFound is returned when no base/branch combination holds a seed file.
	ErrSeedNotFound = zerr.New("seed not found")
)
