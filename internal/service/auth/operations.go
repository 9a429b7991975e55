package auth

import (
	"context"

	"github.com/phrazzld/hashpool/internal/task"
)

// Operation names registered in worker dispatch tables
const (
	// OperationBcryptHash hashes args[0] (password) with an optional args[1] (cost)
	OperationBcryptHash = "bcryptHash"

	// OperationBcryptCompare reports whether args[1] (password) matches args[0] (hash)
	OperationBcryptCompare = "bcryptCompare"
)

// RegisterOperations returns a registration function that installs the bcrypt
// operations into a worker's dispatch table. defaultCost is used when a
// bcryptHash task carries no cost argument.
func RegisterOperations(defaultCost int) func(task.Registry) {
	return func(r task.Registry) {
		verifier := NewBcryptVerifier()

		r.Register(OperationBcryptHash, func(_ context.Context, args task.Args) (any, error) {
			password, err := args.String(0)
			if err != nil {
				return nil, err
			}

			cost := defaultCost
			if args.Len() > 1 {
				if cost, err = args.Int(1); err != nil {
					return nil, err
				}
			}

			hasher, err := NewBcryptHasher(cost)
			if err != nil {
				return nil, err
			}
			return hasher.Hash(password)
		})

		r.Register(OperationBcryptCompare, func(_ context.Context, args task.Args) (any, error) {
			hash, err := args.String(0)
			if err != nil {
				return nil, err
			}
			password, err := args.String(1)
			if err != nil {
				return nil, err
			}
			return verifier.Matches(hash, password)
		})
	}
}
